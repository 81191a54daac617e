package analyzer

import (
	"github.com/shopspring/decimal"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/models"
)

// maxListedMarkets caps AnalysisResult.Markets.
const maxListedMarkets = 5

var (
	largeTradeSize  = decimal.NewFromInt(1000)
	mediumTradeSize = decimal.NewFromInt(500)
)

// Analyze derives heuristic scores and signals for a trader from a sample of
// recent trades. The buckets are fixed thresholds on rank, trade count, size
// and market spread; winRate in particular is not computed from outcomes.
// Rank 0 means unranked.
func Analyze(trader models.TraderRef, recentTrades []api.RawTrade) models.AnalysisResult {
	var (
		buys, sells int
		totalVolume = decimal.Zero
		markets     = make([]string, 0, len(recentTrades))
		seenMarkets = make(map[string]struct{}, len(recentTrades))
	)

	for _, t := range recentTrades {
		switch t.Side.String() {
		case models.SideBuy:
			buys++
		case models.SideSell:
			sells++
		}

		totalVolume = totalVolume.Add(t.Amount.Dec())

		market := t.Market.String()
		if market == "" {
			market = "Unknown"
		}
		if _, ok := seenMarkets[market]; !ok {
			seenMarkets[market] = struct{}{}
			markets = append(markets, market)
		}
	}

	count := len(recentTrades)
	avgTradeSize := decimal.Zero
	if count > 0 {
		avgTradeSize = totalVolume.Div(decimal.NewFromInt(int64(count)))
	}
	distinct := len(markets)
	ranked := trader.Rank > 0

	metrics := models.AnalysisMetrics{
		WinRate:              winRateBucket(trader.Rank),
		RiskScore:            riskBucket(avgTradeSize),
		ActivityScore:        activityBucket(count),
		DiversificationScore: diversificationBucket(distinct),
	}

	signals := make([]models.Signal, 0, 6)
	if buys > sells*2 {
		signals = append(signals, models.Signal{Icon: "🟢", Text: "Heavy Buy Pressure"})
	}
	if sells > buys*2 {
		signals = append(signals, models.Signal{Icon: "🔴", Text: "Heavy Sell Pressure"})
	}
	if count > 15 {
		signals = append(signals, models.Signal{Icon: "⚡", Text: "High Activity"})
	}
	if avgTradeSize.GreaterThan(largeTradeSize) {
		signals = append(signals, models.Signal{Icon: "🐋", Text: "Large Position Sizes"})
	}
	if distinct > 5 {
		signals = append(signals, models.Signal{Icon: "🎯", Text: "Well Diversified"})
	}
	if ranked && trader.Rank <= 10 {
		signals = append(signals, models.Signal{Icon: "👑", Text: "Top 10 Trader"})
	}

	listed := markets
	if len(listed) > maxListedMarkets {
		listed = listed[:maxListedMarkets]
	}

	return models.AnalysisResult{
		Trader:  trader,
		Metrics: metrics,
		Trading: models.TradingSummary{
			TotalTrades:  count,
			BuyTrades:    buys,
			SellTrades:   sells,
			AvgTradeSize: avgTradeSize,
			TotalVolume:  totalVolume,
		},
		Markets: listed,
		Signals: signals,
	}
}

func winRateBucket(rank int) int {
	switch {
	case rank > 0 && rank <= 10:
		return 78
	case rank > 0 && rank <= 50:
		return 66
	default:
		return 56
	}
}

func riskBucket(avg decimal.Decimal) int {
	switch {
	case avg.GreaterThan(largeTradeSize):
		return 86
	case avg.GreaterThan(mediumTradeSize):
		return 64
	default:
		return 42
	}
}

func activityBucket(count int) int {
	switch {
	case count > 15:
		return 88
	case count > 10:
		return 68
	default:
		return 48
	}
}

func diversificationBucket(distinctMarkets int) int {
	switch {
	case distinctMarkets > 5:
		return 82
	case distinctMarkets > 3:
		return 62
	default:
		return 44
	}
}
