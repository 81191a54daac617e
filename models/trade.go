package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides as reported by the upstream feed.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// NormalizedTrade is an upstream trade with every optional field resolved to
// its documented default. IDKey is the dedup identity.
type NormalizedTrade struct {
	IDKey             string          `json:"idKey"`
	ID                string          `json:"id,omitempty"`
	TransactionHash   string          `json:"transactionHash,omitempty"`
	Side              string          `json:"side"`
	Shares            decimal.Decimal `json:"shares"`
	Value             decimal.Decimal `json:"value"`
	Price             decimal.Decimal `json:"price"`
	Outcome           string          `json:"outcome"`
	EventTitle        string          `json:"eventTitle"`
	MarketSlug        string          `json:"marketSlug"`
	TraderAddress     string          `json:"traderAddress"`
	TraderDisplayName string          `json:"traderDisplayName"`
	Icon              string          `json:"icon,omitempty"`
	Timestamp         int64           `json:"timestamp,omitempty"`
}

// TrackedTrade is a live trade the user annotated with a realized P&L.
type TrackedTrade struct {
	TradeID     string          `json:"tradeId"`
	EventTitle  string          `json:"eventTitle"`
	Side        string          `json:"side"`
	Outcome     string          `json:"outcome"`
	Shares      decimal.Decimal `json:"shares"`
	EntryAmount decimal.Decimal `json:"entryAmount"`
	ProfitLoss  decimal.Decimal `json:"profitLoss"`
	MarketSlug  string          `json:"marketSlug"`
	TraderName  string          `json:"traderName"`
	Icon        string          `json:"icon,omitempty"`
	SavedAt     int64           `json:"savedAt"` // unix milliseconds
}

// SavedTime returns SavedAt as a time.Time.
func (t TrackedTrade) SavedTime() time.Time {
	return time.UnixMilli(t.SavedAt)
}

// ProfileStats aggregates a profile's tracked trades.
type ProfileStats struct {
	TotalTrades int             `json:"totalTrades"`
	TotalPnL    decimal.Decimal `json:"totalPnL"`
	Wins        int             `json:"wins"`
	WinRate     float64         `json:"winRate"` // 0-100
}

// AnalysisMetrics are the heuristic percentage buckets.
type AnalysisMetrics struct {
	WinRate              int `json:"winRate"`
	RiskScore            int `json:"riskScore"`
	ActivityScore        int `json:"activityScore"`
	DiversificationScore int `json:"diversificationScore"`
}

// TradingSummary describes the analyzed trade sample.
type TradingSummary struct {
	TotalTrades  int             `json:"totalTrades"`
	BuyTrades    int             `json:"buyTrades"`
	SellTrades   int             `json:"sellTrades"`
	AvgTradeSize decimal.Decimal `json:"avgTradeSize"`
	TotalVolume  decimal.Decimal `json:"totalVolume"`
}

// Signal is a qualitative label emitted by the analysis engine.
type Signal struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// AnalysisResult is recomputed per request and never persisted.
type AnalysisResult struct {
	Trader  TraderRef       `json:"trader"`
	Metrics AnalysisMetrics `json:"metrics"`
	Trading TradingSummary  `json:"trading"`
	Markets []string        `json:"markets"`
	Signals []Signal        `json:"signals"`
}
