package service

import (
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/Polytraders/polytraders/models"
)

const tweetIntentURL = "https://twitter.com/intent/tweet"

// signedAmount formats d with two decimals and an explicit sign.
func signedAmount(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + d.Abs().StringFixed(2)
	}
	return "+" + d.StringFixed(2)
}

func tweetURL(text string) string {
	return tweetIntentURL + "?" + url.Values{"text": {text}}.Encode()
}

// TradeShareText is the post text announcing a tracked trade's result.
func TradeShareText(t models.TrackedTrade) string {
	emoji := "🚀"
	if t.ProfitLoss.IsNegative() {
		emoji = "📉"
	}
	return fmt.Sprintf("%s Just closed a %s position on \"%s\" with %s P&L using PolyTraders.\n\nTrack top traders and copy their moves.",
		emoji, t.Side, t.EventTitle, signedAmount(t.ProfitLoss))
}

// TradeShareURL is the X/Twitter intent URL for a tracked trade.
func TradeShareURL(t models.TrackedTrade) string {
	return tweetURL(TradeShareText(t))
}

// StatsShareText is the post text summarizing a profile's stats.
func StatsShareText(stats models.ProfileStats) string {
	emoji := "🚀"
	if stats.TotalPnL.IsNegative() {
		emoji = "📊"
	}
	return fmt.Sprintf("%s My PolyTraders Stats:\n\n📈 %d trades tracked\n💰 %s total P&L\n🎯 %.1f%% win rate\n\nTrack top traders and copy their moves.",
		emoji, stats.TotalTrades, signedAmount(stats.TotalPnL), stats.WinRate)
}

// StatsShareURL is the X/Twitter intent URL for a profile's stats.
func StatsShareURL(stats models.ProfileStats) string {
	return tweetURL(StatsShareText(stats))
}
