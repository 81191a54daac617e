package models

import "github.com/shopspring/decimal"

// LeaderboardEntry is one ranked trader from a leaderboard snapshot.
type LeaderboardEntry struct {
	Rank        int             `json:"rank"`
	Address     string          `json:"address"` // lowercase wallet address
	DisplayName string          `json:"displayName"`
	Profit      decimal.Decimal `json:"profit"`
	Volume      decimal.Decimal `json:"volume"`
	ProfileURL  string          `json:"profileUrl,omitempty"`
}

// RankInfo is the per-address value of the ranking index.
type RankInfo struct {
	Rank        int             `json:"rank"`
	DisplayName string          `json:"displayName"`
	Profit      decimal.Decimal `json:"profit"`
}

// Candidate is a trader the live feed can be filtered on.
type Candidate struct {
	Address     string `json:"address"`
	DisplayName string `json:"displayName"`
	Rank        int    `json:"rank"`
}

// TraderRef identifies the trader an analysis is computed for. Rank is 0
// when the trader is not on the current leaderboard.
type TraderRef struct {
	Address     string          `json:"address"`
	DisplayName string          `json:"displayName"`
	Rank        int             `json:"rank"`
	Profit      decimal.Decimal `json:"profit"`
}
