package syncer

import (
	"strings"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/models"
)

// DefaultWindowSize is the retention bound of the live trade window.
const DefaultWindowSize = 250

// NormalizeTrade fills every optional field of an upstream trade with its
// display default. The second return value is false when the record has no
// identity (neither id nor transactionHash) and must not enter the window.
func NormalizeTrade(raw api.RawTrade) (models.NormalizedTrade, bool) {
	idKey := firstNonEmpty(raw.ID.String(), raw.TransactionHash.String())
	if idKey == "" {
		return models.NormalizedTrade{}, false
	}

	shares := raw.Size.Dec()
	if shares.IsZero() {
		shares = raw.Amount.Dec()
	}

	return models.NormalizedTrade{
		IDKey:             idKey,
		ID:                raw.ID.String(),
		TransactionHash:   raw.TransactionHash.String(),
		Side:              firstNonEmpty(raw.Side.String(), "Unknown"),
		Shares:            shares,
		Value:             raw.Amount.Dec(),
		Price:             raw.Price.Dec(),
		Outcome:           firstNonEmpty(raw.Outcome.String(), "Unknown"),
		EventTitle:        firstNonEmpty(raw.Market.String(), "Unknown Market"),
		MarketSlug:        raw.EventSlug.String(),
		TraderAddress:     raw.TraderAddress.String(),
		TraderDisplayName: firstNonEmpty(raw.TraderName.String(), raw.TraderAddress.String(), "Unknown Trader"),
		Icon:              raw.Icon.String(),
		Timestamp:         raw.Timestamp.Dec().IntPart(),
	}, true
}

// NormalizeTrades normalizes a fetched batch, dropping records without identity.
func NormalizeTrades(raws []api.RawTrade) []models.NormalizedTrade {
	out := make([]models.NormalizedTrade, 0, len(raws))
	for _, raw := range raws {
		if t, ok := NormalizeTrade(raw); ok {
			out = append(out, t)
		}
	}
	return out
}

// MergeWindow prepends the fetched trades whose idKey is not already present
// (in the window or earlier in the batch) and truncates the result to
// capacity. Neither input is modified.
func MergeWindow(window, fetched []models.NormalizedTrade, capacity int) []models.NormalizedTrade {
	if capacity <= 0 {
		capacity = DefaultWindowSize
	}

	seen := make(map[string]struct{}, len(window)+len(fetched))
	for _, t := range window {
		seen[t.IDKey] = struct{}{}
	}

	merged := make([]models.NormalizedTrade, 0, min(len(window)+len(fetched), capacity))
	for _, t := range fetched {
		if t.IDKey == "" {
			continue
		}
		if _, dup := seen[t.IDKey]; dup {
			continue
		}
		seen[t.IDKey] = struct{}{}
		merged = append(merged, t)
	}
	merged = append(merged, window...)

	if len(merged) > capacity {
		merged = merged[:capacity]
	}
	return merged
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
