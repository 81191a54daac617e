package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/Polytraders/polytraders/models"
)

// DecodeLeaderboard extracts entries from a `{data:{entries:[...]}}` body.
// Any other shape yields zero entries.
func DecodeLeaderboard(body []byte) []models.LeaderboardEntry {
	var envelope struct {
		Data struct {
			Entries []json.RawMessage `json:"entries"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	entries := make([]models.LeaderboardEntry, 0, len(envelope.Data.Entries))
	for i, raw := range envelope.Data.Entries {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var fields map[string]interface{}
		if err := dec.Decode(&fields); err != nil || fields == nil {
			continue
		}
		entries = append(entries, entryFromFields(fields, i))
	}
	return entries
}

func entryFromFields(fields map[string]interface{}, index int) models.LeaderboardEntry {
	rank := cast.ToInt(scalar(fields["rank"]))
	if rank <= 0 {
		rank = index + 1
	}

	name := firstString(fields, "displayName", "username", "name")
	if name == "" {
		name = fmt.Sprintf("Trader #%d", rank)
	}

	return models.LeaderboardEntry{
		Rank:        rank,
		Address:     strings.ToLower(strings.TrimSpace(firstString(fields, "walletAddress", "address"))),
		DisplayName: name,
		Profit:      firstDecimal(fields, "profitLoss", "profit", "totalProfit", "pnl"),
		Volume:      firstDecimal(fields, "volume", "totalVolume"),
		ProfileURL:  firstString(fields, "profileUrl"),
	}
}

// DecodeTrades extracts trades from a `{data:{trades:[...]}}` body. Records
// that cannot be decoded are dropped; any other shape yields zero trades.
func DecodeTrades(body []byte) []RawTrade {
	var envelope struct {
		Data struct {
			Trades []json.RawMessage `json:"trades"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}

	trades := make([]RawTrade, 0, len(envelope.Data.Trades))
	for _, raw := range envelope.Data.Trades {
		var t RawTrade
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		trades = append(trades, t)
	}
	return trades
}

func firstString(fields map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		if s := strings.TrimSpace(cast.ToString(scalar(v))); s != "" {
			return s
		}
	}
	return ""
}

// firstDecimal returns the first non-zero numeric value among keys.
func firstDecimal(fields map[string]interface{}, keys ...string) decimal.Decimal {
	for _, key := range keys {
		v, ok := fields[key]
		if !ok || v == nil {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(cast.ToString(scalar(v))))
		if err != nil || d.IsZero() {
			continue
		}
		return d
	}
	return decimal.Zero
}

// scalar unwraps json.Number so cast sees a plain string.
func scalar(v interface{}) interface{} {
	if n, ok := v.(json.Number); ok {
		return string(n)
	}
	return v
}
