package api

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric handles upstream numbers that may arrive as strings or numbers.
// Unparsable values decode as zero rather than failing the whole payload.
type Numeric struct {
	decimal.Decimal
}

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	n.Decimal = decimal.Zero
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		return nil
	}

	// Handle quoted numbers.
	if data[0] == '"' && data[len(data)-1] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if d, err := decimal.NewFromString(s); err == nil {
			n.Decimal = d
		}
		return nil
	}

	if d, err := decimal.NewFromString(string(data)); err == nil {
		n.Decimal = d
	}
	return nil
}

// Dec returns the underlying decimal value.
func (n Numeric) Dec() decimal.Decimal {
	return n.Decimal
}

// FlexString accepts a JSON string or number and keeps its textual form.
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || strings.EqualFold(string(data), "null") {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = FlexString(str)
		return nil
	}
	// Numbers and booleans keep their literal text.
	*s = FlexString(string(data))
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// RawTrade is a trade record as returned by the upstream trades endpoint.
// Every field is optional.
type RawTrade struct {
	ID              FlexString `json:"id"`
	TransactionHash FlexString `json:"transactionHash"`
	Side            FlexString `json:"side"`
	Amount          Numeric    `json:"amount"`
	Size            Numeric    `json:"size"`
	Price           Numeric    `json:"price"`
	Market          FlexString `json:"market"`
	EventSlug       FlexString `json:"eventSlug"`
	Outcome         FlexString `json:"outcome"`
	TraderAddress   FlexString `json:"traderAddress"`
	TraderName      FlexString `json:"traderName"`
	Icon            FlexString `json:"icon"`
	Timestamp       Numeric    `json:"timestamp"`
}
