package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Polytraders/polytraders/config"
)

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(config.UpstreamConfig{
		LeaderboardURL: srv.URL + "/api/leaderboard?period=daily&category=all",
		TradesURL:      srv.URL + "/api/trades",
		TimeoutMS:      2000,
	})
}

func TestClientLeaderboardJSON(t *testing.T) {
	t.Run("relays body on success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "daily", r.URL.Query().Get("period"))
			assert.Equal(t, "application/json", r.Header.Get("Accept"))
			w.Write([]byte(`{"data":{"entries":[]}}`))
		}))
		defer srv.Close()

		body, err := newTestClient(srv).LeaderboardJSON(context.Background())
		require.NoError(t, err)
		assert.JSONEq(t, `{"data":{"entries":[]}}`, string(body))
	})

	t.Run("non-2xx is an UpstreamError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LeaderboardJSON(context.Background())
		var upErr *UpstreamError
		require.True(t, errors.As(err, &upErr))
		assert.Equal(t, http.StatusServiceUnavailable, upErr.Status)
	})

	t.Run("invalid json is a parse failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>oops</html>`))
		}))
		defer srv.Close()

		_, err := newTestClient(srv).LeaderboardJSON(context.Background())
		assert.ErrorIs(t, err, ErrInvalidJSON)
	})
}

func TestClientTradesJSON(t *testing.T) {
	var gotTraders, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTraders = r.URL.Query().Get("traders")
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"data":{"trades":[{"id":"t1"}]}}`))
	}))
	defer srv.Close()

	trades, err := FetchTrades(context.Background(), newTestClient(srv), []string{"0xa", "0xb"}, 50)
	require.NoError(t, err)
	assert.Equal(t, "0xa,0xb", gotTraders)
	assert.Equal(t, "50", gotLimit)
	require.Len(t, trades, 1)
	assert.Equal(t, "t1", trades[0].ID.String())
}

func TestDecodeLeaderboard(t *testing.T) {
	t.Run("aliases and defaults", func(t *testing.T) {
		body := []byte(`{"data":{"entries":[
			{"rank":1,"walletAddress":"0xABC","username":"whale","profitLoss":"1234.5","volume":99},
			{"address":"0xdef","pnl":-3,"totalVolume":"10"},
			{"rank":"7","address":"0x123","name":"seven","profit":0,"totalProfit":12}
		]}}`)

		entries := DecodeLeaderboard(body)
		require.Len(t, entries, 3)

		assert.Equal(t, 1, entries[0].Rank)
		assert.Equal(t, "0xabc", entries[0].Address)
		assert.Equal(t, "whale", entries[0].DisplayName)
		assert.Equal(t, "1234.5", entries[0].Profit.String())
		assert.Equal(t, "99", entries[0].Volume.String())

		assert.Equal(t, 2, entries[1].Rank)
		assert.Equal(t, "Trader #2", entries[1].DisplayName)
		assert.Equal(t, "-3", entries[1].Profit.String())
		assert.Equal(t, "10", entries[1].Volume.String())

		assert.Equal(t, 7, entries[2].Rank)
		assert.Equal(t, "12", entries[2].Profit.String())
	})

	t.Run("unexpected shapes yield zero entries", func(t *testing.T) {
		for _, body := range []string{`[]`, `{"data":[]}`, `{"data":{"entries":{}}}`, `{}`, `null`, `"x"`} {
			assert.Empty(t, DecodeLeaderboard([]byte(body)), body)
		}
	})
}

func TestDecodeTrades(t *testing.T) {
	t.Run("numbers and strings", func(t *testing.T) {
		body := []byte(`{"data":{"trades":[
			{"id":42,"side":"BUY","amount":"500","size":1000.5,"price":"0.5","market":"M"},
			{"transactionHash":"0xhash","amount":null,"size":"abc"}
		]}}`)

		trades := DecodeTrades(body)
		require.Len(t, trades, 2)
		assert.Equal(t, "42", trades[0].ID.String())
		assert.Equal(t, "500", trades[0].Amount.Dec().String())
		assert.Equal(t, "1000.5", trades[0].Size.Dec().String())
		assert.True(t, trades[1].Amount.Dec().IsZero())
		assert.True(t, trades[1].Size.Dec().IsZero())
		assert.Equal(t, "0xhash", trades[1].TransactionHash.String())
	})

	t.Run("unexpected shapes yield zero trades", func(t *testing.T) {
		for _, body := range []string{`[]`, `{"data":{"trades":"no"}}`, `{"trades":[{"id":"x"}]}`} {
			assert.Empty(t, DecodeTrades([]byte(body)), body)
		}
	})
}
