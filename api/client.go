package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Polytraders/polytraders/config"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/utils"
)

// ErrInvalidJSON is returned when the upstream body is not valid JSON.
var ErrInvalidJSON = errors.New("upstream returned invalid json")

// UpstreamError reports a non-2xx response from the upstream gateway.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Status)
}

// Gateway is the read-only upstream data provider. Both methods return the
// raw JSON body on a 2xx response.
type Gateway interface {
	LeaderboardJSON(ctx context.Context) ([]byte, error)
	TradesJSON(ctx context.Context, traders string, limit int) ([]byte, error)
}

// Client talks to the upstream leaderboard and trades endpoints.
type Client struct {
	leaderboardURL string
	tradesURL      string
	httpClient     *http.Client
}

var _ Gateway = (*Client)(nil)

// NewClient creates an upstream client from config.
func NewClient(cfg config.UpstreamConfig) *Client {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		leaderboardURL: cfg.LeaderboardURL,
		tradesURL:      cfg.TradesURL,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

// LeaderboardJSON fetches the daily leaderboard body verbatim.
func (c *Client) LeaderboardJSON(ctx context.Context) ([]byte, error) {
	return c.getJSON(ctx, c.leaderboardURL)
}

// TradesJSON fetches recent trades for a comma separated list of traders.
func (c *Client) TradesJSON(ctx context.Context, traders string, limit int) ([]byte, error) {
	u, err := url.Parse(c.tradesURL)
	if err != nil {
		return nil, fmt.Errorf("parse trades url: %w", err)
	}
	q := u.Query()
	q.Set("traders", traders)
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()
	return c.getJSON(ctx, u.String())
}

func (c *Client) getJSON(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &UpstreamError{Status: resp.StatusCode, Body: utils.Truncate(string(body), 512)}
	}
	if !json.Valid(body) {
		return nil, ErrInvalidJSON
	}
	return body, nil
}

// FetchLeaderboard fetches and decodes the leaderboard snapshot.
func FetchLeaderboard(ctx context.Context, g Gateway) ([]models.LeaderboardEntry, error) {
	body, err := g.LeaderboardJSON(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeLeaderboard(body), nil
}

// FetchTrades fetches and decodes recent trades for the given addresses.
func FetchTrades(ctx context.Context, g Gateway, traders []string, limit int) ([]RawTrade, error) {
	body, err := g.TradesJSON(ctx, strings.Join(traders, ","), limit)
	if err != nil {
		return nil, err
	}
	return DecodeTrades(body), nil
}
