package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/config"
	"github.com/Polytraders/polytraders/logging"
	"github.com/Polytraders/polytraders/middleware"
	"github.com/Polytraders/polytraders/service"
	"github.com/Polytraders/polytraders/syncer"
	"github.com/Polytraders/polytraders/utils"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 200
	maxErrorMessageLen = 5000
)

// Handler handles HTTP requests
type Handler struct {
	cfg     *config.Config
	service *service.Service
	feed    *syncer.LiveFeed
	logger  zerolog.Logger
	hub     *wsHub
}

// NewHandler creates a new handler
func NewHandler(cfg *config.Config, svc *service.Service, feed *syncer.LiveFeed) *Handler {
	registerValidators()
	return &Handler{
		cfg:     cfg,
		service: svc,
		feed:    feed,
		logger:  logging.Component("http"),
		hub:     newWSHub(),
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Leaderboard relays the upstream leaderboard body unchanged.
func (h *Handler) Leaderboard(c *gin.Context) {
	body, err := h.service.LeaderboardJSON(c.Request.Context())
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Trades relays recent trades for the comma separated traders query.
func (h *Handler) Trades(c *gin.Context) {
	traders := strings.TrimSpace(c.Query("traders"))
	if traders == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_traders"})
		return
	}

	body, err := h.service.TradesJSON(c.Request.Context(), traders, ParseLimit(c.Query("limit")))
	if err != nil {
		h.upstreamError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// ParseLimit clamps the trades limit: missing, non-numeric and non-positive
// values become 50, and values above 200 are capped.
func ParseLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || limit <= 0 {
		return defaultTradesLimit
	}
	if limit > maxTradesLimit {
		return maxTradesLimit
	}
	return limit
}

// TraderAnalysis runs the heuristic analysis for one trader.
func (h *Handler) TraderAnalysis(c *gin.Context) {
	result := h.service.AnalyzeTrader(c.Request.Context(), middleware.Address(c))
	c.JSON(http.StatusOK, result)
}

// upstreamError maps a gateway failure to the proxy error shapes.
func (h *Handler) upstreamError(c *gin.Context, err error) {
	var upErr *api.UpstreamError
	if errors.As(err, &upErr) {
		h.logger.Warn().Int("status", upErr.Status).Str("path", c.Request.URL.Path).Msg("upstream failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"error":  "upstream_failed",
			"status": upErr.Status,
		})
		return
	}

	h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("proxy request failed")
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "server_error",
		"message": utils.Truncate(err.Error(), maxErrorMessageLen),
	})
}
