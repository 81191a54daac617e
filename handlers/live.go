package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Polytraders/polytraders/middleware"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/syncer"
)

type liveResponse struct {
	syncer.Snapshot
	Tracked map[string]models.TrackedTrade `json:"tracked"`
}

type toggleRequest struct {
	Address string `json:"address" binding:"required"`
}

// Live returns the live feed state with the caller's tracked trades.
func (h *Handler) Live(c *gin.Context) {
	tracked, err := h.service.TrackedSet(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to load tracked trades for live view")
		tracked = map[string]models.TrackedTrade{}
	}
	c.JSON(http.StatusOK, liveResponse{Snapshot: h.feed.Snapshot(), Tracked: tracked})
}

// ToggleTrader flips one trader in the live filter.
func (h *Handler) ToggleTrader(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"selected": h.feed.Toggle(req.Address)})
}

// SelectAllTraders selects every candidate.
func (h *Handler) SelectAllTraders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"selected": h.feed.SelectAll()})
}

// ClearTraders empties the filter so every candidate is polled.
func (h *Handler) ClearTraders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"selected": h.feed.ClearAll()})
}

// Candidates lists the traders the filter can select from.
func (h *Handler) Candidates(c *gin.Context) {
	candidates := h.feed.Candidates()
	c.JSON(http.StatusOK, gin.H{
		"candidates": candidates,
		"count":      len(candidates),
	})
}

// LiveMetrics returns feed counters.
func (h *Handler) LiveMetrics(c *gin.Context) {
	metrics, err := h.feed.Metrics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, metrics)
}
