package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Polytraders/polytraders/api"
	"github.com/Polytraders/polytraders/middleware"
	"github.com/Polytraders/polytraders/models"
	"github.com/Polytraders/polytraders/service"
)

// trackRequest accepts profit_loss as a JSON string or number.
type trackRequest struct {
	TradeID    string         `json:"trade_id" binding:"required"`
	ProfitLoss api.FlexString `json:"profit_loss" binding:"decimal"`
}

type trackedView struct {
	models.TrackedTrade
	ShareURL string `json:"shareUrl"`
}

func viewOf(t models.TrackedTrade) trackedView {
	return trackedView{TrackedTrade: t, ShareURL: service.TradeShareURL(t)}
}

// ListTracked returns the caller's tracked trades, newest first.
func (h *Handler) ListTracked(c *gin.Context) {
	trades, err := h.service.ListTracked(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		h.serverError(c, err)
		return
	}

	views := make([]trackedView, 0, len(trades))
	for _, t := range trades {
		views = append(views, viewOf(t))
	}
	c.JSON(http.StatusOK, gin.H{
		"trades": views,
		"count":  len(views),
	})
}

// TrackTrade records a live trade with the entered P&L.
func (h *Handler) TrackTrade(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				if fe.Field() == "ProfitLoss" {
					c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profit_loss"})
					return
				}
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
		return
	}

	tracked, err := h.service.TrackByID(c.Request.Context(), middleware.ProfileID(c), req.TradeID, req.ProfitLoss.String())
	switch {
	case errors.Is(err, service.ErrInvalidPnL):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profit_loss"})
	case errors.Is(err, service.ErrTradeNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "trade_not_found"})
	case err != nil:
		h.serverError(c, err)
	default:
		c.JSON(http.StatusOK, viewOf(tracked))
	}
}

// ClearTracked deletes the caller's ledger.
func (h *Handler) ClearTracked(c *gin.Context) {
	if err := h.service.ClearTracked(c.Request.Context(), middleware.ProfileID(c)); err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// TrackedStats returns the caller's aggregate stats and a share link.
func (h *Handler) TrackedStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), middleware.ProfileID(c))
	if err != nil {
		h.serverError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":    stats,
		"shareUrl": service.StatsShareURL(stats),
	})
}

func (h *Handler) serverError(c *gin.Context, err error) {
	h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "server_error"})
}
