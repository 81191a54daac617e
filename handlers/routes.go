package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Polytraders/polytraders/middleware"
)

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/api/health", h.Health)

	apiGroup := r.Group("/api", middleware.BasicAuth(), middleware.Profile())
	apiGroup.GET("/leaderboard", h.Leaderboard)
	apiGroup.GET("/trades", h.Trades)

	apiGroup.GET("/live", h.Live)
	apiGroup.GET("/live/candidates", h.Candidates)
	apiGroup.GET("/live/metrics", h.LiveMetrics)
	apiGroup.POST("/live/filter/toggle", h.ToggleTrader)
	apiGroup.POST("/live/filter/select-all", h.SelectAllTraders)
	apiGroup.POST("/live/filter/clear", h.ClearTraders)

	apiGroup.GET("/tracked", h.ListTracked)
	apiGroup.POST("/tracked", h.TrackTrade)
	apiGroup.DELETE("/tracked", h.ClearTracked)
	apiGroup.GET("/tracked/stats", h.TrackedStats)

	apiGroup.GET("/traders/:address/analysis", middleware.ValidateAddress("address"), h.TraderAnalysis)

	r.GET("/ws/live", middleware.BasicAuth(), h.LiveStream)
}
