package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/learnhub/learnhub-backend/internal/model"
	"github.com/learnhub/learnhub-backend/internal/response"
	"github.com/learnhub/learnhub-backend/internal/validator"
)

type dashboardService interface {
	Stats(ctx context.Context, p model.Principal) (*model.DashboardStats, error)
	RecentActivity(ctx context.Context, p model.Principal, limit int) ([]model.ActivityItem, error)
	Performance(ctx context.Context, p model.Principal, days int) ([]model.PerformancePoint, error)
}

// DashboardHandler handles the landing dashboard endpoints.
type DashboardHandler struct {
	dashboard dashboardService
	log       zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboard dashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboard: dashboard,
		log:       log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Stats godoc
// GET /api/v1/dashboard/stats
// Returns summary cards. Students get personal figures, staff get tenant figures.
func (h *DashboardHandler) Stats(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	stats, err := h.dashboard.Stats(c.Request.Context(), p)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// RecentActivity godoc
// GET /api/v1/dashboard/recent-activity
// Newest attempts visible to the caller. ?limit defaults to 10, max 50.
func (h *DashboardHandler) RecentActivity(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
	}
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	items, err := h.dashboard.RecentActivity(c.Request.Context(), p, q.Limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"activities": items})
}

// PerformanceChart godoc
// GET /api/v1/dashboard/performance-chart
// Per-day attempt averages. ?days defaults to 30, range 7..365.
func (h *DashboardHandler) PerformanceChart(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var q struct {
		Days int `form:"days" binding:"omitempty,min=7,max=365"`
	}
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	points, err := h.dashboard.Performance(c.Request.Context(), p, q.Days)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"days": len(points), "points": points})
}
