package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type dashboardService interface {
	Public(ctx context.Context) (*models.PublicDashboard, bool, error)
	Officer(ctx context.Context, claims *models.JWTClaims) (*models.OfficerDashboard, error)
}

// DashboardHandler serves the public and officer dashboards.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler builds a new handler.
func NewDashboardHandler(service dashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

// Public godoc
// @Summary Public transparency dashboard
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /public/dashboard [get]
func (h *DashboardHandler) Public(c *gin.Context) {
	summary, hit, err := h.service.Public(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

// Officer godoc
// @Summary Dashboard of the calling officer
// @Tags Officer
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /officer/dashboard [get]
func (h *DashboardHandler) Officer(c *gin.Context) {
	summary, err := h.service.Officer(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}
