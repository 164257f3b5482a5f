package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/internal/service"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type officerAdmin interface {
	List(ctx context.Context) ([]models.Officer, error)
	SetActive(ctx context.Context, officerID string, active bool) (*dto.SetOfficerActiveResponse, error)
}

type escalationSweeper interface {
	Sweep(ctx context.Context, now time.Time) ([]models.GrievanceDetail, error)
}

type grievanceExporter interface {
	Grievances(ctx context.Context, query dto.ExportQuery) (*service.ExportResult, error)
}

type categoryLister interface {
	List(ctx context.Context) ([]models.Category, error)
}

// AdminHandler exposes officer administration, manual sweeps and reports.
type AdminHandler struct {
	officers   officerAdmin
	escalation escalationSweeper
	exporter   grievanceExporter
	categories categoryLister
	now        func() time.Time
}

// NewAdminHandler builds a new handler.
func NewAdminHandler(officers officerAdmin, escalation escalationSweeper, exporter grievanceExporter, categories categoryLister) *AdminHandler {
	return &AdminHandler{
		officers:   officers,
		escalation: escalation,
		exporter:   exporter,
		categories: categories,
		now:        time.Now,
	}
}

// ListOfficers godoc
// @Summary List officers
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/officers [get]
func (h *AdminHandler) ListOfficers(c *gin.Context) {
	items, err := h.officers.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// SetOfficerActive godoc
// @Summary Activate or deactivate an officer
// @Description Deactivation moves the officer's open grievances to the least loaded active officer of the same category.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Officer ID"
// @Param payload body dto.SetOfficerActiveRequest true "Active flag"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/officers/{id}/active [patch]
func (h *AdminHandler) SetOfficerActive(c *gin.Context) {
	var req dto.SetOfficerActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid officer payload"))
		return
	}
	if req.Active == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active is required"))
		return
	}
	resp, err := h.officers.SetActive(c.Request.Context(), c.Param("id"), *req.Active)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, resp)
}

// Sweep godoc
// @Summary Run an escalation sweep now
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "sweep already running"
// @Router /admin/escalations/sweep [post]
func (h *AdminHandler) Sweep(c *gin.Context) {
	escalated, err := h.escalation.Sweep(c.Request.Context(), h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	resp := dto.SweepResponse{Escalated: make([]dto.EscalatedGrievance, 0, len(escalated))}
	for _, g := range escalated {
		resp.Escalated = append(resp.Escalated, dto.EscalatedGrievance{GrievanceID: g.ID, Title: g.Title, Level: g.EscalationLevel})
	}
	response.OK(c, resp)
}

// Export godoc
// @Summary Export grievances as CSV or PDF
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Status filter"
// @Param category_id query string false "Category filter"
// @Success 200 {file} file
// @Router /admin/grievances/export [get]
func (h *AdminHandler) Export(c *gin.Context) {
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid export query"))
		return
	}
	result, err := h.exporter.Grievances(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Payload)
}

// Categories godoc
// @Summary List grievance categories
// @Tags Categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *AdminHandler) Categories(c *gin.Context) {
	items, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, appErrors.Internal(err, "failed to list categories"))
		return
	}
	if items == nil {
		items = []models.Category{}
	}
	response.OK(c, items)
}
