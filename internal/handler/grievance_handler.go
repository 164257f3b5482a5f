package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	"github.com/noah-isme/grievance-api/pkg/response"
)

type grievanceService interface {
	Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitGrievanceRequest) (*dto.GrievanceResponse, error)
	ListMine(ctx context.Context, claims *models.JWTClaims, query dto.GrievanceListQuery) ([]dto.GrievanceResponse, *models.Pagination, error)
	Get(ctx context.Context, claims *models.JWTClaims, id string) (*dto.GrievanceResponse, error)
	History(ctx context.Context, claims *models.JWTClaims, id string) ([]models.StatusHistory, error)
	Status(ctx context.Context, claims *models.JWTClaims, id string) (*dto.GrievanceStatusResponse, error)
	OfficerUpdate(ctx context.Context, claims *models.JWTClaims, id string, req dto.OfficerUpdateRequest) (*models.Grievance, error)
	SubmitFeedback(ctx context.Context, claims *models.JWTClaims, id string, req dto.FeedbackRequest) (*models.Feedback, error)
}

// GrievanceHandler exposes the citizen and officer grievance endpoints.
type GrievanceHandler struct {
	service grievanceService
}

// NewGrievanceHandler builds a new handler.
func NewGrievanceHandler(service grievanceService) *GrievanceHandler {
	return &GrievanceHandler{service: service}
}

// Submit godoc
// @Summary File a grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SubmitGrievanceRequest true "Grievance payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /grievances [post]
func (h *GrievanceHandler) Submit(c *gin.Context) {
	var req dto.SubmitGrievanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid grievance payload"))
		return
	}
	item, err := h.service.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// List godoc
// @Summary List my grievances
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param status query string false "Pending, InProgress or Resolved"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /grievances [get]
func (h *GrievanceHandler) List(c *gin.Context) {
	var query dto.GrievanceListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, bindError(err, "invalid query"))
		return
	}
	items, pagination, err := h.service.ListMine(c.Request.Context(), claimsFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a grievance
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /grievances/{id} [get]
func (h *GrievanceHandler) Get(c *gin.Context) {
	item, err := h.service.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// History godoc
// @Summary Status history of a grievance, newest first
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/history [get]
func (h *GrievanceHandler) History(c *gin.Context) {
	items, err := h.service.History(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}

// Status godoc
// @Summary Poll the status of a grievance
// @Tags Grievances
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Success 200 {object} response.Envelope
// @Router /grievances/{id}/status [get]
func (h *GrievanceHandler) Status(c *gin.Context) {
	item, err := h.service.Status(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}

// Feedback godoc
// @Summary Rate a resolved grievance
// @Tags Grievances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.FeedbackRequest true "Feedback payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /grievances/{id}/feedback [post]
func (h *GrievanceHandler) Feedback(c *gin.Context) {
	var req dto.FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid feedback payload"))
		return
	}
	item, err := h.service.SubmitFeedback(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// OfficerUpdate godoc
// @Summary Update status, priority or remark of an assigned grievance
// @Tags Officer
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Grievance ID"
// @Param payload body dto.OfficerUpdateRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /officer/grievances/{id} [patch]
func (h *GrievanceHandler) OfficerUpdate(c *gin.Context) {
	var req dto.OfficerUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "invalid update payload"))
		return
	}
	item, err := h.service.OfficerUpdate(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, item)
}
