package dto

import (
	"time"

	"github.com/noah-isme/grievance-api/internal/models"
)

// SubmitGrievanceRequest is the citizen submission payload.
type SubmitGrievanceRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=5000"`
	CategoryID  *string `json:"category_id" validate:"omitempty,uuid"`
}

// OfficerUpdateRequest carries the fields an assigned officer may change. Nil
// fields are left untouched.
type OfficerUpdateRequest struct {
	Status   *models.GrievanceStatus `json:"status" validate:"omitempty,oneof=Pending InProgress Resolved"`
	Priority *models.Priority        `json:"priority" validate:"omitempty,oneof=Low Medium High"`
	Remark   *string                 `json:"remark" validate:"omitempty,max=2000"`
}

// FeedbackRequest rates a resolved grievance.
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// GrievanceResponse is a grievance with its SLA view.
type GrievanceResponse struct {
	models.GrievanceDetail
	SLAStatus        models.SLAStatus `json:"sla_status"`
	SLARemainingSecs int64            `json:"sla_remaining_seconds"`
	Overdue          bool             `json:"overdue"`
}

// GrievanceStatusResponse is the lightweight polling view.
type GrievanceStatusResponse struct {
	ID              string                 `json:"id"`
	Status          models.GrievanceStatus `json:"status"`
	Priority        models.Priority        `json:"priority"`
	EscalationLevel int                    `json:"escalation_level"`
	DueDate         time.Time              `json:"due_date"`
	SLAStatus       models.SLAStatus       `json:"sla_status"`
	UpdatedAt       time.Time              `json:"updated_at"`
	History         []models.StatusHistory `json:"history"`
}

// GrievanceListQuery filters the caller's grievances.
type GrievanceListQuery struct {
	Status   string `form:"status" validate:"omitempty,oneof=Pending InProgress Resolved"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// ExportQuery selects grievances for the admin report.
type ExportQuery struct {
	Format     string `form:"format" validate:"omitempty,oneof=csv pdf"`
	Status     string `form:"status" validate:"omitempty,oneof=Pending InProgress Resolved"`
	CategoryID string `form:"category_id" validate:"omitempty,uuid"`
}
