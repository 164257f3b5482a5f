package models

import "time"

// GrievanceStatus is the lifecycle state of a grievance.
type GrievanceStatus string

const (
	StatusPending    GrievanceStatus = "Pending"
	StatusInProgress GrievanceStatus = "InProgress"
	StatusResolved   GrievanceStatus = "Resolved"
)

// OpenStatuses are the statuses that count toward officer workload and escalation.
var OpenStatuses = []GrievanceStatus{StatusPending, StatusInProgress}

// Valid reports whether s is a known status.
func (s GrievanceStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// Label is the human-readable form used in messages.
func (s GrievanceStatus) Label() string {
	if s == StatusInProgress {
		return "In Progress"
	}
	return string(s)
}

// Open reports whether the grievance still needs work.
func (s GrievanceStatus) Open() bool {
	return s == StatusPending || s == StatusInProgress
}

// Priority ranks grievance urgency.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Escalation levels.
const (
	EscalationNone   = 0
	EscalationLevel1 = 1
	EscalationLevel2 = 2
)

// DefaultSLAWindow is the time a grievance has before it becomes overdue.
const DefaultSLAWindow = 7 * 24 * time.Hour

// SLAStatus summarises how close a grievance is to its due date.
type SLAStatus string

const (
	SLAOk      SLAStatus = "ok"
	SLAWarning SLAStatus = "warning"
	SLAOverdue SLAStatus = "overdue"
	SLAUnknown SLAStatus = "unknown"
)

// Grievance is a citizen-filed complaint ticket.
type Grievance struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	CategoryID      *string         `db:"category_id" json:"category_id,omitempty"`
	Title           string          `db:"title" json:"title"`
	Description     string          `db:"description" json:"description"`
	Priority        Priority        `db:"priority" json:"priority"`
	Status          GrievanceStatus `db:"status" json:"status"`
	OfficerRemark   string          `db:"officer_remark" json:"officer_remark"`
	DueDate         time.Time       `db:"due_date" json:"due_date"`
	EscalationLevel int             `db:"escalation_level" json:"escalation_level"`
	LastEscalatedAt *time.Time      `db:"last_escalated_at" json:"last_escalated_at,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// StatusChange describes a transition produced by ApplyStatus.
type StatusChange struct {
	From GrievanceStatus
	To   GrievanceStatus
}

// NewGrievance builds a Pending grievance whose due date is stamped once from now.
func NewGrievance(id, userID string, categoryID *string, title, description string, priority Priority, now time.Time, window time.Duration) *Grievance {
	if window <= 0 {
		window = DefaultSLAWindow
	}
	now = now.UTC()
	return &Grievance{
		ID:          id,
		UserID:      userID,
		CategoryID:  categoryID,
		Title:       title,
		Description: description,
		Priority:    priority,
		Status:      StatusPending,
		DueDate:     now.Add(window),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ApplyStatus moves the grievance to next and returns the transition, or nil when
// the status is unchanged.
func (g *Grievance) ApplyStatus(next GrievanceStatus) *StatusChange {
	if g.Status == next {
		return nil
	}
	change := &StatusChange{From: g.Status, To: next}
	g.Status = next
	return change
}

// HoursOverdue is negative while the grievance is still within its window.
func (g *Grievance) HoursOverdue(now time.Time) float64 {
	return now.Sub(g.DueDate).Hours()
}

// IsOverdue reports whether an open grievance has passed its due date.
func (g *Grievance) IsOverdue(now time.Time) bool {
	if g.DueDate.IsZero() || !g.Status.Open() {
		return false
	}
	return now.After(g.DueDate)
}

// SLARemaining returns the time left before the due date.
func (g *Grievance) SLARemaining(now time.Time) time.Duration {
	if g.DueDate.IsZero() {
		return 0
	}
	return g.DueDate.Sub(now)
}

// SLAStatusAt classifies the remaining time. warning is the window before the due
// date that counts as at risk.
func (g *Grievance) SLAStatusAt(now time.Time, warning time.Duration) SLAStatus {
	if g.DueDate.IsZero() {
		return SLAUnknown
	}
	remaining := g.SLARemaining(now)
	switch {
	case remaining <= 0:
		return SLAOverdue
	case remaining <= warning:
		return SLAWarning
	default:
		return SLAOk
	}
}

// GrievanceDetail adds the display names used in emails and exports.
type GrievanceDetail struct {
	Grievance
	OwnerUsername string  `db:"owner_username" json:"owner_username"`
	CategoryName  *string `db:"category_name" json:"category_name,omitempty"`
	OfficerName   *string `db:"officer_username" json:"officer_username,omitempty"`
}

// GrievanceFilter narrows grievance listings.
type GrievanceFilter struct {
	ID         string
	UserID     string
	OfficerID  string
	Status     GrievanceStatus
	CategoryID string
	Overdue    bool
	Now        time.Time
	Limit      uint64
	Offset     uint64
}
