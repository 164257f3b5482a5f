package models

import "time"

// StatusHistory is an immutable record of one status transition.
type StatusHistory struct {
	ID          string          `db:"id" json:"id"`
	GrievanceID string          `db:"grievance_id" json:"grievance_id"`
	OldStatus   GrievanceStatus `db:"old_status" json:"old_status"`
	NewStatus   GrievanceStatus `db:"new_status" json:"new_status"`
	ChangedBy   *string         `db:"changed_by" json:"changed_by,omitempty"`
	ChangedAt   time.Time       `db:"changed_at" json:"changed_at"`
}
