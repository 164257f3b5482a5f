package models

import "time"

// Assignment links a grievance to the officer currently handling it. A nil
// AssignedBy means the system routed it.
type Assignment struct {
	ID          string    `db:"id" json:"id"`
	GrievanceID string    `db:"grievance_id" json:"grievance_id"`
	OfficerID   string    `db:"officer_id" json:"officer_id"`
	AssignedBy  *string   `db:"assigned_by" json:"assigned_by,omitempty"`
	AssignedAt  time.Time `db:"assigned_at" json:"assigned_at"`
}

// OpenAssignment is an assignment whose grievance is still open, with the fields
// needed to reroute it.
type OpenAssignment struct {
	AssignmentID string  `db:"assignment_id"`
	GrievanceID  string  `db:"grievance_id"`
	Title        string  `db:"title"`
	OwnerID      string  `db:"owner_id"`
	CategoryID   *string `db:"category_id"`
}
