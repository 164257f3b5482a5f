package models

import "time"

// Officer is a staff account that resolves grievances in its categories.
type Officer struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Username    string    `db:"username" json:"username"`
	Department  string    `db:"department" json:"department"`
	Designation string    `db:"designation" json:"designation"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// OfficerCandidate is an officer eligible for a category together with its
// current open workload.
type OfficerCandidate struct {
	OfficerID string    `db:"officer_id"`
	UserID    string    `db:"user_id"`
	Username  string    `db:"username"`
	Workload  int       `db:"workload"`
	CreatedAt time.Time `db:"created_at"`
}
