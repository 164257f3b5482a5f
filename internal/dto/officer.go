package dto

// SetOfficerActiveRequest toggles an officer.
type SetOfficerActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// MigratedGrievance is a grievance moved to a new officer.
type MigratedGrievance struct {
	GrievanceID string `json:"grievance_id"`
	Title       string `json:"title"`
	OfficerID   string `json:"officer_id"`
}

// UnmigratedGrievance stays with the deactivated officer.
type UnmigratedGrievance struct {
	GrievanceID string `json:"grievance_id"`
	Title       string `json:"title"`
	Reason      string `json:"reason"`
}

// ReassignReport summarises a deactivation.
type ReassignReport struct {
	OfficerID            string                `json:"officer_id"`
	Migrated             []MigratedGrievance   `json:"migrated"`
	Unmigrated           []UnmigratedGrievance `json:"unmigrated"`
	NotificationFailures int                   `json:"notification_failures"`
}

// SetOfficerActiveResponse is returned by the admin toggle.
type SetOfficerActiveResponse struct {
	OfficerID string          `json:"officer_id"`
	Active    bool            `json:"active"`
	Changed   bool            `json:"changed"`
	Report    *ReassignReport `json:"reassignment,omitempty"`
}

// SweepResponse reports a manual escalation sweep.
type SweepResponse struct {
	Escalated []EscalatedGrievance `json:"escalated"`
}

// EscalatedGrievance is one level change applied by a sweep.
type EscalatedGrievance struct {
	GrievanceID string `json:"grievance_id"`
	Title       string `json:"title"`
	Level       int    `json:"level"`
}
