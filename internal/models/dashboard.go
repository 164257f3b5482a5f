package models

import "math"

// CategoryStat aggregates grievances for one category.
type CategoryStat struct {
	CategoryID string `db:"category_id" json:"category_id"`
	Name       string `db:"name" json:"name"`
	Total      int    `db:"total" json:"total"`
	Resolved   int    `db:"resolved" json:"resolved"`
}

// GrievanceCounts are the headline numbers shared by the dashboards.
type GrievanceCounts struct {
	Total      int `db:"total" json:"total"`
	Pending    int `db:"pending" json:"pending"`
	InProgress int `db:"in_progress" json:"in_progress"`
	Resolved   int `db:"resolved" json:"resolved"`
	Overdue    int `db:"overdue" json:"overdue"`
}

// ResolutionRate returns resolved/total as a percentage rounded to two decimals.
func (c GrievanceCounts) ResolutionRate() float64 {
	if c.Total == 0 {
		return 0
	}
	return math.Round(float64(c.Resolved)/float64(c.Total)*100*100) / 100
}

// PublicDashboard is the anonymous transparency view.
type PublicDashboard struct {
	GrievanceCounts
	ResolutionRate    float64        `json:"resolution_rate"`
	Categories        []CategoryStat `json:"categories"`
	FiledThisMonth    int            `json:"filed_this_month"`
	ResolvedThisMonth int            `json:"resolved_this_month"`
}

// OfficerDashboard summarises an officer's queue.
type OfficerDashboard struct {
	GrievanceCounts
	ResolutionRate     float64           `json:"resolution_rate"`
	AvgResolutionHours float64           `json:"avg_resolution_hours"`
	Grievances         []GrievanceDetail `json:"grievances"`
}
