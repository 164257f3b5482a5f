package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrievanceStampsDueDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	g := NewGrievance("g-1", "u-1", nil, "Broken pipe", "water everywhere", PriorityLow, now, 0)

	assert.Equal(t, StatusPending, g.Status)
	assert.Equal(t, now.Add(7*24*time.Hour), g.DueDate)
	assert.Equal(t, EscalationNone, g.EscalationLevel)
}

func TestApplyStatus(t *testing.T) {
	g := &Grievance{Status: StatusPending}

	assert.Nil(t, g.ApplyStatus(StatusPending))

	change := g.ApplyStatus(StatusInProgress)
	require.NotNil(t, change)
	assert.Equal(t, StatusPending, change.From)
	assert.Equal(t, StatusInProgress, change.To)
	assert.Equal(t, StatusInProgress, g.Status)
}

func TestApplyStatusLeavesDueDate(t *testing.T) {
	now := time.Now().UTC()
	g := NewGrievance("g-1", "u-1", nil, "t", "d", PriorityLow, now, 0)
	due := g.DueDate

	g.ApplyStatus(StatusInProgress)
	g.ApplyStatus(StatusResolved)

	assert.Equal(t, due, g.DueDate)
}

func TestSLAStatusAt(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	warning := 48 * time.Hour

	cases := []struct {
		name string
		due  time.Time
		want SLAStatus
	}{
		{"no due date", time.Time{}, SLAUnknown},
		{"past due", now.Add(-time.Hour), SLAOverdue},
		{"due now", now, SLAOverdue},
		{"inside warning window", now.Add(47 * time.Hour), SLAWarning},
		{"plenty of time", now.Add(72 * time.Hour), SLAOk},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := &Grievance{DueDate: tc.due, Status: StatusPending}
			assert.Equal(t, tc.want, g.SLAStatusAt(now, warning))
		})
	}
}

func TestIsOverdueIgnoresResolved(t *testing.T) {
	now := time.Now().UTC()
	g := &Grievance{DueDate: now.Add(-time.Hour), Status: StatusResolved}
	assert.False(t, g.IsOverdue(now))

	g.Status = StatusInProgress
	assert.True(t, g.IsOverdue(now))
}

func TestResolutionRate(t *testing.T) {
	assert.Equal(t, 0.0, GrievanceCounts{}.ResolutionRate())
	assert.Equal(t, 33.33, GrievanceCounts{Total: 3, Resolved: 1}.ResolutionRate())
}
