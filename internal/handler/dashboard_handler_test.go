package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/grievance-api/internal/middleware"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

type dashboardServiceMock struct {
	public     *models.PublicDashboard
	hit        bool
	publicErr  error
	officer    *models.OfficerDashboard
	officerErr error
}

func (m *dashboardServiceMock) Public(ctx context.Context) (*models.PublicDashboard, bool, error) {
	return m.public, m.hit, m.publicErr
}

func (m *dashboardServiceMock) Officer(ctx context.Context, claims *models.JWTClaims) (*models.OfficerDashboard, error) {
	return m.officer, m.officerErr
}

func TestDashboardHandlerPublicCacheMeta(t *testing.T) {
	svc := &dashboardServiceMock{
		public: &models.PublicDashboard{GrievanceCounts: models.GrievanceCounts{Total: 3, Resolved: 1}, ResolutionRate: 33.33},
		hit:    true,
	}
	h := NewDashboardHandler(svc)

	c, w := newTestContext(http.MethodGet, "/public/dashboard", "")
	middleware.WithResponseMeta()(c)
	h.Public(c)

	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Contains(t, string(envelope["data"]), `"resolution_rate":33.33`)
	assert.Contains(t, string(envelope["meta"]), `"cache_hit":true`)
}

func TestDashboardHandlerPublicError(t *testing.T) {
	h := NewDashboardHandler(&dashboardServiceMock{publicErr: appErrors.Internal(errors.New("db down"), "failed to load dashboard")})

	c, w := newTestContext(http.MethodGet, "/public/dashboard", "")
	h.Public(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "db down")
}

func TestDashboardHandlerOfficerForbidden(t *testing.T) {
	h := NewDashboardHandler(&dashboardServiceMock{officerErr: appErrors.Clone(appErrors.ErrForbidden, "officer profile required")})

	c, w := newTestContext(http.MethodGet, "/officer/dashboard", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleOfficer})
	h.Officer(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDashboardHandlerOfficer(t *testing.T) {
	h := NewDashboardHandler(&dashboardServiceMock{officer: &models.OfficerDashboard{AvgResolutionHours: 26.7, Grievances: []models.GrievanceDetail{}}})

	c, w := newTestContext(http.MethodGet, "/officer/dashboard", "")
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u-1", Role: models.RoleOfficer})
	h.Officer(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"avg_resolution_hours":26.7`)
}
