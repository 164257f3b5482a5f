package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const (
	publicDashboardCacheKey = "dash:public"
	officerDashboardLimit   = 50
)

type dashboardRepository interface {
	Counts(ctx context.Context, officerID string, now time.Time) (models.GrievanceCounts, error)
	CategoryStats(ctx context.Context) ([]models.CategoryStat, error)
	MonthCounts(ctx context.Context, monthStart time.Time) (filed, resolved int, err error)
	AvgResolutionHours(ctx context.Context, officerID string) (float64, error)
}

type grievanceLister interface {
	ListDetails(ctx context.Context, filter models.GrievanceFilter) ([]models.GrievanceDetail, error)
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardService composes the public and officer dashboards.
type DashboardService struct {
	repo       dashboardRepository
	grievances grievanceLister
	officers   officerByUser
	cache      *CacheService
	logger     *zap.Logger
	now        func() time.Time
	cfg        DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Repo       dashboardRepository
	Grievances grievanceLister
	Officers   officerByUser
	Cache      *CacheService
	Logger     *zap.Logger
	Config     DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		repo:       params.Repo,
		grievances: params.Grievances,
		officers:   params.Officers,
		cache:      params.Cache,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// Public returns the anonymous dashboard and whether it came from cache.
func (s *DashboardService) Public(ctx context.Context) (*models.PublicDashboard, bool, error) {
	var cached models.PublicDashboard
	if s.cache.Get(ctx, publicDashboardCacheKey, &cached) {
		return &cached, true, nil
	}

	now := s.now().UTC()
	counts, err := s.repo.Counts(ctx, "", now)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load dashboard counts")
	}
	categories, err := s.repo.CategoryStats(ctx)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load category stats")
	}
	if categories == nil {
		categories = []models.CategoryStat{}
	}
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	filed, resolved, err := s.repo.MonthCounts(ctx, monthStart)
	if err != nil {
		return nil, false, appErrors.Internal(err, "failed to load monthly counts")
	}

	summary := &models.PublicDashboard{
		GrievanceCounts:   counts,
		ResolutionRate:    counts.ResolutionRate(),
		Categories:        categories,
		FiledThisMonth:    filed,
		ResolvedThisMonth: resolved,
	}
	s.cache.Set(ctx, publicDashboardCacheKey, summary, s.cfg.CacheTTL)
	return summary, false, nil
}

// InvalidatePublic drops the cached public dashboard.
func (s *DashboardService) InvalidatePublic(ctx context.Context) {
	s.cache.Invalidate(ctx, publicDashboardCacheKey)
}

// Officer summarises the caller's queue. Escalation is not triggered from here.
func (s *DashboardService) Officer(ctx context.Context, claims *models.JWTClaims) (*models.OfficerDashboard, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	officer, err := s.officers.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "officer profile required")
		}
		return nil, appErrors.Internal(err, "failed to load officer")
	}

	counts, err := s.repo.Counts(ctx, officer.ID, s.now().UTC())
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load officer counts")
	}
	avg, err := s.repo.AvgResolutionHours(ctx, officer.ID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load resolution time")
	}
	items, err := s.grievances.ListDetails(ctx, models.GrievanceFilter{OfficerID: officer.ID, Limit: officerDashboardLimit})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list officer grievances")
	}
	if items == nil {
		items = []models.GrievanceDetail{}
	}

	return &models.OfficerDashboard{
		GrievanceCounts:    counts,
		ResolutionRate:     counts.ResolutionRate(),
		AvgResolutionHours: math.Round(avg*10) / 10,
		Grievances:         items,
	}, nil
}
