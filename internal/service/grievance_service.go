package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const (
	defaultGrievancePageSize = 20
	grievanceNotFoundMessage = "grievance not found"
)

type grievanceStore interface {
	Create(ctx context.Context, q sqlx.ExtContext, g *models.Grievance) error
	FindByID(ctx context.Context, id string) (*models.Grievance, error)
	LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Grievance, error)
	Update(ctx context.Context, q sqlx.ExtContext, g *models.Grievance) error
	ListDetails(ctx context.Context, filter models.GrievanceFilter) ([]models.GrievanceDetail, error)
	Count(ctx context.Context, filter models.GrievanceFilter) (int, error)
}

type statusHistoryStore interface {
	Create(ctx context.Context, q sqlx.ExtContext, entry *models.StatusHistory) error
	ListByGrievance(ctx context.Context, grievanceID string) ([]models.StatusHistory, error)
}

type categoryReader interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

type officerByUser interface {
	FindByUserID(ctx context.Context, userID string) (*models.Officer, error)
}

type assignmentLookup interface {
	FindByGrievance(ctx context.Context, grievanceID string) (*models.Assignment, error)
	LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Assignment, error)
}

type feedbackStore interface {
	Create(ctx context.Context, f *models.Feedback) error
	ExistsForGrievance(ctx context.Context, grievanceID string) (bool, error)
}

type grievanceAssigner interface {
	AssignNew(ctx context.Context, g *models.Grievance) (*models.OfficerCandidate, error)
}

type dashboardInvalidator interface {
	InvalidatePublic(ctx context.Context)
}

var errAssignmentMoved = errors.New("assignment moved to another officer")

// validID reports whether id parses as a uuid. Callers treat a malformed id as
// a miss.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// SLAConfig governs due dates and the warning window.
type SLAConfig struct {
	Window        time.Duration
	WarningWindow time.Duration
}

// GrievanceService covers the citizen and officer grievance workflows.
type GrievanceService struct {
	tx          txRunner
	grievances  grievanceStore
	history     statusHistoryStore
	categories  categoryReader
	officers    officerByUser
	assignments assignmentLookup
	feedback    feedbackStore
	assigner    grievanceAssigner
	notifier    notifier
	dashboard   dashboardInvalidator
	sla         SLAConfig
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// GrievanceServiceDeps groups the collaborators of GrievanceService.
type GrievanceServiceDeps struct {
	Tx          txRunner
	Grievances  grievanceStore
	History     statusHistoryStore
	Categories  categoryReader
	Officers    officerByUser
	Assignments assignmentLookup
	Feedback    feedbackStore
	Assigner    grievanceAssigner
	Notifier    notifier
	Dashboard   dashboardInvalidator
}

// NewGrievanceService constructs a GrievanceService.
func NewGrievanceService(deps GrievanceServiceDeps, sla SLAConfig, validate *validator.Validate, logger *zap.Logger) *GrievanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if sla.Window <= 0 {
		sla.Window = models.DefaultSLAWindow
	}
	if sla.WarningWindow <= 0 {
		sla.WarningWindow = 48 * time.Hour
	}
	return &GrievanceService{
		tx:          deps.Tx,
		grievances:  deps.Grievances,
		history:     deps.History,
		categories:  deps.Categories,
		officers:    deps.Officers,
		assignments: deps.Assignments,
		feedback:    deps.Feedback,
		assigner:    deps.Assigner,
		notifier:    deps.Notifier,
		dashboard:   deps.Dashboard,
		sla:         sla,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// Submit files a grievance for the caller, suggests its priority and routes it.
// Routing failures leave the grievance unassigned but do not fail the submission.
func (s *GrievanceService) Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitGrievanceRequest) (*dto.GrievanceResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grievance payload")
	}

	var categoryName *string
	if req.CategoryID != nil && *req.CategoryID != "" {
		category, err := s.categories.FindByID(ctx, *req.CategoryID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, "category not found")
			}
			return nil, appErrors.Internal(err, "failed to load category")
		}
		categoryName = &category.Name
	} else {
		req.CategoryID = nil
	}

	g := models.NewGrievance(uuid.NewString(), claims.UserID, req.CategoryID, req.Title, req.Description,
		SuggestPriority(req.Description), s.now(), s.sla.Window)

	if err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		return s.grievances.Create(ctx, tx, g)
	}); err != nil {
		return nil, appErrors.Internal(err, "failed to submit grievance")
	}

	detail := models.GrievanceDetail{Grievance: *g, OwnerUsername: claims.Username, CategoryName: categoryName}
	officer, err := s.assigner.AssignNew(ctx, g)
	if err != nil {
		s.logger.Sugar().Warnw("grievance submitted without assignment", "grievance_id", g.ID, "error", err)
	} else if officer != nil {
		name := officer.Username
		detail.OfficerName = &name
	}

	s.invalidateDashboard(ctx)
	return s.toResponse(detail), nil
}

// ListMine pages through the caller's grievances, newest first.
func (s *GrievanceService) ListMine(ctx context.Context, claims *models.JWTClaims, query dto.GrievanceListQuery) ([]dto.GrievanceResponse, *models.Pagination, error) {
	if claims == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid query")
	}
	page, size := query.Page, query.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultGrievancePageSize
	}

	filter := models.GrievanceFilter{UserID: claims.UserID, Status: models.GrievanceStatus(query.Status)}
	total, err := s.grievances.Count(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to count grievances")
	}
	filter.Limit = uint64(size)
	filter.Offset = uint64((page - 1) * size)
	items, err := s.grievances.ListDetails(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list grievances")
	}

	result := make([]dto.GrievanceResponse, 0, len(items))
	for _, item := range items {
		result = append(result, *s.toResponse(item))
	}
	return result, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a grievance visible to the caller. Non-owners without staff rights
// get not found so existence is not leaked.
func (s *GrievanceService) Get(ctx context.Context, claims *models.JWTClaims, id string) (*dto.GrievanceResponse, error) {
	detail, err := s.visible(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(*detail), nil
}

// History returns the status log of a visible grievance, newest first.
func (s *GrievanceService) History(ctx context.Context, claims *models.JWTClaims, id string) ([]models.StatusHistory, error) {
	if _, err := s.visible(ctx, claims, id); err != nil {
		return nil, err
	}
	entries, err := s.history.ListByGrievance(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load status history")
	}
	if entries == nil {
		entries = []models.StatusHistory{}
	}
	return entries, nil
}

// Status is the polling view of a visible grievance.
func (s *GrievanceService) Status(ctx context.Context, claims *models.JWTClaims, id string) (*dto.GrievanceStatusResponse, error) {
	detail, err := s.visible(ctx, claims, id)
	if err != nil {
		return nil, err
	}
	history, err := s.history.ListByGrievance(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load status history")
	}
	if history == nil {
		history = []models.StatusHistory{}
	}
	return &dto.GrievanceStatusResponse{
		ID:              detail.ID,
		Status:          detail.Status,
		Priority:        detail.Priority,
		EscalationLevel: detail.EscalationLevel,
		DueDate:         detail.DueDate,
		SLAStatus:       detail.SLAStatusAt(s.now(), s.sla.WarningWindow),
		UpdatedAt:       detail.UpdatedAt,
		History:         history,
	}, nil
}

func (s *GrievanceService) visible(ctx context.Context, claims *models.JWTClaims, id string) (*models.GrievanceDetail, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
	}
	filter := models.GrievanceFilter{ID: id, Limit: 1}
	if !claims.Staff() {
		filter.UserID = claims.UserID
	}
	items, err := s.grievances.ListDetails(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load grievance")
	}
	if len(items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
	}
	return &items[0], nil
}

// OfficerUpdate applies status, priority and remark changes from the officer who
// currently holds the grievance. A status change is logged to the history and the
// owner is notified.
func (s *GrievanceService) OfficerUpdate(ctx context.Context, claims *models.JWTClaims, id string, req dto.OfficerUpdateRequest) (*models.Grievance, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update payload")
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
	}

	officer, err := s.officers.FindByUserID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "officer profile required")
		}
		return nil, appErrors.Internal(err, "failed to load officer")
	}
	assignment, err := s.assignments.FindByGrievance(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
		}
		return nil, appErrors.Internal(err, "failed to load assignment")
	}
	if assignment.OfficerID != officer.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
	}

	var (
		updated *models.Grievance
		change  *models.StatusChange
	)
	actor := claims.UserID
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		// Assignment before grievance, the same order ReassignFrom takes.
		held, err := s.assignments.LockByID(ctx, tx, assignment.ID)
		if err != nil {
			return err
		}
		if held.OfficerID != officer.ID {
			return errAssignmentMoved
		}
		g, err := s.grievances.LockByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if change, err = s.changeStatus(ctx, tx, g, *req.Status, &actor); err != nil {
				return err
			}
		}
		if req.Priority != nil {
			g.Priority = *req.Priority
		}
		if req.Remark != nil {
			g.OfficerRemark = strings.TrimSpace(*req.Remark)
		}
		g.UpdatedAt = s.now().UTC()
		if err := s.grievances.Update(ctx, tx, g); err != nil {
			return err
		}
		updated = g
		return nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, errAssignmentMoved) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
		}
		return nil, appErrors.Internal(err, "failed to update grievance")
	}

	if change != nil {
		res := s.notifier.Notify(ctx, updated.UserID, "Status Updated",
			fmt.Sprintf("Grievance '%s' is now %s.", updated.Title, change.To.Label()), &updated.ID)
		logUndelivered(s.logger, res, "Status Updated", zap.String("grievance_id", updated.ID))
		s.invalidateDashboard(ctx)
	}
	return updated, nil
}

// changeStatus moves g to next and appends a history row when the status actually
// changed. actor is nil for system-driven changes.
func (s *GrievanceService) changeStatus(ctx context.Context, tx sqlx.ExtContext, g *models.Grievance, next models.GrievanceStatus, actor *string) (*models.StatusChange, error) {
	change := g.ApplyStatus(next)
	if change == nil {
		return nil, nil
	}
	entry := &models.StatusHistory{
		ID:          uuid.NewString(),
		GrievanceID: g.ID,
		OldStatus:   change.From,
		NewStatus:   change.To,
		ChangedBy:   actor,
		ChangedAt:   s.now().UTC(),
	}
	if err := s.history.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	return change, nil
}

// SubmitFeedback rates a resolved grievance once.
func (s *GrievanceService) SubmitFeedback(ctx context.Context, claims *models.JWTClaims, id string, req dto.FeedbackRequest) (*models.Feedback, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid feedback payload")
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
	}

	g, err := s.grievances.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
		}
		return nil, appErrors.Internal(err, "failed to load grievance")
	}
	if g.UserID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, grievanceNotFoundMessage)
	}
	if g.Status != models.StatusResolved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "feedback is only accepted for resolved grievances")
	}
	exists, err := s.feedback.ExistsForGrievance(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check feedback")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "feedback already submitted")
	}

	fb := &models.Feedback{
		ID:          uuid.NewString(),
		GrievanceID: id,
		UserID:      claims.UserID,
		Rating:      req.Rating,
		Comment:     strings.TrimSpace(req.Comment),
		CreatedAt:   s.now().UTC(),
	}
	if err := s.feedback.Create(ctx, fb); err != nil {
		return nil, appErrors.Internal(err, "failed to save feedback")
	}
	return fb, nil
}

func (s *GrievanceService) toResponse(detail models.GrievanceDetail) *dto.GrievanceResponse {
	now := s.now()
	return &dto.GrievanceResponse{
		GrievanceDetail:  detail,
		SLAStatus:        detail.SLAStatusAt(now, s.sla.WarningWindow),
		SLARemainingSecs: int64(detail.SLARemaining(now).Seconds()),
		Overdue:          detail.IsOverdue(now),
	}
}

func (s *GrievanceService) invalidateDashboard(ctx context.Context) {
	if s.dashboard != nil {
		s.dashboard.InvalidatePublic(ctx)
	}
}
