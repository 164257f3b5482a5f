package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
)

// DefaultMaxCapacity is the number of open grievances an officer may hold.
const DefaultMaxCapacity = 10

const (
	unmigratedNoCategory = "no category"
	unmigratedNoOfficer  = "no eligible officer"
	unmigratedFailed     = "reassignment failed"
)

type txRunner interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type candidateFinder interface {
	CandidatesForUpdate(ctx context.Context, q sqlx.ExtContext, categoryID, excludeID string) ([]models.OfficerCandidate, error)
}

type assignmentStore interface {
	Create(ctx context.Context, q sqlx.ExtContext, assignment *models.Assignment) error
	LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Assignment, error)
	ListOpenByOfficer(ctx context.Context, officerID string) ([]models.OpenAssignment, error)
	Reassign(ctx context.Context, q sqlx.ExecerContext, id, officerID string, at time.Time) error
}

// AssignmentConfig carries the routing limits.
type AssignmentConfig struct {
	MaxCapacity int
}

// AssignmentService routes grievances to officers by category and workload.
type AssignmentService struct {
	tx          txRunner
	officers    candidateFinder
	assignments assignmentStore
	notifier    notifier
	cfg         AssignmentConfig
	metrics     *MetricsService
	logger      *zap.Logger
	now         func() time.Time
}

// NewAssignmentService constructs an AssignmentService.
func NewAssignmentService(tx txRunner, officers candidateFinder, assignments assignmentStore, notifier notifier, cfg AssignmentConfig, metrics *MetricsService, logger *zap.Logger) *AssignmentService {
	if cfg.MaxCapacity <= 0 {
		cfg.MaxCapacity = DefaultMaxCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tx:          tx,
		officers:    officers,
		assignments: assignments,
		notifier:    notifier,
		cfg:         cfg,
		metrics:     metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// AssignNew routes a freshly persisted grievance to the first officer, in
// enumeration order, that is under capacity. It returns nil without error when the
// grievance has no category or nobody can take it.
func (s *AssignmentService) AssignNew(ctx context.Context, g *models.Grievance) (*models.OfficerCandidate, error) {
	if g == nil || g.CategoryID == nil || *g.CategoryID == "" {
		s.metrics.RecordAssignment("new", "no_category")
		return nil, nil
	}

	var chosen *models.OfficerCandidate
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		candidates, err := s.officers.CandidatesForUpdate(ctx, tx, *g.CategoryID, "")
		if err != nil {
			return err
		}
		chosen = firstUnderCapacity(candidates, s.cfg.MaxCapacity)
		if chosen == nil {
			return nil
		}
		return s.assignments.Create(ctx, tx, &models.Assignment{
			ID:          uuid.NewString(),
			GrievanceID: g.ID,
			OfficerID:   chosen.OfficerID,
			AssignedAt:  s.now().UTC(),
		})
	})
	if err != nil {
		s.metrics.RecordAssignment("new", "error")
		return nil, fmt.Errorf("assign grievance %s: %w", g.ID, err)
	}
	if chosen == nil {
		s.metrics.RecordAssignment("new", "no_officer")
		s.logger.Info("grievance left unassigned", zap.String("grievance_id", g.ID), zap.String("category_id", *g.CategoryID))
		return nil, nil
	}

	s.metrics.RecordAssignment("new", "assigned")
	res := s.notifier.Notify(ctx, chosen.UserID, "New Grievance Assigned",
		fmt.Sprintf("New grievance assigned: %s", g.Title), &g.ID)
	logUndelivered(s.logger, res, "New Grievance Assigned",
		zap.String("grievance_id", g.ID), zap.String("officer_id", chosen.OfficerID))
	return chosen, nil
}

// ReassignFrom moves every open grievance held by a deactivated officer to the
// least-loaded active officer sharing its category. Each grievance is moved in its
// own transaction. Grievances that cannot be moved stay on the officer's stale
// assignment and are listed as unmigrated.
func (s *AssignmentService) ReassignFrom(ctx context.Context, officer *models.Officer) (*dto.ReassignReport, error) {
	if officer == nil {
		return nil, errors.New("reassign: officer is required")
	}
	report := &dto.ReassignReport{
		OfficerID:  officer.ID,
		Migrated:   []dto.MigratedGrievance{},
		Unmigrated: []dto.UnmigratedGrievance{},
	}

	open, err := s.assignments.ListOpenByOfficer(ctx, officer.ID)
	if err != nil {
		return nil, fmt.Errorf("reassign from %s: %w", officer.ID, err)
	}

	for _, item := range open {
		if item.CategoryID == nil || *item.CategoryID == "" {
			report.Unmigrated = append(report.Unmigrated, unmigrated(item, unmigratedNoCategory))
			s.metrics.RecordAssignment("reassign", "no_category")
			continue
		}

		target, moved, err := s.reassignOne(ctx, officer.ID, item)
		switch {
		case err != nil:
			s.logger.Error("reassignment failed", zap.String("grievance_id", item.GrievanceID), zap.Error(err))
			s.metrics.RecordAssignment("reassign", "error")
			report.Unmigrated = append(report.Unmigrated, unmigrated(item, unmigratedFailed))
		case !moved:
			// Moved by someone else since we listed it.
			continue
		case target == nil:
			s.metrics.RecordAssignment("reassign", "no_officer")
			report.Unmigrated = append(report.Unmigrated, unmigrated(item, unmigratedNoOfficer))
		default:
			s.metrics.RecordAssignment("reassign", "assigned")
			report.Migrated = append(report.Migrated, dto.MigratedGrievance{
				GrievanceID: item.GrievanceID,
				Title:       item.Title,
				OfficerID:   target.OfficerID,
			})
			report.NotificationFailures += s.notifyReassigned(ctx, officer, target, item)
		}
	}

	s.logger.Info("officer reassignment finished",
		zap.String("officer_id", officer.ID),
		zap.Int("migrated", len(report.Migrated)),
		zap.Int("unmigrated", len(report.Unmigrated)),
		zap.Int("notification_failures", report.NotificationFailures),
	)
	return report, nil
}

// reassignOne reports moved=false when the assignment no longer belongs to fromID.
func (s *AssignmentService) reassignOne(ctx context.Context, fromID string, item models.OpenAssignment) (target *models.OfficerCandidate, moved bool, err error) {
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.assignments.LockByID(ctx, tx, item.AssignmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if current.OfficerID != fromID {
			return nil
		}
		moved = true

		candidates, err := s.officers.CandidatesForUpdate(ctx, tx, *item.CategoryID, fromID)
		if err != nil {
			return err
		}
		target = leastLoadedUnderCapacity(candidates, s.cfg.MaxCapacity)
		if target == nil {
			return nil
		}
		return s.assignments.Reassign(ctx, tx, item.AssignmentID, target.OfficerID, s.now().UTC())
	})
	if err != nil {
		return nil, false, err
	}
	return target, moved, nil
}

// notifyReassigned tells the new officer and the owner about a move and returns
// how many of the two notifications were not delivered.
func (s *AssignmentService) notifyReassigned(ctx context.Context, from *models.Officer, to *models.OfficerCandidate, item models.OpenAssignment) int {
	grievanceID := item.GrievanceID
	failures := 0
	res := s.notifier.Notify(ctx, to.UserID, "Grievance Reassigned to You",
		fmt.Sprintf("Grievance '%s' has been moved to you from %s.", item.Title, from.Username), &grievanceID)
	if logUndelivered(s.logger, res, "Grievance Reassigned to You", zap.String("grievance_id", grievanceID), zap.String("user_id", to.UserID)) {
		failures++
	}
	res = s.notifier.Notify(ctx, item.OwnerID, "Officer Updated",
		fmt.Sprintf("Your grievance '%s' has been reassigned to a new officer for faster processing.", item.Title), &grievanceID)
	if logUndelivered(s.logger, res, "Officer Updated", zap.String("grievance_id", grievanceID), zap.String("user_id", item.OwnerID)) {
		failures++
	}
	return failures
}

func unmigrated(item models.OpenAssignment, reason string) dto.UnmigratedGrievance {
	return dto.UnmigratedGrievance{GrievanceID: item.GrievanceID, Title: item.Title, Reason: reason}
}

// firstUnderCapacity picks the first candidate in enumeration order with room.
func firstUnderCapacity(candidates []models.OfficerCandidate, capacity int) *models.OfficerCandidate {
	for i := range candidates {
		if candidates[i].Workload < capacity {
			c := candidates[i]
			return &c
		}
	}
	return nil
}

// leastLoadedUnderCapacity picks the lowest workload under capacity. Equal
// workloads keep enumeration order.
func leastLoadedUnderCapacity(candidates []models.OfficerCandidate, capacity int) *models.OfficerCandidate {
	eligible := make([]models.OfficerCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Workload < capacity {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Workload < eligible[j].Workload
	})
	return &eligible[0]
}
