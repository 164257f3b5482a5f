package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
	"github.com/noah-isme/grievance-api/pkg/mailer"
)

const escalationLockKey = "escalation-sweep"

type escalationStore interface {
	ListOverdue(ctx context.Context, now time.Time) ([]models.GrievanceDetail, error)
	LockByID(ctx context.Context, q sqlx.ExtContext, id string) (*models.Grievance, error)
	AdvanceEscalation(ctx context.Context, q sqlx.ExecerContext, id string, from, to int, at time.Time) (bool, error)
}

type superuserLister interface {
	ListSuperusers(ctx context.Context) ([]models.User, error)
}

type claimLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

// EscalationConfig holds the overdue thresholds and the extra admin address.
type EscalationConfig struct {
	Level1Hours float64
	Level2Hours float64
	AdminEmail  string
	Interval    time.Duration
	LockTTL     time.Duration
}

// EscalationService advances overdue grievances through the escalation levels and
// alerts the admins.
type EscalationService struct {
	tx         txRunner
	grievances escalationStore
	users      superuserLister
	notifier   notifier
	email      emailer
	locker     claimLocker
	cfg        EscalationConfig
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewEscalationService constructs an EscalationService. locker may be nil for a
// single-instance deployment.
func NewEscalationService(tx txRunner, grievances escalationStore, users superuserLister, notifier notifier, email emailer, locker claimLocker, cfg EscalationConfig, metrics *MetricsService, logger *zap.Logger) *EscalationService {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		tx:         tx,
		grievances: grievances,
		users:      users,
		notifier:   notifier,
		email:      email,
		locker:     locker,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// nextEscalationLevel returns the level to enter, or 0 for none. At most one level
// is entered per call: a level 0 grievance past both thresholds only reaches 1.
func nextEscalationLevel(current int, hoursOverdue, level1Hours, level2Hours float64) int {
	if current < models.EscalationLevel1 && hoursOverdue >= level1Hours {
		return models.EscalationLevel1
	} else if current < models.EscalationLevel2 && hoursOverdue >= level2Hours {
		return models.EscalationLevel2
	}
	return models.EscalationNone
}

// Sweep escalates open grievances whose due date is before now and returns the
// ones that changed level. The level change is committed before anyone is
// notified, so a failed email never re-triggers an escalation. Returns
// ErrLockNotAcquired when another instance is sweeping.
func (s *EscalationService) Sweep(ctx context.Context, now time.Time) ([]models.GrievanceDetail, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveSweep(time.Since(start)) }()

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, escalationLockKey, s.cfg.LockTTL)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("release escalation lock", zap.Error(err))
			}
		}()
	}

	now = now.UTC()
	overdue, err := s.grievances.ListOverdue(ctx, now)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list overdue grievances")
	}
	if len(overdue) == 0 {
		return []models.GrievanceDetail{}, nil
	}

	admins, err := s.users.ListSuperusers(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list admins")
	}

	escalated := make([]models.GrievanceDetail, 0)
	for _, detail := range overdue {
		level, err := s.escalateOne(ctx, detail.ID, now)
		if err != nil {
			s.logger.Error("escalation failed", zap.String("grievance_id", detail.ID), zap.Error(err))
			continue
		}
		if level == models.EscalationNone {
			continue
		}

		detail.EscalationLevel = level
		escalatedAt := now
		detail.LastEscalatedAt = &escalatedAt
		escalated = append(escalated, detail)
		s.metrics.RecordEscalation(level)
		s.alertAdmins(ctx, detail, level, admins)
	}

	s.logger.Info("escalation sweep finished", zap.Int("overdue", len(overdue)), zap.Int("escalated", len(escalated)))
	return escalated, nil
}

// escalateOne re-reads the grievance under a row lock and applies at most one level.
func (s *EscalationService) escalateOne(ctx context.Context, id string, now time.Time) (int, error) {
	entered := models.EscalationNone
	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		g, err := s.grievances.LockByID(ctx, tx, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		if !g.Status.Open() || !g.DueDate.Before(now) {
			return nil
		}

		next := nextEscalationLevel(g.EscalationLevel, g.HoursOverdue(now), s.cfg.Level1Hours, s.cfg.Level2Hours)
		if next == models.EscalationNone {
			return nil
		}
		ok, err := s.grievances.AdvanceEscalation(ctx, tx, g.ID, g.EscalationLevel, next, now)
		if err != nil {
			return err
		}
		if ok {
			entered = next
		}
		return nil
	})
	if err != nil {
		return models.EscalationNone, err
	}
	return entered, nil
}

func (s *EscalationService) alertAdmins(ctx context.Context, g models.GrievanceDetail, level int, admins []models.User) {
	recipients := make([]string, 0, len(admins)+1)
	for _, admin := range admins {
		if admin.Email != "" {
			recipients = append(recipients, admin.Email)
		}
	}
	if s.cfg.AdminEmail != "" {
		recipients = append(recipients, s.cfg.AdminEmail)
	}
	if len(recipients) > 0 && s.email != nil {
		accepted := s.email.Dispatch(ctx, mailer.Message{
			To:      recipients,
			Subject: escalationSubject(level),
			Body:    escalationBody(g, level),
		})
		if !accepted {
			s.logger.Warn("escalation email not accepted",
				zap.String("grievance_id", g.ID), zap.Int("level", level), zap.Int("recipients", len(recipients)))
		}
	}

	grievanceID := g.ID
	title := fmt.Sprintf("Escalation Level %d", level)
	for _, admin := range admins {
		res := s.notifier.Notify(ctx, admin.ID, title,
			fmt.Sprintf("Grievance '%s' is overdue and needs attention.", g.Title), &grievanceID)
		logUndelivered(s.logger, res, title, zap.String("grievance_id", g.ID), zap.String("user_id", admin.ID))
	}
}

func escalationSubject(level int) string {
	if level >= models.EscalationLevel2 {
		return "CRITICAL: Grievance Escalation (Level 2)"
	}
	return "Grievance Overdue (Level 1)"
}

func escalationBody(g models.GrievanceDetail, level int) string {
	category := "N/A"
	if g.CategoryName != nil && *g.CategoryName != "" {
		category = *g.CategoryName
	}
	return fmt.Sprintf("Grievance Escalation Level %d\n\nTitle: %s\nUser: %s\nCategory: %s\nDue Date: %s\n\nPlease take immediate action.",
		level, g.Title, g.OwnerUsername, category, g.DueDate.Format(time.RFC1123))
}

// Start runs Sweep every Interval until ctx is cancelled.
func (s *EscalationService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case tick := <-ticker.C:
				if _, err := s.Sweep(ctx, tick); err != nil {
					if errors.Is(err, appErrors.ErrLockNotAcquired) {
						s.logger.Debug("escalation sweep skipped: held by another instance")
						continue
					}
					s.logger.Sugar().Warnw("escalation sweep failed", "error", err)
				}
			}
		}
	}()
}
