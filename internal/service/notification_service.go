package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/dto"
	"github.com/noah-isme/grievance-api/internal/models"
	appErrors "github.com/noah-isme/grievance-api/pkg/errors"
)

const notificationSummarySize = 5

// NotifyOutcome tags the result of Notify.
type NotifyOutcome string

const (
	NotifyDelivered NotifyOutcome = "delivered"
	NotifySkipped   NotifyOutcome = "skipped"
	NotifyFailed    NotifyOutcome = "failed"
)

// NotifyResult is what Notify produced. Err is set only for NotifyFailed.
type NotifyResult struct {
	Outcome      NotifyOutcome
	Notification *models.Notification
	Err          error
}

// Delivered reports whether the notification was stored.
func (r NotifyResult) Delivered() bool {
	return r.Outcome == NotifyDelivered
}

// logUndelivered warns about a result that was not stored and reports whether it
// did so. The grievance workflow that triggered it carries on either way.
func logUndelivered(logger *zap.Logger, res NotifyResult, title string, fields ...zap.Field) bool {
	if res.Delivered() {
		return false
	}
	fields = append(fields, zap.String("title", title), zap.String("outcome", string(res.Outcome)))
	if res.Err != nil {
		fields = append(fields, zap.Error(res.Err))
	}
	logger.Warn("notification not delivered", fields...)
	return true
}

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (bool, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// notifier is the sink used by the routing and escalation services.
type notifier interface {
	Notify(ctx context.Context, userID, title, message string, grievanceID *string) NotifyResult
}

// NotificationService records in-app notifications.
type NotificationService struct {
	repo    notificationStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationStore, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, metrics: metrics, logger: logger, now: time.Now}
}

// Notify stores a notification for userID. It never fails the caller: a missing
// user is skipped and a storage error is reported in the result.
func (s *NotificationService) Notify(ctx context.Context, userID, title, message string, grievanceID *string) NotifyResult {
	if strings.TrimSpace(userID) == "" {
		s.logger.Warn("notification skipped: no recipient", zap.String("title", title))
		s.metrics.RecordNotification(NotifySkipped)
		return NotifyResult{Outcome: NotifySkipped}
	}

	n := &models.Notification{
		ID:          uuid.NewString(),
		UserID:      userID,
		GrievanceID: grievanceID,
		Title:       title,
		Message:     message,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("notification failed", zap.String("user_id", userID), zap.String("title", title), zap.Error(err))
		s.metrics.RecordNotification(NotifyFailed)
		return NotifyResult{Outcome: NotifyFailed, Err: err}
	}

	s.metrics.RecordNotification(NotifyDelivered)
	return NotifyResult{Outcome: NotifyDelivered, Notification: n}
}

// List returns all of the caller's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, claims *models.JWTClaims) ([]models.Notification, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.repo.ListByUser(ctx, claims.UserID, 0)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, nil
}

// MarkRead flags one of the caller's notifications and returns the new unread count.
func (s *NotificationService) MarkRead(ctx context.Context, claims *models.JWTClaims, id string) (*dto.MarkReadResponse, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !validID(id) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	found, err := s.repo.MarkRead(ctx, id, claims.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to mark notification")
	}
	if !found {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	unread, err := s.repo.CountUnread(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count notifications")
	}
	return &dto.MarkReadResponse{UnreadCount: unread}, nil
}

// Summary returns the latest notifications and the unread badge count.
func (s *NotificationService) Summary(ctx context.Context, claims *models.JWTClaims) (*dto.NotificationSummary, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	latest, err := s.repo.ListByUser(ctx, claims.UserID, notificationSummarySize)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count notifications")
	}
	if latest == nil {
		latest = []models.Notification{}
	}
	return &dto.NotificationSummary{Latest: latest, UnreadCount: unread}, nil
}
