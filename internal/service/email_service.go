package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/jobs"
	"github.com/noah-isme/grievance-api/pkg/mailer"
)

const emailJobKind = "email"

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// emailer is the best-effort outbound channel used by the escalation sweep.
type emailer interface {
	Dispatch(ctx context.Context, msg mailer.Message) bool
}

// EmailDispatcher hands emails to a background queue so SMTP latency and failures
// never reach business logic. Without a queue it sends inline.
type EmailDispatcher struct {
	sender  mailSender
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEmailDispatcher builds a queue-backed dispatcher. Call Start before use.
func NewEmailDispatcher(sender mailSender, cfg config.MailQueueConfig, sendTimeout time.Duration, metrics *MetricsService, logger *zap.Logger) *EmailDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &EmailDispatcher{sender: sender, metrics: metrics, logger: logger}
	d.queue = jobs.NewQueue("email", d.handle, jobs.Config{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Timeout:    sendTimeout,
		Logger:     logger,
	})
	return d
}

// NewInlineEmailDispatcher sends synchronously; used by one-shot commands.
func NewInlineEmailDispatcher(sender mailSender, metrics *MetricsService, logger *zap.Logger) *EmailDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailDispatcher{sender: sender, metrics: metrics, logger: logger}
}

// Start launches the delivery workers.
func (d *EmailDispatcher) Start(ctx context.Context) {
	if d.queue != nil {
		d.queue.Start(ctx)
	}
}

// Stop waits for in-flight deliveries.
func (d *EmailDispatcher) Stop() {
	if d.queue != nil {
		d.queue.Stop()
	}
}

// Dispatch de-duplicates recipients and submits msg. It reports whether the email
// was accepted for delivery; an empty recipient list is not an error.
func (d *EmailDispatcher) Dispatch(ctx context.Context, msg mailer.Message) bool {
	msg.To = uniqueRecipients(msg.To)
	if len(msg.To) == 0 {
		d.metrics.RecordEmail("skipped")
		return false
	}

	if d.queue == nil {
		if err := d.handle(ctx, jobs.Job{ID: uuid.NewString(), Kind: emailJobKind, Payload: msg}); err != nil {
			return false
		}
		return true
	}

	if err := d.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Kind: emailJobKind, Payload: msg}); err != nil {
		d.logger.Warn("email dropped", zap.String("subject", msg.Subject), zap.Error(err))
		d.metrics.RecordEmail("dropped")
		return false
	}
	return true
}

func (d *EmailDispatcher) handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(mailer.Message)
	if !ok {
		d.logger.Error("unexpected email payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := d.sender.Send(ctx, msg); err != nil {
		d.logger.Warn("email delivery failed", zap.String("subject", msg.Subject), zap.Int("attempt", job.Attempt), zap.Error(err))
		d.metrics.RecordEmail("failed")
		return err
	}
	d.metrics.RecordEmail("sent")
	return nil
}

func uniqueRecipients(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, addr := range in {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}
