// Package app assembles repositories and services from configuration. Both the
// HTTP gateway and the operator CLI build on it.
package app

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/grievance-api/internal/repository"
	"github.com/noah-isme/grievance-api/internal/service"
	"github.com/noah-isme/grievance-api/migrations"
	"github.com/noah-isme/grievance-api/pkg/cache"
	"github.com/noah-isme/grievance-api/pkg/config"
	"github.com/noah-isme/grievance-api/pkg/database"
	"github.com/noah-isme/grievance-api/pkg/export"
	"github.com/noah-isme/grievance-api/pkg/mailer"
)

const redisKeyPrefix = "grievance:"

// Options tune how the container is assembled.
type Options struct {
	// InlineEmail delivers mail synchronously instead of through the worker queue.
	InlineEmail bool
	// SkipMigrations disables DB_MIGRATE_ON_BOOT for this process.
	SkipMigrations bool
}

// Repositories groups the data access layer.
type Repositories struct {
	Tx            *repository.TxManager
	Users         *repository.UserRepository
	Categories    *repository.CategoryRepository
	Officers      *repository.OfficerRepository
	Grievances    *repository.GrievanceRepository
	Assignments   *repository.AssignmentRepository
	History       *repository.StatusHistoryRepository
	Feedback      *repository.FeedbackRepository
	Notifications *repository.NotificationRepository
	Dashboard     *repository.DashboardRepository
	Cache         *repository.CacheRepository
	Locks         *repository.LockRepository
}

// Container holds the wired process dependencies.
type Container struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *sqlx.DB
	Redis  *redis.Client

	Repos        Repositories
	Metrics      *service.MetricsService
	Auth         *service.AuthService
	Notification *service.NotificationService
	Email        *service.EmailDispatcher
	Assignment   *service.AssignmentService
	Escalation   *service.EscalationService
	Grievance    *service.GrievanceService
	Dashboard    *service.DashboardService
	Officer      *service.OfficerService
	Export       *service.ExportService
}

// New connects to postgres and redis, optionally migrates, and wires every service.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	if cfg.Database.MigrateOnBoot && !opts.SkipMigrations {
		if err := database.Migrate(ctx, db.DB, migrations.FS, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	c := &Container{Config: cfg, Logger: logger, DB: db, Redis: redisClient}
	c.Repos = Repositories{
		Tx:            repository.NewTxManager(db),
		Users:         repository.NewUserRepository(db),
		Categories:    repository.NewCategoryRepository(db),
		Officers:      repository.NewOfficerRepository(db),
		Grievances:    repository.NewGrievanceRepository(db),
		Assignments:   repository.NewAssignmentRepository(db),
		History:       repository.NewStatusHistoryRepository(db),
		Feedback:      repository.NewFeedbackRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Dashboard:     repository.NewDashboardRepository(db),
		Cache:         repository.NewCacheRepository(redisClient, redisKeyPrefix),
		Locks:         repository.NewLockRepository(redisClient, redisKeyPrefix+"lock:"),
	}
	c.wireServices(opts)
	return c, nil
}

func (c *Container) wireServices(opts Options) {
	cfg := c.Config
	repos := c.Repos
	validate := validator.New()

	c.Metrics = service.NewMetricsService()
	c.Auth = service.NewAuthService(repos.Users, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, c.Logger.Named("auth"))
	c.Notification = service.NewNotificationService(repos.Notifications, c.Metrics, c.Logger.Named("notification"))

	sender := mailer.NewSMTPMailer(cfg.SMTP)
	if opts.InlineEmail {
		c.Email = service.NewInlineEmailDispatcher(sender, c.Metrics, c.Logger.Named("email"))
	} else {
		c.Email = service.NewEmailDispatcher(sender, cfg.Mail, cfg.SMTP.Timeout, c.Metrics, c.Logger.Named("email"))
	}

	c.Assignment = service.NewAssignmentService(repos.Tx, repos.Officers, repos.Assignments, c.Notification,
		service.AssignmentConfig{MaxCapacity: cfg.Assignment.MaxCapacity}, c.Metrics, c.Logger.Named("assignment"))

	c.Escalation = service.NewEscalationService(repos.Tx, repos.Grievances, repos.Users, c.Notification, c.Email, repos.Locks,
		service.EscalationConfig{
			Level1Hours: cfg.Escalation.Level1Hours,
			Level2Hours: cfg.Escalation.Level2Hours,
			AdminEmail:  cfg.Escalation.AdminEmail,
			Interval:    cfg.Escalation.Interval,
			LockTTL:     cfg.Escalation.LockTTL,
		}, c.Metrics, c.Logger.Named("escalation"))

	cacheSvc := service.NewCacheService(repos.Cache, c.Metrics, cfg.Dashboard.CacheTTL, c.Logger.Named("cache"),
		cfg.Dashboard.CacheEnabled && c.Redis != nil)
	c.Dashboard = service.NewDashboardService(service.DashboardServiceParams{
		Repo:       repos.Dashboard,
		Grievances: repos.Grievances,
		Officers:   repos.Officers,
		Cache:      cacheSvc,
		Logger:     c.Logger.Named("dashboard"),
		Config:     service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	c.Grievance = service.NewGrievanceService(service.GrievanceServiceDeps{
		Tx:          repos.Tx,
		Grievances:  repos.Grievances,
		History:     repos.History,
		Categories:  repos.Categories,
		Officers:    repos.Officers,
		Assignments: repos.Assignments,
		Feedback:    repos.Feedback,
		Assigner:    c.Assignment,
		Notifier:    c.Notification,
		Dashboard:   c.Dashboard,
	}, service.SLAConfig{Window: cfg.SLA.Window, WarningWindow: cfg.SLA.WarningWindow}, validate, c.Logger.Named("grievance"))

	c.Officer = service.NewOfficerService(repos.Tx, repos.Officers, c.Assignment, c.Logger.Named("officer"))
	c.Export = service.NewExportService(repos.Grievances, export.NewCSVExporter(), export.NewPDFExporter(),
		cfg.SLA.WarningWindow, validate, c.Logger.Named("export"))
}

// Close releases the database and redis connections.
func (c *Container) Close() error {
	var firstErr error
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RedisPinger adapts a redis client to the readiness probe. A nil client is
// reported healthy since redis is optional.
type RedisPinger struct {
	Client *redis.Client
}

// PingContext pings redis.
func (p RedisPinger) PingContext(ctx context.Context) error {
	if p.Client == nil {
		return nil
	}
	return p.Client.Ping(ctx).Err()
}
