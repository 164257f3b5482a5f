package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	SMTP       SMTPConfig
	Mail       MailQueueConfig
	Assignment AssignmentConfig
	Escalation EscalationConfig
	SLA        SLAConfig
	Dashboard  DashboardConfig
	RateLimit  RateLimitConfig
}

type DatabaseConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	MigrateOnBoot bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the verification settings for tokens minted by the account service.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig describes the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// MailQueueConfig sizes the in-process email delivery queue.
type MailQueueConfig struct {
	Workers    int
	BufferSize int
	Retries    int
	RetryDelay time.Duration
}

// AssignmentConfig governs officer routing.
type AssignmentConfig struct {
	MaxCapacity int
}

// EscalationConfig governs the overdue sweep.
type EscalationConfig struct {
	Enabled     bool
	Interval    time.Duration
	Level1Hours float64
	Level2Hours float64
	AdminEmail  string
	LockTTL     time.Duration
}

// SLAConfig defines the due-date window stamped on new grievances.
type SLAConfig struct {
	Window        time.Duration
	WarningWindow time.Duration
}

// DashboardConfig governs public dashboard caching.
type DashboardConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// RateLimitConfig throttles grievance submissions per user.
type RateLimitConfig struct {
	SubmitPerSecond float64
	SubmitBurst     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrateOnBoot: v.GetBool("DB_MIGRATE_ON_BOOT"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
		Timeout:  parseDuration(v.GetString("SMTP_TIMEOUT"), 10*time.Second),
	}

	cfg.Mail = MailQueueConfig{
		Workers:    v.GetInt("MAIL_WORKERS"),
		BufferSize: v.GetInt("MAIL_BUFFER_SIZE"),
		Retries:    v.GetInt("MAIL_RETRIES"),
		RetryDelay: parseDuration(v.GetString("MAIL_RETRY_DELAY"), 5*time.Second),
	}

	maxCapacity := v.GetInt("ASSIGNMENT_MAX_CAPACITY")
	if maxCapacity <= 0 {
		maxCapacity = 10
	}
	cfg.Assignment = AssignmentConfig{MaxCapacity: maxCapacity}

	cfg.Escalation = EscalationConfig{
		Enabled:     v.GetBool("ENABLE_ESCALATION"),
		Interval:    parseDuration(v.GetString("ESCALATION_INTERVAL"), 5*time.Minute),
		Level1Hours: v.GetFloat64("ESCALATION_LEVEL1_HOURS"),
		Level2Hours: v.GetFloat64("ESCALATION_LEVEL2_HOURS"),
		AdminEmail:  strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		LockTTL:     parseDuration(v.GetString("ESCALATION_LOCK_TTL"), 2*time.Minute),
	}

	cfg.SLA = SLAConfig{
		Window:        parseDuration(v.GetString("SLA_WINDOW"), 7*24*time.Hour),
		WarningWindow: parseDuration(v.GetString("SLA_WARNING_WINDOW"), 48*time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		CacheEnabled: v.GetBool("ENABLE_DASHBOARD_CACHE"),
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.RateLimit = RateLimitConfig{
		SubmitPerSecond: v.GetFloat64("SUBMIT_RATE_PER_SECOND"),
		SubmitBurst:     v.GetInt("SUBMIT_RATE_BURST"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "grievance_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE_ON_BOOT", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "Grievance Portal <no-reply@localhost>")
	v.SetDefault("SMTP_TIMEOUT", "10s")

	v.SetDefault("MAIL_WORKERS", 2)
	v.SetDefault("MAIL_BUFFER_SIZE", 64)
	v.SetDefault("MAIL_RETRIES", 2)
	v.SetDefault("MAIL_RETRY_DELAY", "5s")

	v.SetDefault("ASSIGNMENT_MAX_CAPACITY", 10)

	v.SetDefault("ENABLE_ESCALATION", true)
	v.SetDefault("ESCALATION_INTERVAL", "5m")
	v.SetDefault("ESCALATION_LEVEL1_HOURS", 0)
	v.SetDefault("ESCALATION_LEVEL2_HOURS", 48)
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ESCALATION_LOCK_TTL", "2m")

	v.SetDefault("SLA_WINDOW", "168h")
	v.SetDefault("SLA_WARNING_WINDOW", "48h")

	v.SetDefault("ENABLE_DASHBOARD_CACHE", false)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("SUBMIT_RATE_PER_SECOND", 0.2)
	v.SetDefault("SUBMIT_RATE_BURST", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
