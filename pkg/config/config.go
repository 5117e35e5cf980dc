package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers understood by pkg/database.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Mail drivers understood by pkg/mailer.
const (
	MailDriverSMTP     = "smtp"
	MailDriverSendGrid = "sendgrid"
	MailDriverNone     = "none"
)

type Config struct {
	Env       string `validate:"oneof=development production"`
	Port      int    `validate:"min=1,max=65535"`
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Reminder  ReminderConfig
	Mail      MailConfig
}

type DatabaseConfig struct {
	Driver       string `validate:"oneof=postgres sqlite"`
	URL          string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	Path         string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	URL      string
	Host     string
	Port     int
	Password string
	DB       int
	LeaseTTL time.Duration `validate:"gte=3s"`
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig controls the periodic reminder sweep.
type SchedulerConfig struct {
	Enabled     bool
	Schedule    string `validate:"required"`
	RunOnStart  bool
	Concurrency int `validate:"min=1,max=64"`
	ItemTimeout time.Duration
}

// ReminderConfig holds the evaluation windows.
type ReminderConfig struct {
	QuizLeadTime       time.Duration `validate:"gt=0"`
	QuizQueryWindow    time.Duration `validate:"gtefield=QuizLeadTime"`
	DeadlineWindowDays int           `validate:"min=1"`
	DeadlineCooldown   time.Duration `validate:"gt=0"`
	TimeZone           string
}

// MailConfig selects and configures the notification transport.
type MailConfig struct {
	Driver         string `validate:"omitempty,oneof=smtp sendgrid none"`
	From           string `validate:"omitempty,email"`
	FromName       string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string
	SendGridAPIKey string
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		URL:          v.GetString("DATABASE_URL"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		Path:         v.GetString("DB_PATH"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		URL:      v.GetString("REDIS_URL"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		LeaseTTL: parseDuration(v.GetString("REDIS_LEASE_TTL"), 10*time.Minute),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		TokenTTL: parseDuration(v.GetString("JWT_TOKEN_TTL"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:     v.GetBool("ENABLE_SCHEDULER"),
		Schedule:    v.GetString("SCHEDULER_SCHEDULE"),
		RunOnStart:  v.GetBool("SCHEDULER_RUN_ON_START"),
		Concurrency: v.GetInt("SCHEDULER_CONCURRENCY"),
		ItemTimeout: parseDuration(v.GetString("SCHEDULER_ITEM_TIMEOUT"), 30*time.Second),
	}

	cfg.Reminder = ReminderConfig{
		QuizLeadTime:       parseDuration(v.GetString("REMINDER_QUIZ_LEAD_TIME"), time.Hour),
		QuizQueryWindow:    parseDuration(v.GetString("REMINDER_QUIZ_QUERY_WINDOW"), 24*time.Hour),
		DeadlineWindowDays: v.GetInt("REMINDER_DEADLINE_WINDOW_DAYS"),
		DeadlineCooldown:   parseDuration(v.GetString("REMINDER_DEADLINE_COOLDOWN"), 12*time.Hour),
		TimeZone:           v.GetString("REMINDER_TIMEZONE"),
	}

	cfg.Mail = MailConfig{
		Driver:         strings.ToLower(v.GetString("MAIL_DRIVER")),
		From:           v.GetString("MAIL_FROM"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		SMTPHost:       v.GetString("SMTP_HOST"),
		SMTPPort:       v.GetInt("SMTP_PORT"),
		SMTPUser:       v.GetString("SMTP_USER"),
		SMTPPassword:   v.GetString("SMTP_PASSWORD"),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
	}
	if cfg.Mail.From == "" {
		cfg.Mail.From = cfg.Mail.SMTPUser
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct-level constraints on a loaded configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Reminder.TimeZone != "" {
		if _, err := time.LoadLocation(c.Reminder.TimeZone); err != nil {
			return fmt.Errorf("invalid configuration: REMINDER_TIMEZONE: %w", err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hacktrackr")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_PATH", "./hacktrackr.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_LEASE_TTL", "10m")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_TOKEN_TTL", "24h")
	v.SetDefault("ALLOWED_ORIGINS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_SCHEDULE", "@every 15m")
	v.SetDefault("SCHEDULER_RUN_ON_START", true)
	v.SetDefault("SCHEDULER_CONCURRENCY", 1)
	v.SetDefault("SCHEDULER_ITEM_TIMEOUT", "30s")

	v.SetDefault("REMINDER_QUIZ_LEAD_TIME", "1h")
	v.SetDefault("REMINDER_QUIZ_QUERY_WINDOW", "24h")
	v.SetDefault("REMINDER_DEADLINE_WINDOW_DAYS", 3)
	v.SetDefault("REMINDER_DEADLINE_COOLDOWN", "12h")
	v.SetDefault("REMINDER_TIMEZONE", "UTC")

	v.SetDefault("MAIL_DRIVER", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_FROM_NAME", "HackTrackr")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SENDGRID_API_KEY", "")
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
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// isMissingFile reports the os-level error viper returns when the explicit
// .env path does not exist.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
