package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "@every 15m", cfg.Scheduler.Schedule)
	assert.Equal(t, 1, cfg.Scheduler.Concurrency)
	assert.Equal(t, time.Hour, cfg.Reminder.QuizLeadTime)
	assert.Equal(t, 24*time.Hour, cfg.Reminder.QuizQueryWindow)
	assert.Equal(t, 3, cfg.Reminder.DeadlineWindowDays)
	assert.Equal(t, 12*time.Hour, cfg.Reminder.DeadlineCooldown)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("SCHEDULER_SCHEDULE", "0 * * * *")
	t.Setenv("REMINDER_DEADLINE_COOLDOWN", "6h")
	t.Setenv("SMTP_USER", "bot@example.com")
	t.Setenv("REDIS_URL", "redis://cache:6379/0")
	t.Setenv("ALLOWED_ORIGINS", "https://hacktrackr.app, http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "0 * * * *", cfg.Scheduler.Schedule)
	assert.Equal(t, 6*time.Hour, cfg.Reminder.DeadlineCooldown)
	assert.Equal(t, "bot@example.com", cfg.Mail.From)
	assert.Equal(t, "redis://cache:6379/0", cfg.Redis.URL)
	assert.Equal(t, []string{"https://hacktrackr.app", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "mongodb")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsZeroDeadlineWindow(t *testing.T) {
	t.Setenv("REMINDER_DEADLINE_WINDOW_DAYS", "0")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateRejectsQueryWindowShorterThanLead(t *testing.T) {
	t.Setenv("REMINDER_QUIZ_LEAD_TIME", "2h")
	t.Setenv("REMINDER_QUIZ_QUERY_WINDOW", "1h")
	_, err := Load()
	require.Error(t, err)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 90*time.Second, parseDuration("90s", time.Minute))
}
