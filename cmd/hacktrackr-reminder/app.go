package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/hacktrackr-reminder/internal/repository"
	"github.com/noah-isme/hacktrackr-reminder/internal/service"
	"github.com/noah-isme/hacktrackr-reminder/pkg/cache"
	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
	"github.com/noah-isme/hacktrackr-reminder/pkg/database"
	"github.com/noah-isme/hacktrackr-reminder/pkg/logger"
	"github.com/noah-isme/hacktrackr-reminder/pkg/mailer"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	db        *sqlx.DB
	lease     *repository.LeaseRepository
	quizzes   *repository.QuizRepository
	events    *repository.EventRepository
	metrics   *service.MetricsService
	evaluator *service.ReminderEvaluator
	reminders *service.ReminderService
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		return nil, err
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	lease := repository.NewLeaseRepository(redisClient, cfg.Redis.LeaseTTL, logr)

	a := &app{
		cfg:     cfg,
		logger:  logr,
		db:      db,
		lease:   lease,
		quizzes: repository.NewQuizRepository(db),
		events:  repository.NewEventRepository(db),
		metrics: service.NewMetricsService(),
	}
	a.evaluator = service.NewReminderEvaluator(cfg.Reminder)

	params := service.ReminderServiceParams{
		Quizzes:   a.quizzes,
		Events:    a.events,
		Sender:    mailer.New(cfg.Mail, logr),
		Evaluator: a.evaluator,
		Metrics:   a.metrics,
		Logger:    logr,
		Config: service.ReminderServiceConfig{
			QuizQueryWindow: cfg.Reminder.QuizQueryWindow,
			Concurrency:     cfg.Scheduler.Concurrency,
			ItemTimeout:     cfg.Scheduler.ItemTimeout,
		},
	}
	if redisClient != nil {
		params.Lease = lease
	}
	a.reminders = service.NewReminderService(params)

	logr.Sugar().Infow("store ready", "driver", cfg.Database.Driver, "redis_lease", redisClient != nil)
	return a, nil
}

func (a *app) Close() {
	if err := a.lease.Close(); err != nil {
		a.logger.Sugar().Warnw("failed to close redis", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Sugar().Warnw("failed to close store", "error", err)
	}
	_ = a.logger.Sync()
}
