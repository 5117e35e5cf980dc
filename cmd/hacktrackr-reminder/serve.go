package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/hacktrackr-reminder/api/swagger"
	"github.com/noah-isme/hacktrackr-reminder/internal/handler"
	"github.com/noah-isme/hacktrackr-reminder/internal/middleware"
	"github.com/noah-isme/hacktrackr-reminder/internal/service"
	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
	"github.com/noah-isme/hacktrackr-reminder/pkg/jobs"
	"github.com/noah-isme/hacktrackr-reminder/pkg/logger"
	corsmiddleware "github.com/noah-isme/hacktrackr-reminder/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/hacktrackr-reminder/pkg/middleware/requestid"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic reminder scheduler and the ops API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg
	sugar := a.logger.Sugar()

	schedule, err := jobs.ParseSchedule(cfg.Scheduler.Schedule)
	if err != nil {
		return err
	}
	runner := jobs.NewPeriodic("reminder-sweep", a.reminders.Run, jobs.PeriodicConfig{
		Schedule:   schedule,
		RunOnStart: cfg.Scheduler.RunOnStart,
		Logger:     a.logger,
	})
	if cfg.Scheduler.Enabled {
		runner.Start(ctx)
	} else {
		sugar.Warnw("scheduler disabled, sweeps only run on demand")
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(a.logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(a.metrics))

	var leaseCheck interface {
		Ping(ctx context.Context) error
	}
	if cfg.Redis.Enabled {
		leaseCheck = a.lease
	}
	metricsHandler := handler.NewMetricsHandler(a.metrics, a.db, leaseCheck)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	tokens := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	schedulerHandler := handler.NewSchedulerHandler(runner, a.reminders, a.metrics, handler.SchedulerHandlerConfig{
		Enabled:  cfg.Scheduler.Enabled,
		Schedule: cfg.Scheduler.Schedule,
	})
	api := r.Group(cfg.APIPrefix, middleware.JWT(tokens))
	api.GET("/scheduler/status", schedulerHandler.Status)
	api.POST("/scheduler/sweep", middleware.Audit(a.logger, "scheduler.sweep"), schedulerHandler.Sweep)
	api.GET("/reminders/upcoming", schedulerHandler.Upcoming)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		sugar.Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "schedule", cfg.Scheduler.Schedule)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			sugar.Errorw("server failed", "error", err)
		}
	}

	sugar.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("http shutdown incomplete", "error", err)
	}
	// waits for an in-flight sweep so no delivery is left unmarked
	runner.Stop()
	return nil
}
