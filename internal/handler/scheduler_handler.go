package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hacktrackr-reminder/internal/dto"
	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
	"github.com/noah-isme/hacktrackr-reminder/pkg/export"
	"github.com/noah-isme/hacktrackr-reminder/pkg/jobs"
	"github.com/noah-isme/hacktrackr-reminder/pkg/response"
)

type sweepRunner interface {
	RunNow(ctx context.Context) error
	State() jobs.State
}

type reminderService interface {
	LastReport() *dto.TickReport
	Upcoming(ctx context.Context) (*dto.UpcomingReminders, error)
}

type metricsSnapshotter interface {
	Snapshot() dto.MetricsSnapshot
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
}

var upcomingRenderers = map[string]datasetRenderer{
	"csv": export.NewCSVExporter(),
	"pdf": export.NewPDFExporter(),
}

// SchedulerHandlerConfig describes how the scheduler was configured.
type SchedulerHandlerConfig struct {
	Enabled  bool
	Schedule string
}

// SchedulerHandler exposes the reminder scheduler ops endpoints.
type SchedulerHandler struct {
	runner    sweepRunner
	reminders reminderService
	metrics   metricsSnapshotter
	cfg       SchedulerHandlerConfig
}

// NewSchedulerHandler builds a new handler.
func NewSchedulerHandler(runner sweepRunner, reminders reminderService, metrics metricsSnapshotter, cfg SchedulerHandlerConfig) *SchedulerHandler {
	return &SchedulerHandler{runner: runner, reminders: reminders, metrics: metrics, cfg: cfg}
}

// Status godoc
// @Summary Scheduler status
// @Description Runner state, the last sweep report and counters.
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /scheduler/status [get]
func (h *SchedulerHandler) Status(c *gin.Context) {
	status := dto.SchedulerStatus{
		Enabled:    h.cfg.Enabled,
		Schedule:   h.cfg.Schedule,
		Runner:     h.runner.State(),
		LastReport: h.reminders.LastReport(),
	}
	if h.metrics != nil {
		status.Metrics = h.metrics.Snapshot()
	}
	response.OK(c, status)
}

// Sweep godoc
// @Summary Run a reminder sweep now
// @Tags Scheduler
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /scheduler/sweep [post]
func (h *SchedulerHandler) Sweep(c *gin.Context) {
	// deliveries must not be cut short by the client hanging up
	ctx := context.WithoutCancel(c.Request.Context())
	err := h.runner.RunNow(ctx)
	switch {
	case errors.Is(err, jobs.ErrAlreadyRunning):
		response.Error(c, appErrors.ErrTickInProgress)
		return
	case errors.Is(err, jobs.ErrStopped):
		response.Error(c, appErrors.ErrShuttingDown)
		return
	case err != nil && !errors.Is(err, appErrors.ErrStoreUnavailable):
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{}
	if operator := operatorSubject(c); operator != "" {
		meta["triggeredBy"] = operator
	}
	response.JSON(c, http.StatusOK, h.reminders.LastReport(), meta)
}

// Upcoming godoc
// @Summary Preview reminders due now
// @Description Evaluates the store without sending or marking anything.
// @Tags Reminders
// @Produce json
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "json (default), csv or pdf"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /reminders/upcoming [get]
func (h *SchedulerHandler) Upcoming(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	renderer, ok := upcomingRenderers[format]
	if format != "json" && !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be json, csv or pdf"))
		return
	}

	upcoming, err := h.reminders.Upcoming(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	if !ok {
		response.JSON(c, http.StatusOK, upcoming, map[string]interface{}{"count": len(upcoming.Notifications)})
		return
	}

	body, err := renderer.Render(upcomingDataset(upcoming))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("upcoming-reminders-%s.%s", upcoming.GeneratedAt.Format("20060102-1504"), format)
	response.Attachment(c, renderer.ContentType(), filename, body)
}

func upcomingDataset(upcoming *dto.UpcomingReminders) export.Dataset {
	rows := make([][]string, 0, len(upcoming.Notifications))
	for _, n := range upcoming.Notifications {
		days := ""
		if n.Kind == models.KindDeadline {
			days = strconv.Itoa(n.DaysUntil)
		}
		rows = append(rows, []string{
			string(n.Kind),
			n.Recipient,
			n.Subject,
			n.DueAt.UTC().Format(time.RFC3339),
			days,
		})
	}
	return export.Dataset{
		Title: "Upcoming reminders at " + upcoming.GeneratedAt.UTC().Format(time.RFC1123),
		Columns: []export.Column{
			{Header: "Kind", Weight: 1},
			{Header: "Recipient", Weight: 2.5},
			{Header: "Subject", Weight: 5},
			{Header: "Due (UTC)", Weight: 2},
			{Header: "Days", Weight: 0.6},
		},
		Rows: rows,
	}
}
