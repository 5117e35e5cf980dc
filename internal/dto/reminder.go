package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	"github.com/noah-isme/hacktrackr-reminder/pkg/jobs"
)

// KindReport counts what happened to one obligation kind during a sweep.
type KindReport struct {
	Candidates int    `json:"candidates"`
	Due        int    `json:"due"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Stale      int    `json:"stale"`
	StoreError string `json:"storeError,omitempty"`
}

// TickReport summarises one scheduler sweep.
type TickReport struct {
	Now        time.Time  `json:"now"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt time.Time  `json:"finishedAt"`
	DurationMs int64      `json:"durationMs"`
	Skipped    bool       `json:"skipped"`
	SkipReason string     `json:"skipReason,omitempty"`
	Quizzes    KindReport `json:"quizzes"`
	Deadlines  KindReport `json:"deadlines"`
}

// Sent is the number of notifications delivered in the sweep.
func (r TickReport) Sent() int {
	return r.Quizzes.Sent + r.Deadlines.Sent
}

// Failed is the number of per-item failures in the sweep.
func (r TickReport) Failed() int {
	return r.Quizzes.Failed + r.Deadlines.Failed
}

// MetricsSnapshot is the JSON view of the scheduler counters.
type MetricsSnapshot struct {
	TicksTotal               uint64    `json:"ticksTotal"`
	TicksSkipped             uint64    `json:"ticksSkipped"`
	NotificationsSent        uint64    `json:"notificationsSent"`
	NotificationsFailed      uint64    `json:"notificationsFailed"`
	StoreErrors              uint64    `json:"storeErrors"`
	RequestsTotal            uint64    `json:"requestsTotal"`
	AverageRequestDurationMs float64   `json:"averageRequestDurationMs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generatedAt"`
}

// SchedulerStatus is returned by the scheduler status endpoint.
type SchedulerStatus struct {
	Enabled    bool            `json:"enabled"`
	Schedule   string          `json:"schedule"`
	Runner     jobs.State      `json:"runner"`
	LastReport *TickReport     `json:"lastReport,omitempty"`
	Metrics    MetricsSnapshot `json:"metrics"`
}

// UpcomingReminders lists notifications that would be sent at GeneratedAt.
type UpcomingReminders struct {
	GeneratedAt   time.Time             `json:"generatedAt"`
	Notifications []models.Notification `json:"notifications"`
}

// ImportPayload is the JSON export of the HackTrackr frontend. Entities stay
// raw so that one malformed entry is rejected on its own.
type ImportPayload struct {
	Hackathons []json.RawMessage `json:"hackathons"`
	Quizzes    []json.RawMessage `json:"quizzes"`
}

// ImportRejection explains why one entity of an import was skipped.
type ImportRejection struct {
	Kind   models.ObligationKind `json:"kind"`
	ID     string                `json:"id"`
	Reason string                `json:"reason"`
}

// ImportResult summarises an import run.
type ImportResult struct {
	EventsImported  int               `json:"eventsImported"`
	QuizzesImported int               `json:"quizzesImported"`
	Rejected        []ImportRejection `json:"rejected,omitempty"`
}
