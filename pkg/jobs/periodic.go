package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned by RunNow while a previous run is in flight.
var ErrAlreadyRunning = errors.New("periodic task already running")

// ErrStopped is returned by RunNow once Stop has been called.
var ErrStopped = errors.New("periodic task stopped")

// Task is the unit of work executed on every tick.
type Task func(ctx context.Context) error

// ParseSchedule accepts standard five-field cron expressions as well as
// descriptors such as "@hourly" and "@every 15m".
func ParseSchedule(expr string) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}
	return schedule, nil
}

// PeriodicConfig configures a Periodic runner.
type PeriodicConfig struct {
	Schedule   cron.Schedule
	RunOnStart bool
	Logger     *zap.Logger
}

// State is a snapshot of the runner used by status endpoints.
type State struct {
	Running        bool       `json:"running"`
	Runs           int64      `json:"runs"`
	LastStartedAt  *time.Time `json:"lastStartedAt,omitempty"`
	LastFinishedAt *time.Time `json:"lastFinishedAt,omitempty"`
	LastError      string     `json:"lastError,omitempty"`
	NextRunAt      *time.Time `json:"nextRunAt,omitempty"`
}

// Periodic runs a Task on a cron schedule. Runs never overlap: a tick that
// fires while the previous run is still going is skipped.
type Periodic struct {
	name       string
	task       Task
	schedule   cron.Schedule
	runOnStart bool
	logger     *zap.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	stopping bool
	running  bool
	inflight sync.WaitGroup
	state    State
}

// NewPeriodic builds a runner for task.
func NewPeriodic(name string, task Task, cfg PeriodicConfig) *Periodic {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Periodic{
		name:       name,
		task:       task,
		schedule:   cfg.Schedule,
		runOnStart: cfg.RunOnStart,
		logger:     cfg.Logger,
	}
}

// Start launches the schedule loop. Safe to call once.
func (p *Periodic) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopping || p.schedule == nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	go p.loop(loopCtx)
	p.logger.Sugar().Infow("periodic task started", "task", p.name, "run_on_start", p.runOnStart)
}

// Stop halts the schedule and waits for an in-flight run to finish. Later
// RunNow calls return ErrStopped.
func (p *Periodic) Stop() {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return
	}
	p.stopping = true
	var done chan struct{}
	if p.started {
		p.cancel()
		done = p.done
		p.started = false
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	// no Add can follow: RunNow checks stopping under the same lock
	p.inflight.Wait()
	p.logger.Sugar().Infow("periodic task stopped", "task", p.name)
}

// RunNow executes the task immediately on the caller's goroutine.
func (p *Periodic) RunNow(ctx context.Context) error {
	p.mu.Lock()
	if p.stopping {
		p.mu.Unlock()
		return ErrStopped
	}
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyRunning
	}
	p.running = true
	started := time.Now().UTC()
	p.state.LastStartedAt = &started
	p.inflight.Add(1)
	p.mu.Unlock()

	err := p.execute(ctx)

	p.mu.Lock()
	finished := time.Now().UTC()
	p.running = false
	p.state.Runs++
	p.state.LastFinishedAt = &finished
	p.state.LastError = ""
	if err != nil {
		p.state.LastError = err.Error()
	}
	p.mu.Unlock()
	p.inflight.Done()

	return err
}

// State returns a copy of the runner state.
func (p *Periodic) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := p.state
	state.Running = p.running
	return state
}

func (p *Periodic) execute(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("periodic task %s panicked: %v", p.name, rec)
			p.logger.Error("periodic task panicked", zap.String("task", p.name), zap.Any("panic", rec))
		}
	}()
	return p.task(ctx)
}

func (p *Periodic) loop(ctx context.Context) {
	defer close(p.done)

	if p.runOnStart {
		p.fire(ctx)
	}

	for {
		next := p.schedule.Next(time.Now())
		p.mu.Lock()
		nextUTC := next.UTC()
		p.state.NextRunAt = &nextUTC
		p.mu.Unlock()

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			p.fire(ctx)
		}
	}
}

func (p *Periodic) fire(ctx context.Context) {
	// a run that has begun completes even when shutdown is requested mid-way
	err := p.RunNow(context.WithoutCancel(ctx))
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		p.logger.Sugar().Warnw("previous run still in progress, tick skipped", "task", p.name)
	case errors.Is(err, ErrStopped):
		return
	case err != nil:
		p.logger.Sugar().Errorw("periodic task failed", "task", p.name, "error", err)
	}
}
