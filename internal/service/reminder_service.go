package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/hacktrackr-reminder/internal/dto"
	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
	"github.com/noah-isme/hacktrackr-reminder/pkg/mailer"
)

type quizStore interface {
	ListDueQuizzes(ctx context.Context, from, to time.Time) ([]models.Quiz, error)
	MarkQuizNotified(ctx context.Context, quizID string, at time.Time) error
}

type eventStore interface {
	ListWithRecipients(ctx context.Context) ([]models.Event, error)
	MarkDeadlineNotified(ctx context.Context, eventID, deadlineID string, at time.Time) error
}

type tickLease interface {
	Acquire(ctx context.Context) (bool, func(), error)
}

// ReminderServiceConfig tunes the sweep.
type ReminderServiceConfig struct {
	QuizQueryWindow time.Duration
	Concurrency     int
	ItemTimeout     time.Duration
}

// ReminderServiceParams groups constructor dependencies.
type ReminderServiceParams struct {
	Quizzes   quizStore
	Events    eventStore
	Sender    mailer.Sender
	Evaluator *ReminderEvaluator
	Lease     tickLease
	Metrics   *MetricsService
	Logger    *zap.Logger
	Config    ReminderServiceConfig
	Now       func() time.Time
}

// ReminderService runs reminder sweeps: query the store, decide, deliver and
// record the watermark of every delivered notification.
type ReminderService struct {
	quizzes   quizStore
	events    eventStore
	sender    mailer.Sender
	evaluator *ReminderEvaluator
	lease     tickLease
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       ReminderServiceConfig
	now       func() time.Time

	mu   sync.RWMutex
	last *dto.TickReport
}

// NewReminderService constructs a ReminderService with sane defaults.
func NewReminderService(params ReminderServiceParams) *ReminderService {
	cfg := params.Config
	if cfg.QuizQueryWindow <= 0 {
		cfg.QuizQueryWindow = 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sender := params.Sender
	if sender == nil {
		sender = mailer.NoopSender{}
	}
	evaluator := params.Evaluator
	if evaluator == nil {
		evaluator = NewReminderEvaluator(defaultReminderConfig())
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		quizzes:   params.Quizzes,
		events:    params.Events,
		sender:    sender,
		evaluator: evaluator,
		lease:     params.Lease,
		metrics:   params.Metrics,
		logger:    logger,
		cfg:       cfg,
		now:       now,
	}
}

// sweepItem is one candidate obligation of a sweep.
type sweepItem struct {
	kind     models.ObligationKind
	ref      string
	decide   func(now time.Time) (*models.Notification, bool)
	markSent func(ctx context.Context, at time.Time) error
}

type itemOutcome int

// markTimeout bounds the watermark write after a successful delivery.
const markTimeout = 5 * time.Second

const (
	outcomeNotDue itemOutcome = iota
	outcomeSent
	outcomeSentStale
	outcomeSendFailed
	outcomeMarkFailed
)

// Run adapts Sweep to the periodic runner. Store failures are surfaced so the
// runner records them; per-item failures are only reported.
func (s *ReminderService) Run(ctx context.Context) error {
	report := s.Sweep(ctx)
	if report.Quizzes.StoreError != "" || report.Deadlines.StoreError != "" {
		return appErrors.WrapAs(appErrors.ErrStoreUnavailable,
			fmt.Errorf("quizzes: %q, deadlines: %q", report.Quizzes.StoreError, report.Deadlines.StoreError), "")
	}
	return nil
}

// Sweep performs one scheduler tick. It never panics and never returns an
// error: everything that happened is in the report.
func (s *ReminderService) Sweep(ctx context.Context) (report dto.TickReport) {
	now := s.now().UTC()
	report = dto.TickReport{Now: now, StartedAt: time.Now().UTC()}
	sugar := s.logger.Sugar()

	defer func() {
		if rec := recover(); rec != nil {
			sugar.Errorw("reminder sweep panicked", "panic", rec)
			report.SkipReason = fmt.Sprintf("panic: %v", rec)
		}
		report.FinishedAt = time.Now().UTC()
		report.DurationMs = report.FinishedAt.Sub(report.StartedAt).Milliseconds()
		s.metrics.ObserveTick(report)
		s.remember(report)
	}()

	if s.lease != nil {
		acquired, release, err := s.lease.Acquire(ctx)
		if err != nil {
			sugar.Warnw("tick lease unavailable, skipping sweep", "error", err)
			report.Skipped = true
			report.SkipReason = "lease unavailable"
			return report
		}
		if !acquired {
			sugar.Infow("tick lease held by another instance, skipping sweep")
			report.Skipped = true
			report.SkipReason = appErrors.ErrLeaseHeld.Message
			return report
		}
		defer release()
	}

	items := make([]sweepItem, 0)
	items = append(items, s.quizItems(ctx, now, &report.Quizzes)...)
	items = append(items, s.deadlineItems(ctx, &report.Deadlines)...)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)
	for _, item := range items {
		item := item
		g.Go(func() error {
			outcome := s.process(ctx, item, now)
			mu.Lock()
			defer mu.Unlock()
			tally(&report, item.kind, outcome)
			return nil
		})
	}
	_ = g.Wait()

	sugar.Infow("reminder sweep finished",
		"now", now,
		"quiz_candidates", report.Quizzes.Candidates,
		"deadline_candidates", report.Deadlines.Candidates,
		"sent", report.Sent(),
		"failed", report.Failed(),
	)
	return report
}

// Upcoming previews what a sweep would send right now without delivering.
func (s *ReminderService) Upcoming(ctx context.Context) (*dto.UpcomingReminders, error) {
	now := s.now().UTC()
	quizzes, err := s.quizzes.ListDueQuizzes(ctx, now, now.Add(s.cfg.QuizQueryWindow))
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStoreUnavailable, err, "failed to load quizzes")
	}
	events, err := s.events.ListWithRecipients(ctx)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrStoreUnavailable, err, "failed to load events")
	}
	return &dto.UpcomingReminders{
		GeneratedAt:   now,
		Notifications: s.evaluator.Preview(quizzes, events, now),
	}, nil
}

// LastReport returns the report of the most recent sweep, if any.
func (s *ReminderService) LastReport() *dto.TickReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	report := *s.last
	return &report
}

func (s *ReminderService) remember(report dto.TickReport) {
	s.mu.Lock()
	s.last = &report
	s.mu.Unlock()
}

func (s *ReminderService) quizItems(ctx context.Context, now time.Time, kr *dto.KindReport) []sweepItem {
	quizzes, err := s.quizzes.ListDueQuizzes(ctx, now, now.Add(s.cfg.QuizQueryWindow))
	if err != nil {
		s.logger.Sugar().Errorw("failed to load due quizzes", "error", err)
		s.metrics.RecordStoreError("list_quizzes")
		kr.StoreError = err.Error()
		return nil
	}
	kr.Candidates = len(quizzes)

	items := make([]sweepItem, 0, len(quizzes))
	for _, quiz := range quizzes {
		quiz := quiz
		items = append(items, sweepItem{
			kind: models.KindQuiz,
			ref:  quiz.ID,
			decide: func(now time.Time) (*models.Notification, bool) {
				return s.evaluator.DecideQuiz(quiz, now)
			},
			markSent: func(ctx context.Context, at time.Time) error {
				return s.quizzes.MarkQuizNotified(ctx, quiz.ID, at)
			},
		})
	}
	return items
}

func (s *ReminderService) deadlineItems(ctx context.Context, kr *dto.KindReport) []sweepItem {
	events, err := s.events.ListWithRecipients(ctx)
	if err != nil {
		s.logger.Sugar().Errorw("failed to load events", "error", err)
		s.metrics.RecordStoreError("list_events")
		kr.StoreError = err.Error()
		return nil
	}

	items := make([]sweepItem, 0)
	for _, event := range events {
		event := event
		for _, deadline := range event.Deadlines {
			deadline := deadline
			items = append(items, sweepItem{
				kind: models.KindDeadline,
				ref:  event.ID + "/" + deadline.ID,
				decide: func(now time.Time) (*models.Notification, bool) {
					return s.evaluator.DecideDeadline(event, deadline, now)
				},
				markSent: func(ctx context.Context, at time.Time) error {
					return s.events.MarkDeadlineNotified(ctx, event.ID, deadline.ID, at)
				},
			})
		}
	}
	kr.Candidates = len(items)
	return items
}

func (s *ReminderService) process(ctx context.Context, item sweepItem, now time.Time) (outcome itemOutcome) {
	sugar := s.logger.Sugar().With("kind", item.kind, "ref", item.ref)
	defer func() {
		if rec := recover(); rec != nil {
			sugar.Errorw("reminder item panicked", "panic", rec)
			s.metrics.RecordDelivery(item.kind, OutcomeFailed)
			outcome = outcomeSendFailed
		}
	}()

	notification, due := item.decide(now)
	if !due {
		return outcomeNotDue
	}
	s.metrics.RecordDecision(item.kind)

	if err := s.deliver(ctx, notification); err != nil {
		if errors.Is(err, appErrors.ErrTransportUnavailable) {
			sugar.Warnw("notification not delivered, no transport configured")
			s.metrics.RecordDelivery(item.kind, OutcomeUnavailable)
		} else {
			sugar.Errorw("failed to deliver notification", "error", err)
			s.metrics.RecordDelivery(item.kind, OutcomeFailed)
		}
		return outcomeSendFailed
	}
	s.metrics.RecordDelivery(item.kind, OutcomeSent)

	// the mail is out; the watermark must land even if the item budget or the
	// sweep context ran out meanwhile
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	if err := item.markSent(markCtx, now); err != nil {
		if errors.Is(err, appErrors.ErrStaleEntity) {
			sugar.Debugw("obligation changed before it could be marked", "error", err)
			return outcomeSentStale
		}
		sugar.Errorw("notification sent but watermark not persisted", "error", err)
		s.metrics.RecordStoreError("mark_notified")
		return outcomeMarkFailed
	}

	sugar.Infow("reminder sent", "recipient", notification.Recipient, "due_at", notification.DueAt)
	return outcomeSent
}

func (s *ReminderService) deliver(ctx context.Context, n *models.Notification) error {
	if s.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ItemTimeout)
		defer cancel()
	}
	return s.sender.Deliver(ctx, n.Recipient, n.Subject, n.Body)
}

func tally(report *dto.TickReport, kind models.ObligationKind, outcome itemOutcome) {
	kr := &report.Deadlines
	if kind == models.KindQuiz {
		kr = &report.Quizzes
	}
	if outcome == outcomeNotDue {
		return
	}
	kr.Due++
	switch outcome {
	case outcomeSent:
		kr.Sent++
	case outcomeSentStale:
		kr.Sent++
		kr.Stale++
	case outcomeSendFailed:
		kr.Failed++
	case outcomeMarkFailed:
		kr.Sent++
		kr.Failed++
	}
}

func defaultReminderConfig() config.ReminderConfig {
	return config.ReminderConfig{
		QuizLeadTime:       time.Hour,
		QuizQueryWindow:    24 * time.Hour,
		DeadlineWindowDays: 3,
		DeadlineCooldown:   12 * time.Hour,
	}
}
