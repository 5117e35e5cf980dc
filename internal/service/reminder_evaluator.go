package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	"github.com/noah-isme/hacktrackr-reminder/pkg/config"
)

const messageTimeLayout = "Mon, 02 Jan 2006 15:04 MST"

// ReminderEvaluator decides whether an obligation warrants a notification at
// a given instant. It has no side effects and never reads the clock.
type ReminderEvaluator struct {
	quizLeadTime       time.Duration
	deadlineWindowDays int
	deadlineCooldown   time.Duration
	location           *time.Location
}

// NewReminderEvaluator builds an evaluator from reminder configuration. Unset
// values fall back to 1h lead time, a 3 day deadline window and 12h cooldown.
// A deadline still in the future is always at least 1 day out, so a window
// below 1 could never fire.
func NewReminderEvaluator(cfg config.ReminderConfig) *ReminderEvaluator {
	if cfg.QuizLeadTime <= 0 {
		cfg.QuizLeadTime = time.Hour
	}
	if cfg.DeadlineCooldown <= 0 {
		cfg.DeadlineCooldown = 12 * time.Hour
	}
	if cfg.DeadlineWindowDays <= 0 {
		cfg.DeadlineWindowDays = 3
	}
	loc := time.UTC
	if cfg.TimeZone != "" {
		if l, err := time.LoadLocation(cfg.TimeZone); err == nil {
			loc = l
		}
	}
	return &ReminderEvaluator{
		quizLeadTime:       cfg.QuizLeadTime,
		deadlineWindowDays: cfg.DeadlineWindowDays,
		deadlineCooldown:   cfg.DeadlineCooldown,
		location:           loc,
	}
}

// Location is the zone absolute times are rendered in.
func (e *ReminderEvaluator) Location() *time.Location {
	return e.location
}

// DecideQuiz returns the notification for quiz when it is inside its single
// lead window and has not been notified for that window yet.
func (e *ReminderEvaluator) DecideQuiz(quiz models.Quiz, now time.Time) (*models.Notification, bool) {
	if !quiz.ReminderEnabled || quiz.Completed || !quiz.HasRecipient() {
		return nil, false
	}

	until := quiz.TriggerAt.Sub(now)
	if until <= 0 || until > e.quizLeadTime {
		return nil, false
	}

	// one reminder per trigger time; a rescheduled quiz opens a fresh window
	windowStart := quiz.TriggerAt.Add(-e.quizLeadTime)
	if quiz.LastNotifiedAt != nil && !quiz.LastNotifiedAt.Before(windowStart) {
		return nil, false
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Your quiz %q", quiz.QuizName)
	if quiz.Topic != "" {
		fmt.Fprintf(&body, " on topic %q", quiz.Topic)
	}
	fmt.Fprintf(&body, " is scheduled at %s.\n", e.formatTime(quiz.TriggerAt))
	if quiz.Platform != "" {
		fmt.Fprintf(&body, "Platform: %s\n", quiz.Platform)
	}
	if quiz.Notes != "" {
		fmt.Fprintf(&body, "Notes: %s\n", quiz.Notes)
	}

	return &models.Notification{
		Kind:      models.KindQuiz,
		ParentID:  quiz.ID,
		Recipient: quiz.Email,
		Subject:   fmt.Sprintf("Reminder: %s quiz coming up", quiz.QuizName),
		Body:      body.String(),
		DueAt:     quiz.TriggerAt,
	}, true
}

// DecideDeadline returns the notification for one deadline of event when it
// falls within the look-ahead window and its cooldown has elapsed.
func (e *ReminderEvaluator) DecideDeadline(event models.Event, deadline models.Deadline, now time.Time) (*models.Notification, bool) {
	if !deadline.ReminderEnabled || deadline.Completed || !event.HasRecipient() {
		return nil, false
	}

	until := deadline.DueAt.Sub(now)
	if until <= 0 {
		return nil, false
	}
	days := daysUntil(until)
	if days < 0 || days > e.deadlineWindowDays {
		return nil, false
	}

	if deadline.LastNotifiedAt != nil && now.Sub(*deadline.LastNotifiedAt) < e.deadlineCooldown {
		return nil, false
	}

	label := deadline.Type.Label()
	remaining := pluralDays(days)

	var body strings.Builder
	fmt.Fprintf(&body, "%s deadline for %s is due at %s.\n", label, event.Title, e.formatTime(deadline.DueAt))
	fmt.Fprintf(&body, "%s remaining.\n", remaining)
	if event.RegistrationLink != "" {
		fmt.Fprintf(&body, "Link: %s\n", event.RegistrationLink)
	}
	if deadline.Notes != "" {
		fmt.Fprintf(&body, "Notes: %s\n", deadline.Notes)
	}

	return &models.Notification{
		Kind:       models.KindDeadline,
		ParentID:   event.ID,
		DeadlineID: deadline.ID,
		Recipient:  event.Email,
		Subject:    fmt.Sprintf("Reminder: %s – %s deadline in %s", event.Title, label, remaining),
		Body:       body.String(),
		DueAt:      deadline.DueAt,
		DaysUntil:  days,
	}, true
}

// Preview evaluates a snapshot of obligations at now without side effects.
func (e *ReminderEvaluator) Preview(quizzes []models.Quiz, events []models.Event, now time.Time) []models.Notification {
	out := make([]models.Notification, 0)
	for _, quiz := range quizzes {
		if n, ok := e.DecideQuiz(quiz, now); ok {
			out = append(out, *n)
		}
	}
	for _, event := range events {
		for _, deadline := range event.Deadlines {
			if n, ok := e.DecideDeadline(event, deadline, now); ok {
				out = append(out, *n)
			}
		}
	}
	return out
}

func (e *ReminderEvaluator) formatTime(t time.Time) string {
	return t.In(e.location).Format(messageTimeLayout)
}

// daysUntil rounds a positive remaining duration up to whole days.
func daysUntil(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

func pluralDays(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
