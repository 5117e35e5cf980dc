package models

import "time"

// Quiz is a single-trigger obligation: one reminder window ahead of TriggerAt.
type Quiz struct {
	ID              string     `db:"id" json:"id"`
	QuizName        string     `db:"quiz_name" json:"quizName" validate:"required"`
	Platform        string     `db:"platform" json:"platform"`
	Topic           string     `db:"topic" json:"topic"`
	Notes           string     `db:"notes" json:"notes,omitempty"`
	TriggerAt       time.Time  `db:"trigger_at" json:"datetime" validate:"required"`
	ReminderEnabled bool       `db:"reminder_enabled" json:"reminderEnabled"`
	Completed       bool       `db:"completed" json:"completed"`
	Email           string     `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	LastNotifiedAt  *time.Time `db:"last_notified_at" json:"lastNotifiedAt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasRecipient reports whether the quiz can be notified at all.
func (q Quiz) HasRecipient() bool {
	return q.Email != ""
}
