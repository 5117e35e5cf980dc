package models

import "time"

// ObligationKind distinguishes the two reminder sources.
type ObligationKind string

const (
	KindQuiz     ObligationKind = "quiz"
	KindDeadline ObligationKind = "deadline"
)

// Notification is a decided reminder: who gets what, and which obligation
// it marks once delivered.
type Notification struct {
	Kind       ObligationKind `json:"kind"`
	ParentID   string         `json:"parentId"`
	DeadlineID string         `json:"deadlineId,omitempty"`
	Recipient  string         `json:"recipient"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	DueAt      time.Time      `json:"dueAt"`
	DaysUntil  int            `json:"daysUntil,omitempty"`
}
