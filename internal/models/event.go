package models

import "time"

// DeadlineType enumerates the milestones a hackathon can define.
type DeadlineType string

const (
	DeadlineRegistration DeadlineType = "registration"
	DeadlineIdea         DeadlineType = "idea"
	DeadlinePPT          DeadlineType = "ppt"
	DeadlineCode         DeadlineType = "code"
	DeadlineDemo         DeadlineType = "demo"
	DeadlineFinal        DeadlineType = "final"
	DeadlineResult       DeadlineType = "result"
)

var deadlineLabels = map[DeadlineType]string{
	DeadlineRegistration: "Registration",
	DeadlineIdea:         "Idea Submission",
	DeadlinePPT:          "PPT Submission",
	DeadlineCode:         "Code Submission",
	DeadlineDemo:         "Demo",
	DeadlineFinal:        "Final Submission",
	DeadlineResult:       "Result Announcement",
}

// Label returns the human readable name used in reminder messages.
func (t DeadlineType) Label() string {
	if label, ok := deadlineLabels[t]; ok {
		return label
	}
	return string(t)
}

// Event is a hackathon owning an ordered set of deadlines. Email is shared by
// every deadline of the event.
type Event struct {
	ID               string     `db:"id" json:"id"`
	Title            string     `db:"title" json:"title" validate:"required"`
	Organizer        string     `db:"organizer" json:"organizer"`
	RegistrationLink string     `db:"registration_link" json:"registrationLink,omitempty" validate:"omitempty,url"`
	Email            string     `db:"email" json:"email,omitempty" validate:"omitempty,email"`
	Deadlines        []Deadline `db:"-" json:"deadlines" validate:"dive"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// HasRecipient reports whether reminders for this event can be delivered.
func (e Event) HasRecipient() bool {
	return e.Email != ""
}

// Deadline is one milestone of an Event, addressed by (EventID, ID).
type Deadline struct {
	ID              string       `db:"id" json:"id"`
	EventID         string       `db:"event_id" json:"eventId"`
	Type            DeadlineType `db:"type" json:"type" validate:"required,oneof=registration idea ppt code demo final result"`
	DueAt           time.Time    `db:"due_at" json:"datetime" validate:"required"`
	ReminderEnabled bool         `db:"reminder_enabled" json:"reminderEnabled"`
	Completed       bool         `db:"completed" json:"completed"`
	LastNotifiedAt  *time.Time   `db:"last_notified_at" json:"lastNotifiedAt,omitempty"`
	Notes           string       `db:"notes" json:"notes,omitempty"`
	Position        int          `db:"position" json:"position"`
}
