package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

const (
	eventColumns    = `id, title, organizer, registration_link, email, created_at, updated_at`
	deadlineColumns = `id, event_id, type, due_at, reminder_enabled, completed, last_notified_at, notes, position`
)

// EventRepository handles persistence for hackathon events and their deadlines.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository instantiates an event repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListWithRecipients returns events that have an email and at least one
// deadline, each with its deadlines in position order.
func (r *EventRepository) ListWithRecipients(ctx context.Context) ([]models.Event, error) {
	eventQuery := `SELECT ` + eventColumns + ` FROM events e
		WHERE e.email <> '' AND EXISTS (SELECT 1 FROM deadlines d WHERE d.event_id = e.id)
		ORDER BY e.created_at ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, eventQuery); err != nil {
		return nil, fmt.Errorf("list events with recipients: %w", err)
	}
	if len(events) == 0 {
		return events, nil
	}

	deadlineQuery := `SELECT ` + deadlineColumns + ` FROM deadlines
		WHERE event_id IN (SELECT id FROM events WHERE email <> '')
		ORDER BY event_id, position, due_at`
	var deadlines []models.Deadline
	if err := r.db.SelectContext(ctx, &deadlines, deadlineQuery); err != nil {
		return nil, fmt.Errorf("list event deadlines: %w", err)
	}

	byEvent := make(map[string][]models.Deadline, len(events))
	for _, d := range deadlines {
		byEvent[d.EventID] = append(byEvent[d.EventID], d)
	}

	result := make([]models.Event, 0, len(events))
	for _, e := range events {
		e.Deadlines = byEvent[e.ID]
		if len(e.Deadlines) == 0 {
			// deleted between the two reads
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// FindByID loads an event with its deadlines.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := r.db.GetContext(ctx, &event, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	if err := r.db.SelectContext(ctx, &event.Deadlines, `SELECT `+deadlineColumns+` FROM deadlines WHERE event_id = $1 ORDER BY position, due_at`, id); err != nil {
		return nil, fmt.Errorf("find event deadlines: %w", err)
	}
	return &event, nil
}

// Upsert writes an event and its deadline set in one transaction. Deadlines
// missing from the set are removed; watermarks of kept deadlines survive.
func (r *EventRepository) Upsert(ctx context.Context, event *models.Event) (err error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.CreatedAt = event.CreatedAt.UTC()
	event.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert event tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const eventQuery = `INSERT INTO events (id, title, organizer, registration_link, email, created_at, updated_at)
		VALUES (:id, :title, :organizer, :registration_link, :email, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			organizer = excluded.organizer,
			registration_link = excluded.registration_link,
			email = excluded.email,
			updated_at = excluded.updated_at`
	if _, err = tx.NamedExecContext(ctx, eventQuery, event); err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}

	const deadlineQuery = `INSERT INTO deadlines (id, event_id, type, due_at, reminder_enabled, completed, notes, position)
		VALUES (:id, :event_id, :type, :due_at, :reminder_enabled, :completed, :notes, :position)
		ON CONFLICT (event_id, id) DO UPDATE SET
			type = excluded.type,
			due_at = excluded.due_at,
			reminder_enabled = excluded.reminder_enabled,
			completed = excluded.completed,
			notes = excluded.notes,
			position = excluded.position`
	keep := make(map[string]struct{}, len(event.Deadlines))
	for i := range event.Deadlines {
		d := &event.Deadlines[i]
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.EventID = event.ID
		d.Position = i
		d.DueAt = d.DueAt.UTC()
		keep[d.ID] = struct{}{}
		if _, err = tx.NamedExecContext(ctx, deadlineQuery, d); err != nil {
			return fmt.Errorf("upsert deadline %s: %w", d.ID, err)
		}
	}

	var existing []string
	if err = tx.SelectContext(ctx, &existing, `SELECT id FROM deadlines WHERE event_id = $1`, event.ID); err != nil {
		return fmt.Errorf("list existing deadlines: %w", err)
	}
	for _, id := range existing {
		if _, ok := keep[id]; ok {
			continue
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM deadlines WHERE event_id = $1 AND id = $2`, event.ID, id); err != nil {
			return fmt.Errorf("delete dropped deadline %s: %w", id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert event tx: %w", err)
	}
	return nil
}

// MarkDeadlineNotified advances the watermark of one deadline addressed by
// (eventID, deadlineID). Sibling deadlines are untouched. Returns
// ErrStaleEntity when nothing matched: the deadline is gone or its watermark
// is already at or past at.
func (r *EventRepository) MarkDeadlineNotified(ctx context.Context, eventID, deadlineID string, at time.Time) error {
	const query = `UPDATE deadlines SET last_notified_at = $1
		WHERE event_id = $2 AND id = $3 AND (last_notified_at IS NULL OR last_notified_at < $1)`
	res, err := r.db.ExecContext(ctx, query, at.UTC(), eventID, deadlineID)
	if err != nil {
		return fmt.Errorf("mark deadline notified: %w", err)
	}
	return staleIfUntouched(res)
}

// Delete removes an event; deadlines cascade.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM deadlines WHERE event_id = $1`, id); err != nil {
		return fmt.Errorf("delete event deadlines: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
