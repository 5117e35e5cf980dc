package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

var (
	eventRowColumns    = []string{"id", "title", "organizer", "registration_link", "email", "created_at", "updated_at"}
	deadlineRowColumns = []string{"id", "event_id", "type", "due_at", "reminder_enabled", "completed", "last_notified_at", "notes", "position"}
)

func TestListWithRecipientsGroupsDeadlines(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM events e WHERE e.email <> '' AND EXISTS (SELECT 1 FROM deadlines d WHERE d.event_id = e.id)")).
		WillReturnRows(sqlmock.NewRows(eventRowColumns).
			AddRow("ev1", "Smart India Hackathon", "AICTE", "https://sih.gov.in", "team@example.com", now, now).
			AddRow("ev2", "DoraHacks Buidl", "DoraHacks", "", "solo@example.com", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("FROM deadlines WHERE event_id IN (SELECT id FROM events WHERE email <> '') ORDER BY event_id, position, due_at")).
		WillReturnRows(sqlmock.NewRows(deadlineRowColumns).
			AddRow("d1", "ev1", "registration", now.Add(24*time.Hour), true, false, nil, "", 0).
			AddRow("d2", "ev1", "ppt", now.Add(72*time.Hour), true, false, now.Add(-time.Hour), "10 slides max", 1).
			AddRow("d3", "ev2", "final", now.Add(48*time.Hour), false, false, nil, "", 0))

	events, err := repo.ListWithRecipients(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Len(t, events[0].Deadlines, 2)
	assert.Equal(t, models.DeadlinePPT, events[0].Deadlines[1].Type)
	require.NotNil(t, events[0].Deadlines[1].LastNotifiedAt)
	assert.Len(t, events[1].Deadlines, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListWithRecipientsEmpty(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectQuery("FROM events e").WillReturnRows(sqlmock.NewRows(eventRowColumns))

	events, err := repo.ListWithRecipients(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeadlineNotifiedAddressesOneDeadline(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE deadlines SET last_notified_at = $1 WHERE event_id = $2 AND id = $3 AND (last_notified_at IS NULL OR last_notified_at < $1)")).
		WithArgs(now, "ev1", "d2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDeadlineNotified(context.Background(), "ev1", "d2", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkDeadlineNotifiedStale(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectExec("UPDATE deadlines SET last_notified_at").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkDeadlineNotified(context.Background(), "ev1", "deleted", time.Now())
	assert.ErrorIs(t, err, appErrors.ErrStaleEntity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertEventRollsBackOnDeadlineFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO deadlines").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.Upsert(context.Background(), &models.Event{
		Title:     "HackMIT",
		Deadlines: []models.Deadline{{Type: models.DeadlineCode, DueAt: time.Now().Add(48 * time.Hour)}},
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
