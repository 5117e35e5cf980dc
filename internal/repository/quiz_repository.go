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

const quizColumns = `id, quiz_name, platform, topic, notes, trigger_at, reminder_enabled, completed, email, last_notified_at, created_at, updated_at`

// QuizRepository handles persistence for quizzes.
type QuizRepository struct {
	db *sqlx.DB
}

// NewQuizRepository instantiates a quiz repository.
func NewQuizRepository(db *sqlx.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// ListDueQuizzes returns enabled, open quizzes triggering in (from, to].
func (r *QuizRepository) ListDueQuizzes(ctx context.Context, from, to time.Time) ([]models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes
		WHERE reminder_enabled = TRUE AND completed = FALSE AND trigger_at > $1 AND trigger_at <= $2
		ORDER BY trigger_at ASC`
	var quizzes []models.Quiz
	if err := r.db.SelectContext(ctx, &quizzes, query, from.UTC(), to.UTC()); err != nil {
		return nil, fmt.Errorf("list due quizzes: %w", err)
	}
	return quizzes, nil
}

// FindByID loads a quiz by identifier.
func (r *QuizRepository) FindByID(ctx context.Context, id string) (*models.Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes WHERE id = $1`
	var quiz models.Quiz
	if err := r.db.GetContext(ctx, &quiz, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("find quiz: %w", err)
	}
	return &quiz, nil
}

// Upsert inserts a quiz or refreshes its user-editable fields. The reminder
// watermark is never overwritten here.
func (r *QuizRepository) Upsert(ctx context.Context, quiz *models.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if quiz.CreatedAt.IsZero() {
		quiz.CreatedAt = now
	}
	quiz.UpdatedAt = now
	quiz.TriggerAt = quiz.TriggerAt.UTC()
	quiz.CreatedAt = quiz.CreatedAt.UTC()

	const query = `INSERT INTO quizzes (id, quiz_name, platform, topic, notes, trigger_at, reminder_enabled, completed, email, created_at, updated_at)
		VALUES (:id, :quiz_name, :platform, :topic, :notes, :trigger_at, :reminder_enabled, :completed, :email, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			quiz_name = excluded.quiz_name,
			platform = excluded.platform,
			topic = excluded.topic,
			notes = excluded.notes,
			trigger_at = excluded.trigger_at,
			reminder_enabled = excluded.reminder_enabled,
			completed = excluded.completed,
			email = excluded.email,
			updated_at = excluded.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, quiz); err != nil {
		return fmt.Errorf("upsert quiz: %w", err)
	}
	return nil
}

// MarkQuizNotified advances the quiz watermark to at. It matches only when
// the stored watermark is older, so the mark never moves backwards.
func (r *QuizRepository) MarkQuizNotified(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE quizzes SET last_notified_at = $1
		WHERE id = $2 AND (last_notified_at IS NULL OR last_notified_at < $1)`
	res, err := r.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark quiz notified: %w", err)
	}
	return staleIfUntouched(res)
}

// Delete removes a quiz permanently.
func (r *QuizRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return nil
}

func staleIfUntouched(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.ErrStaleEntity
	}
	return nil
}
