package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hacktrackr-reminder/internal/dto"
	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
)

// Layouts accepted for zone-less datetimes. The browser's datetime-local
// input produces the first; seconds appear when the value was edited by hand.
var wallClockLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

type quizWriter interface {
	Upsert(ctx context.Context, quiz *models.Quiz) error
}

type eventWriter interface {
	Upsert(ctx context.Context, event *models.Event) error
}

// importedQuiz and importedEvent mirror the frontend shapes with datetimes
// kept as text until they can be read in the configured zone.
type importedQuiz struct {
	models.Quiz
	Datetime string `json:"datetime"`
}

type importedDeadline struct {
	models.Deadline
	Datetime string `json:"datetime"`
}

type importedEvent struct {
	models.Event
	Deadlines []importedDeadline `json:"deadlines"`
}

// ImportService loads obligations exported by the frontend into the store.
type ImportService struct {
	quizzes   quizWriter
	events    eventWriter
	validator *validator.Validate
	location  *time.Location
	logger    *zap.Logger
}

// NewImportService constructs the service. Datetimes without a zone are read
// in loc, UTC when nil.
func NewImportService(quizzes quizWriter, events eventWriter, validate *validator.Validate, loc *time.Location, logger *zap.Logger) *ImportService {
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{quizzes: quizzes, events: events, validator: validate, location: loc, logger: logger}
}

// Import decodes an export from r and upserts every valid entity. Entities
// without a recipient get defaultEmail. Entities that fail to decode or
// validate are reported and skipped; a store failure aborts the import.
func (s *ImportService) Import(ctx context.Context, r io.Reader, defaultEmail string) (*dto.ImportResult, error) {
	var payload dto.ImportPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid import file")
	}
	defaultEmail = strings.TrimSpace(defaultEmail)

	result := &dto.ImportResult{}
	reject := func(kind models.ObligationKind, id, reason string) {
		result.Rejected = append(result.Rejected, dto.ImportRejection{Kind: kind, ID: id, Reason: reason})
	}

	for _, raw := range payload.Hackathons {
		event, err := s.decodeEvent(raw)
		if err != nil {
			reject(models.KindDeadline, rawID(raw), err.Error())
			continue
		}
		if event.Email == "" {
			event.Email = defaultEmail
		}
		if err := s.validator.Struct(event); err != nil {
			reject(models.KindDeadline, event.ID, err.Error())
			continue
		}
		if err := s.events.Upsert(ctx, event); err != nil {
			return result, appErrors.WrapAs(appErrors.ErrStoreUnavailable, err, "failed to import event "+event.ID)
		}
		result.EventsImported++
	}

	for _, raw := range payload.Quizzes {
		quiz, err := s.decodeQuiz(raw)
		if err != nil {
			reject(models.KindQuiz, rawID(raw), err.Error())
			continue
		}
		if quiz.Email == "" {
			quiz.Email = defaultEmail
		}
		if err := s.validator.Struct(quiz); err != nil {
			reject(models.KindQuiz, quiz.ID, err.Error())
			continue
		}
		if err := s.quizzes.Upsert(ctx, quiz); err != nil {
			return result, appErrors.WrapAs(appErrors.ErrStoreUnavailable, err, "failed to import quiz "+quiz.ID)
		}
		result.QuizzesImported++
	}

	s.logger.Sugar().Infow("import finished",
		"events", result.EventsImported,
		"quizzes", result.QuizzesImported,
		"rejected", len(result.Rejected),
	)
	return result, nil
}

func (s *ImportService) decodeQuiz(raw json.RawMessage) (*models.Quiz, error) {
	var in importedQuiz
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	at, err := s.parseDatetime(in.Datetime)
	if err != nil {
		return nil, err
	}
	quiz := in.Quiz
	quiz.TriggerAt = at
	return &quiz, nil
}

func (s *ImportService) decodeEvent(raw json.RawMessage) (*models.Event, error) {
	var in importedEvent
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	event := in.Event
	event.Deadlines = make([]models.Deadline, 0, len(in.Deadlines))
	for i, d := range in.Deadlines {
		at, err := s.parseDatetime(d.Datetime)
		if err != nil {
			return nil, fmt.Errorf("deadline %q: %w", d.ID, err)
		}
		deadline := d.Deadline
		deadline.DueAt = at
		deadline.Position = i
		event.Deadlines = append(event.Deadlines, deadline)
	}
	return &event, nil
}

// parseDatetime reads RFC 3339 as is and zone-less wall clock time in the
// importer's location. Results are UTC.
func (s *ImportService) parseDatetime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing datetime")
	}
	if at, err := time.Parse(time.RFC3339, raw); err == nil {
		return at.UTC(), nil
	}
	for _, layout := range wallClockLayouts {
		if at, err := time.ParseInLocation(layout, raw, s.location); err == nil {
			return at.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", raw)
}

func rawID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}
