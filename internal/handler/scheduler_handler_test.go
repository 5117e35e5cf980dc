package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hacktrackr-reminder/internal/dto"
	"github.com/noah-isme/hacktrackr-reminder/internal/middleware"
	"github.com/noah-isme/hacktrackr-reminder/internal/models"
	appErrors "github.com/noah-isme/hacktrackr-reminder/pkg/errors"
	"github.com/noah-isme/hacktrackr-reminder/pkg/jobs"
)

type runnerMock struct {
	runErr error
	ran    bool
	state  jobs.State
}

func (m *runnerMock) RunNow(context.Context) error {
	m.ran = true
	return m.runErr
}

func (m *runnerMock) State() jobs.State { return m.state }

type reminderServiceMock struct {
	last        *dto.TickReport
	upcoming    *dto.UpcomingReminders
	upcomingErr error
}

func (m *reminderServiceMock) LastReport() *dto.TickReport { return m.last }

func (m *reminderServiceMock) Upcoming(context.Context) (*dto.UpcomingReminders, error) {
	return m.upcoming, m.upcomingErr
}

type snapshotMock struct{}

func (snapshotMock) Snapshot() dto.MetricsSnapshot { return dto.MetricsSnapshot{TicksTotal: 7} }

func serve(t *testing.T, h gin.HandlerFunc, method string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", nil)
	h(c)
	c.Writer.WriteHeaderNow()
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSchedulerHandlerStatus(t *testing.T) {
	report := &dto.TickReport{Now: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC), Quizzes: dto.KindReport{Sent: 1}}
	handler := NewSchedulerHandler(&runnerMock{state: jobs.State{Runs: 3}}, &reminderServiceMock{last: report}, snapshotMock{},
		SchedulerHandlerConfig{Enabled: true, Schedule: "@every 15m"})

	w := serve(t, handler.Status, http.MethodGet)
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "@every 15m", data["schedule"])
	assert.EqualValues(t, 3, data["runner"].(map[string]interface{})["runs"])
	assert.EqualValues(t, 7, data["metrics"].(map[string]interface{})["ticksTotal"])
	assert.NotNil(t, data["lastReport"])
}

func TestSchedulerHandlerSweep(t *testing.T) {
	runner := &runnerMock{}
	handler := NewSchedulerHandler(runner, &reminderServiceMock{last: &dto.TickReport{}}, nil, SchedulerHandlerConfig{})

	w := serve(t, handler.Sweep, http.MethodPost)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, runner.ran)
}

func TestSchedulerHandlerSweepConflict(t *testing.T) {
	runner := &runnerMock{runErr: jobs.ErrAlreadyRunning}
	handler := NewSchedulerHandler(runner, &reminderServiceMock{}, nil, SchedulerHandlerConfig{})

	w := serve(t, handler.Sweep, http.MethodPost)
	require.Equal(t, http.StatusConflict, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, appErrors.ErrTickInProgress.Code, errBody["code"])
}

func TestSchedulerHandlerSweepDuringShutdown(t *testing.T) {
	runner := &runnerMock{runErr: jobs.ErrStopped}
	handler := NewSchedulerHandler(runner, &reminderServiceMock{}, nil, SchedulerHandlerConfig{})

	w := serve(t, handler.Sweep, http.MethodPost)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, appErrors.ErrShuttingDown.Code, errBody["code"])
}

func TestSchedulerHandlerSweepReportsDegradedStore(t *testing.T) {
	runner := &runnerMock{runErr: appErrors.WrapAs(appErrors.ErrStoreUnavailable, errors.New("down"), "")}
	handler := NewSchedulerHandler(runner, &reminderServiceMock{last: &dto.TickReport{Quizzes: dto.KindReport{StoreError: "down"}}}, nil, SchedulerHandlerConfig{})

	w := serve(t, handler.Sweep, http.MethodPost)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSchedulerHandlerUpcoming(t *testing.T) {
	svc := &reminderServiceMock{upcoming: &dto.UpcomingReminders{
		Notifications: []models.Notification{{Kind: models.KindQuiz, ParentID: "q1"}},
	}}
	handler := NewSchedulerHandler(&runnerMock{}, svc, nil, SchedulerHandlerConfig{})

	w := serve(t, handler.Upcoming, http.MethodGet)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decodeEnvelope(t, w)["meta"].(map[string]interface{})["count"])

	svc.upcomingErr = appErrors.ErrStoreUnavailable
	w = serve(t, handler.Upcoming, http.MethodGet)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestSchedulerHandlerUpcomingExports(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &reminderServiceMock{upcoming: &dto.UpcomingReminders{
		GeneratedAt: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC),
		Notifications: []models.Notification{
			{Kind: models.KindDeadline, Recipient: "team@example.com", Subject: "Reminder: HackMIT – Demo deadline in 2 days", DaysUntil: 2},
		},
	}}
	handler := NewSchedulerHandler(&runnerMock{}, svc, nil, SchedulerHandlerConfig{})

	for format, contentType := range map[string]string{"csv": "text/csv; charset=utf-8", "pdf": "application/pdf"} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/reminders/upcoming?format="+format, nil)
		handler.Upcoming(c)

		require.Equal(t, http.StatusOK, w.Code, format)
		assert.Equal(t, contentType, w.Header().Get("Content-Type"))
		assert.Contains(t, w.Header().Get("Content-Disposition"), "upcoming-reminders-20261018-0900."+format)
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/reminders/upcoming?format=xml", nil)
	handler.Upcoming(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerHandlerSweepNamesOperator(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSchedulerHandler(&runnerMock{}, &reminderServiceMock{last: &dto.TickReport{}}, nil, SchedulerHandlerConfig{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/scheduler/sweep", nil)
	c.Set(middleware.ContextUserKey, &models.OperatorClaims{
		Scope:            models.OperatorScope,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "ops@example.com"},
	})
	handler.Sweep(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops@example.com", decodeEnvelope(t, w)["meta"].(map[string]interface{})["triggeredBy"])
}
