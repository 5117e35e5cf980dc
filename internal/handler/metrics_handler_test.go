package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hacktrackr-reminder/internal/dto"
	"github.com/noah-isme/hacktrackr-reminder/internal/service"
)

type pingMock struct{ err error }

func (p pingMock) PingContext(context.Context) error { return p.err }
func (p pingMock) Ping(context.Context) error        { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	handler := NewMetricsHandler(nil, pingMock{}, nil)
	w := serve(t, handler.Ready, http.MethodGet)
	assert.Equal(t, http.StatusOK, w.Code)

	handler = NewMetricsHandler(nil, pingMock{}, pingMock{err: errors.New("connection refused")})
	w = serve(t, handler.Ready, http.MethodGet)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.ObserveTick(dto.TickReport{})
	handler := NewMetricsHandler(metrics, nil, nil)

	w := serve(t, handler.Prometheus, http.MethodGet)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "reminder_ticks_total"))

	w = serve(t, NewMetricsHandler(nil, nil, nil).Prometheus, http.MethodGet)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
