package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tickEvery time.Duration

func (d tickEvery) Next(t time.Time) time.Time { return t.Add(time.Duration(d)) }

func TestParseSchedule(t *testing.T) {
	base := time.Date(2026, 10, 18, 9, 7, 0, 0, time.UTC)

	every, err := ParseSchedule("@every 15m")
	require.NoError(t, err)
	assert.Equal(t, base.Add(15*time.Minute), every.Next(base))

	quarter, err := ParseSchedule("*/15 * * * *")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 18, 9, 15, 0, 0, time.UTC), quarter.Next(base))

	_, err = ParseSchedule("every fifteen minutes")
	assert.Error(t, err)
}

func TestPeriodicRunsOnStartAndOnSchedule(t *testing.T) {
	var runs atomic.Int32
	p := NewPeriodic("test", func(context.Context) error {
		runs.Add(1)
		return nil
	}, PeriodicConfig{Schedule: tickEvery(10 * time.Millisecond), RunOnStart: true})

	p.Start(context.Background())
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, 5*time.Millisecond)
	p.Stop()

	stopped := runs.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, runs.Load())
	assert.NotNil(t, p.State().LastFinishedAt)
}

func TestPeriodicRefusesOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	p := NewPeriodic("test", func(context.Context) error {
		close(entered)
		<-release
		return nil
	}, PeriodicConfig{})

	result := make(chan error, 1)
	go func() { result <- p.RunNow(context.Background()) }()
	<-entered

	assert.True(t, p.State().Running)
	assert.ErrorIs(t, p.RunNow(context.Background()), ErrAlreadyRunning)

	close(release)
	require.NoError(t, <-result)
	assert.False(t, p.State().Running)
	assert.EqualValues(t, 1, p.State().Runs)
}

func TestPeriodicRecoversPanics(t *testing.T) {
	p := NewPeriodic("test", func(context.Context) error {
		panic("boom")
	}, PeriodicConfig{})

	err := p.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, p.State().LastError, "boom")

	// the runner stays usable after a panic
	assert.False(t, p.State().Running)
}

func TestPeriodicStopWaitsForInFlightRun(t *testing.T) {
	entered := make(chan struct{})
	var finished atomic.Bool
	var sawCancel atomic.Bool
	p := NewPeriodic("test", func(ctx context.Context) error {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		if ctx.Err() != nil {
			sawCancel.Store(true)
		}
		finished.Store(true)
		return nil
	}, PeriodicConfig{Schedule: tickEvery(time.Hour), RunOnStart: true})

	p.Start(context.Background())
	<-entered
	p.Stop()

	assert.True(t, finished.Load())
	assert.False(t, sawCancel.Load())
}

func TestPeriodicRecordsTaskError(t *testing.T) {
	p := NewPeriodic("test", func(context.Context) error {
		return errors.New("store unavailable")
	}, PeriodicConfig{})

	require.Error(t, p.RunNow(context.Background()))
	assert.Equal(t, "store unavailable", p.State().LastError)
}

func TestPeriodicRunNowAfterStopIsRejected(t *testing.T) {
	var calls atomic.Int32
	p := NewPeriodic("test", func(context.Context) error {
		calls.Add(1)
		return nil
	}, PeriodicConfig{Schedule: tickEvery(time.Hour)})

	p.Start(context.Background())
	p.Stop()

	assert.ErrorIs(t, p.RunNow(context.Background()), ErrStopped)
	assert.Zero(t, calls.Load())
}

func TestPeriodicStopRacingManualRuns(t *testing.T) {
	var active atomic.Int32
	p := NewPeriodic("test", func(context.Context) error {
		active.Add(1)
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}, PeriodicConfig{Schedule: tickEvery(time.Hour)})
	p.Start(context.Background())

	errs := make(chan error, 32)
	release := make(chan struct{})
	for i := 0; i < cap(errs); i++ {
		go func() {
			<-release
			errs <- p.RunNow(context.Background())
		}()
	}
	close(release)
	p.Stop()

	// nothing may still be running once Stop has returned
	assert.Zero(t, active.Load())
	for i := 0; i < cap(errs); i++ {
		err := <-errs
		if err != nil {
			assert.True(t, errors.Is(err, ErrAlreadyRunning) || errors.Is(err, ErrStopped), err.Error())
		}
	}
}
