package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memorybank/memorybank-go/pkg/core"
	"github.com/memorybank/memorybank-go/pkg/scheduler"
)

// fakeSweeper counts sweeps and can block to simulate a slow store.
type fakeSweeper struct {
	mu      sync.Mutex
	sweeps  int
	result  core.SweepResult
	err     error
	blockCh chan struct{} // when set, ApplyDecay waits for a receive
}

func (f *fakeSweeper) ApplyDecay(ctx context.Context, threshold float64) (core.SweepResult, error) {
	f.mu.Lock()
	f.sweeps++
	block := f.blockCh
	result, err := f.result, f.err
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	return result, err
}

func (f *fakeSweeper) Stats(ctx context.Context) (core.Stats, error) {
	return core.Stats{}, nil
}

func (f *fakeSweeper) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sweeps
}

func TestStartRejectsInvalidIntervals(t *testing.T) {
	s := scheduler.NewScheduler(&fakeSweeper{}, 0.1)

	err := s.Start(0, time.Hour)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)

	err = s.Start(time.Hour, -time.Minute)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.Equal(t, "stopped", s.Status().State)
}

func TestStartAndStopLifecycle(t *testing.T) {
	s := scheduler.NewScheduler(&fakeSweeper{}, 0.1, scheduler.WithInitialDelay(time.Hour))

	require.NoError(t, s.Start(time.Hour, 2*time.Hour))

	status := s.Status()
	assert.Equal(t, "running", status.State)
	require.Len(t, status.Jobs, 3)

	byID := make(map[string]scheduler.JobStatus)
	for _, job := range status.Jobs {
		byID[job.ID] = job
	}
	assert.Equal(t, "Apply Forgetting Curve", byID["forgetting_curve_job"].Name)
	assert.Equal(t, "Memory Maintenance", byID["memory_maintenance_job"].Name)
	assert.Equal(t, "Initial Forgetting Curve", byID["initial_forgetting_job"].Name)
	assert.False(t, byID["forgetting_curve_job"].NextRun.IsZero())

	s.Stop()
	assert.Equal(t, "stopped", s.Status().State)
	assert.Empty(t, s.Status().Jobs)
}

func TestDoubleStartIsNoOp(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := scheduler.NewScheduler(sweeper, 0.1, scheduler.WithInitialDelay(time.Hour))
	defer s.Stop()

	require.NoError(t, s.Start(time.Hour, time.Hour))
	require.NoError(t, s.Start(time.Minute, time.Minute))

	// The second start must not have replaced the triggers.
	assert.Len(t, s.Status().Jobs, 3)
	for _, job := range s.Status().Jobs {
		if job.ID == "forgetting_curve_job" {
			assert.Equal(t, "every 1h0m0s", job.Trigger)
		}
	}
}

func TestDoubleStopIsNoOp(t *testing.T) {
	s := scheduler.NewScheduler(&fakeSweeper{}, 0.1, scheduler.WithInitialDelay(time.Hour))
	require.NoError(t, s.Start(time.Hour, time.Hour))

	s.Stop()
	s.Stop()
	assert.Equal(t, "stopped", s.Status().State)
}

func TestInitialSweepFires(t *testing.T) {
	sweeper := &fakeSweeper{}
	s := scheduler.NewScheduler(sweeper, 0.1, scheduler.WithInitialDelay(20*time.Millisecond))
	defer s.Stop()

	require.NoError(t, s.Start(time.Hour, time.Hour))

	assert.Eventually(t, func() bool {
		return sweeper.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// Once fired, the one-shot trigger disappears from status.
	assert.Eventually(t, func() bool {
		return len(s.Status().Jobs) == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRunDecayNowReturnsResult(t *testing.T) {
	sweeper := &fakeSweeper{result: core.SweepResult{Updated: 4, Forgotten: 2, TotalProcessed: 6}}
	s := scheduler.NewScheduler(sweeper, 0.1)

	// Works without Start.
	result, err := s.RunDecayNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, result.Updated)
	assert.Equal(t, 2, result.Forgotten)
	assert.Equal(t, 6, result.TotalProcessed)
	assert.Equal(t, 1, sweeper.count())
}

func TestRunDecayNowPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("index gone")}
	s := scheduler.NewScheduler(sweeper, 0.1)

	_, err := s.RunDecayNow(context.Background())
	assert.Error(t, err)
}

func TestInFlightSweepBlocksManualRun(t *testing.T) {
	block := make(chan struct{})
	sweeper := &fakeSweeper{blockCh: block}
	s := scheduler.NewScheduler(sweeper, 0.1, scheduler.WithInitialDelay(time.Millisecond))
	defer s.Stop()

	require.NoError(t, s.Start(time.Hour, time.Hour))

	// Wait until the initial sweep is in flight, holding the job slot.
	assert.Eventually(t, func() bool {
		return sweeper.count() == 1
	}, 2*time.Second, time.Millisecond)

	done := make(chan struct{})
	go func() {
		_, _ = s.RunDecayNow(context.Background())
		close(done)
	}()

	// The manual run waits for the slot rather than running concurrently.
	select {
	case <-done:
		t.Fatal("manual sweep ran while another sweep held the job slot")
	case <-time.After(50 * time.Millisecond):
	}

	// Release both sweeps.
	close(block)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("manual sweep never finished")
	}
	assert.Equal(t, 2, sweeper.count())
}
