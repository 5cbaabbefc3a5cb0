// Package scheduler runs periodic decay sweeps and maintenance over a
// memory store.
//
// A started scheduler owns three triggers: a recurring forgetting-curve
// sweep, a recurring maintenance pass (stats before and after a sweep), and
// a one-shot initial sweep shortly after startup. All triggers share a
// single job slot: a timer firing while a sweep is already in flight skips
// its run instead of piling up.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/memorybank/memorybank-go/pkg/core"
)

// Job identifiers reported by Status.
const (
	forgettingJobID  = "forgetting_curve_job"
	maintenanceJobID = "memory_maintenance_job"
	initialJobID     = "initial_forgetting_job"
)

// defaultInitialDelay is how long after Start the one-shot initial sweep
// fires.
const defaultInitialDelay = time.Minute

// Sweeper is the store surface the scheduler drives.
type Sweeper interface {
	// ApplyDecay runs one decay sweep with the given deletion threshold.
	ApplyDecay(ctx context.Context, threshold float64) (core.SweepResult, error)

	// Stats returns an aggregate snapshot of the store.
	Stats(ctx context.Context) (core.Stats, error)
}

// JobStatus describes one scheduled trigger.
type JobStatus struct {
	// ID is the job's stable identifier.
	ID string `json:"id"`

	// Name is the job's human-readable name.
	Name string `json:"name"`

	// NextRun is when the trigger next fires. Zero after a one-shot
	// trigger has fired.
	NextRun time.Time `json:"next_run"`

	// Trigger describes the firing rule, e.g. "every 24h0m0s".
	Trigger string `json:"trigger"`
}

// SchedulerStatus is a snapshot of the scheduler's state.
type SchedulerStatus struct {
	// State is "running" or "stopped".
	State string `json:"state"`

	// Jobs lists the scheduled triggers. Empty when stopped.
	Jobs []JobStatus `json:"jobs"`
}

// Scheduler periodically applies the forgetting curve to a memory store.
type Scheduler struct {
	sweeper      Sweeper
	threshold    float64
	initialDelay time.Duration
	logger       *slog.Logger

	// sweepMu is the single job slot. Timer-driven runs TryLock and skip
	// when a sweep is already in flight; RunDecayNow waits.
	sweepMu sync.Mutex

	mu                  sync.Mutex
	running             bool
	cron                *cron.Cron
	forgettingEntry     cron.EntryID
	maintenanceEntry    cron.EntryID
	forgettingInterval  time.Duration
	maintenanceInterval time.Duration
	initialTimer        *time.Timer
	initialNext         time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInitialDelay sets the delay before the one-shot initial sweep.
// The default is one minute.
func WithInitialDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.initialDelay = d
	}
}

// WithLogger sets the scheduler's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a scheduler that sweeps the given store with the
// given deletion threshold. Call Start to begin scheduling.
func NewScheduler(sweeper Sweeper, threshold float64, opts ...Option) *Scheduler {
	s := &Scheduler{
		sweeper:      sweeper,
		threshold:    threshold,
		initialDelay: defaultInitialDelay,
		logger:       slog.Default().With("component", "memory_scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins scheduling: a forgetting-curve sweep every
// forgettingInterval, a maintenance pass every maintenanceInterval, and a
// one-shot initial sweep after the configured delay.
//
// Starting an already-running scheduler is a warned no-op.
func (s *Scheduler) Start(forgettingInterval, maintenanceInterval time.Duration) error {
	if forgettingInterval <= 0 || maintenanceInterval <= 0 {
		return core.NewMemoryError("Start", fmt.Errorf("%w: scheduler intervals must be positive", core.ErrInvalidConfig))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("scheduler already running, start ignored")
		return nil
	}

	s.cron = cron.New()
	s.forgettingInterval = forgettingInterval
	s.maintenanceInterval = maintenanceInterval

	s.forgettingEntry = s.cron.Schedule(cron.Every(forgettingInterval), cron.FuncJob(func() {
		s.runSweep("Apply Forgetting Curve")
	}))
	s.maintenanceEntry = s.cron.Schedule(cron.Every(maintenanceInterval), cron.FuncJob(s.runMaintenance))

	s.initialNext = time.Now().Add(s.initialDelay)
	s.initialTimer = time.AfterFunc(s.initialDelay, func() {
		s.clearInitial()
		s.runSweep("Initial Forgetting Curve")
	})

	s.cron.Start()
	s.running = true

	s.logger.Info("scheduler started",
		"forgetting_interval", forgettingInterval,
		"maintenance_interval", maintenanceInterval,
		"initial_delay", s.initialDelay,
		"threshold", s.threshold)
	return nil
}

// Stop halts all triggers. A sweep already in flight finishes. Stopping a
// stopped scheduler is a warned no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		s.logger.Warn("scheduler not running, stop ignored")
		return
	}

	if s.initialTimer != nil {
		s.initialTimer.Stop()
		s.initialTimer = nil
		s.initialNext = time.Time{}
	}
	s.cron.Stop()
	s.cron = nil
	s.running = false

	s.logger.Info("scheduler stopped")
}

// RunDecayNow runs a sweep immediately, waiting for any in-flight sweep to
// finish first. It works whether or not the scheduler is started.
func (s *Scheduler) RunDecayNow(ctx context.Context) (core.SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	result, err := s.sweeper.ApplyDecay(ctx, s.threshold)
	if err != nil {
		s.logger.Error("manual decay sweep failed", "error", err)
		return core.SweepResult{}, err
	}

	s.logger.Info("manual decay sweep finished",
		"updated", result.Updated,
		"forgotten", result.Forgotten,
		"total", result.TotalProcessed)
	return result, nil
}

// Status reports the scheduler state and its scheduled triggers.
func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return SchedulerStatus{State: "stopped"}
	}

	jobs := []JobStatus{
		{
			ID:      forgettingJobID,
			Name:    "Apply Forgetting Curve",
			NextRun: s.cron.Entry(s.forgettingEntry).Next,
			Trigger: fmt.Sprintf("every %s", s.forgettingInterval),
		},
		{
			ID:      maintenanceJobID,
			Name:    "Memory Maintenance",
			NextRun: s.cron.Entry(s.maintenanceEntry).Next,
			Trigger: fmt.Sprintf("every %s", s.maintenanceInterval),
		},
	}

	if s.initialTimer != nil {
		jobs = append(jobs, JobStatus{
			ID:      initialJobID,
			Name:    "Initial Forgetting Curve",
			NextRun: s.initialNext,
			Trigger: fmt.Sprintf("once after %s", s.initialDelay),
		})
	}

	return SchedulerStatus{State: "running", Jobs: jobs}
}

// runSweep executes one timer-driven sweep, skipping when another sweep
// holds the job slot.
func (s *Scheduler) runSweep(name string) {
	if !s.sweepMu.TryLock() {
		s.logger.Warn("sweep already in flight, skipping run", "job", name)
		return
	}
	defer s.sweepMu.Unlock()

	result, err := s.sweeper.ApplyDecay(context.Background(), s.threshold)
	if err != nil {
		s.logger.Error("decay sweep failed", "job", name, "error", err)
		return
	}

	s.logger.Info("decay sweep finished",
		"job", name,
		"updated", result.Updated,
		"forgotten", result.Forgotten,
		"total", result.TotalProcessed)
}

// runMaintenance logs store stats, runs a sweep, and logs stats again.
func (s *Scheduler) runMaintenance() {
	ctx := context.Background()

	before, err := s.sweeper.Stats(ctx)
	if err != nil {
		s.logger.Error("maintenance stats failed", "error", err)
	} else {
		s.logger.Info("maintenance starting",
			"total", before.Total,
			"avg_importance", before.AvgImportance)
	}

	s.runSweep("Memory Maintenance")

	after, err := s.sweeper.Stats(ctx)
	if err != nil {
		s.logger.Error("maintenance stats failed", "error", err)
		return
	}
	s.logger.Info("maintenance finished",
		"total", after.Total,
		"avg_importance", after.AvgImportance)
}

// clearInitial drops the one-shot timer bookkeeping once it has fired.
func (s *Scheduler) clearInitial() {
	s.mu.Lock()
	s.initialTimer = nil
	s.initialNext = time.Time{}
	s.mu.Unlock()
}
