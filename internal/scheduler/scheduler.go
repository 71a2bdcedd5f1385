// Package scheduler runs the giving analytics job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RunFunc executes one job run for the given timestamp.
type RunFunc func(ctx context.Context, now time.Time) error

// Scheduler triggers a RunFunc on a cron spec. Overlapping triggers are
// skipped while a run is still in progress.
type Scheduler struct {
	cronEngine *cron.Cron
	run        RunFunc
	clock      func() time.Time
	spec       string
	timeout    time.Duration

	mu      sync.Mutex
	running bool
	ctx     context.Context
}

// New creates a scheduler in the given location. A zero timeout means runs are
// bounded only by the scheduler's context.
func New(spec string, loc *time.Location, timeout time.Duration, run RunFunc) (*Scheduler, error) {
	if run == nil {
		return nil, fmt.Errorf("scheduler requires a run function")
	}
	if loc == nil {
		loc = time.Local
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}

	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(loc)),
		run:        run,
		clock:      time.Now,
		spec:       spec,
		timeout:    timeout,
		ctx:        context.Background(),
	}, nil
}

// Run starts the scheduler and blocks until ctx is canceled, then waits for
// any in-flight run to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if _, err := s.cronEngine.AddFunc(s.spec, s.trigger); err != nil {
		return fmt.Errorf("could not add giving analytics cron job: %w", err)
	}

	slog.Info("Starting giving analytics scheduler", "spec", s.spec)
	s.cronEngine.Start()

	<-ctx.Done()

	slog.Info("Stopping giving analytics scheduler")
	stopped := s.cronEngine.Stop()
	<-stopped.Done()
	slog.Info("Giving analytics scheduler stopped")

	return nil
}

// Next returns the next time the job is due after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	schedule, err := cron.ParseStandard(s.spec)
	if err != nil {
		return time.Time{}
	}
	return schedule.Next(t)
}

func (s *Scheduler) trigger() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		slog.Warn("Previous giving analytics run still in progress, skipping trigger")
		return
	}
	s.running = true
	parent := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := parent
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, s.timeout)
		defer cancel()
	}

	now := s.clock()
	slog.Info("Cron job triggered for giving analytics", "now", now)
	if err := s.run(ctx, now); err != nil {
		slog.Error("Giving analytics run failed", "error", err)
		return
	}
	slog.Info("Giving analytics run completed")
}
