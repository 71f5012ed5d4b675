// Package scheduler refreshes the rate cache on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"valutatrade-hub/internal/core/ports"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRunTimeout bounds a single scheduled update.
const DefaultRunTimeout = time.Minute

// Scheduler runs RatesUpdater.RunUpdate for all sources on a cron spec.
// Overlapping runs are skipped rather than queued.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	updater ports.RatesUpdater
	log     zerolog.Logger
	timeout time.Duration

	baseCtx context.Context
	cancel  context.CancelFunc
	running bool
}

// New validates spec ("@every 5m", "*/10 * * * *", ...) and prepares the job.
func New(spec string, updater ports.RatesUpdater, log zerolog.Logger) (*Scheduler, error) {
	log = log.With().Str("component", "scheduler").Logger()
	s := &Scheduler{
		updater: updater,
		log:     log,
		timeout: DefaultRunTimeout,
		baseCtx: context.Background(),
	}

	cl := cronLogger{log: log}
	s.cron = cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}
	return s, nil
}

// Start begins firing the job. Runs use a context derived from ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	s.baseCtx, s.cancel = context.WithCancel(ctx)
	s.running = true
	s.cron.Start()

	s.log.Info().Time("next_run", s.nextRun()).Msg("scheduler started")
	return nil
}

// Stop halts the schedule, cancels an in-flight run and waits for it to return
// or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	done := s.cron.Stop()
	cancel()

	select {
	case <-done.Done():
		s.log.Info().Msg("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for scheduled update: %w", ctx.Err())
	}
}

// RunOnce performs one update of all sources and logs the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (*ports.UpdateReport, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	report, err := s.updater.RunUpdate(ctx, "")
	if err != nil {
		s.log.Error().Err(err).Dur("duration", time.Since(start)).Msg("scheduled rates update failed")
		return nil, err
	}

	evt := s.log.Info()
	if len(report.Errors) > 0 {
		evt = s.log.Warn().Strs("errors", report.Errors)
	}
	evt.Int("total_rates", report.TotalRates).
		Dur("duration", time.Since(start)).
		Msg("scheduled rates update finished")
	return report, nil
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	_, _ = s.RunOnce(ctx)
}

func (s *Scheduler) nextRun() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger routes robfig/cron's internal logging to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
