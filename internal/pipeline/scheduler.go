package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job is one scheduled unit of work, usually Pipeline.Fetch or Pipeline.Analyze.
type Job func(ctx context.Context) (*Result, error)

// Scheduler runs jobs on a cron schedule. At most one run is in flight across
// all registered jobs and triggered runs; a tick that fires during a run is skipped.
type Scheduler struct {
	Cron   *cron.Cron
	Ctx    context.Context
	logger zerolog.Logger

	running sync.Mutex
	pending sync.WaitGroup
}

// NewScheduler creates a scheduler using six-field (seconds-first) cron specs.
func NewScheduler(ctx context.Context) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	s := &Scheduler{Ctx: ctx, logger: logger}
	s.Cron = cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cron.PrintfLogger(&s.logger)), cron.SkipIfStillRunning(cron.PrintfLogger(&s.logger))),
	)
	return s
}

// Register schedules job under name.
func (s *Scheduler) Register(spec, name string, job Job) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.run(name, job) }); err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	s.logger.Info().Str("task", name).Str("spec", spec).Msg("Task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running and triggered jobs to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.pending.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunNow executes the job immediately and returns when it is done.
// It is skipped when another run is in flight.
func (s *Scheduler) RunNow(name string, job Job) {
	s.run(name, job)
}

// Trigger runs the job in the background (RUN_ON_START). Stop waits for it.
func (s *Scheduler) Trigger(name string, job Job) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		s.run(name, job)
	}()
}

func (s *Scheduler) run(name string, job Job) {
	if s.Ctx.Err() != nil {
		return
	}
	if !s.running.TryLock() {
		s.logger.Warn().Str("task", name).Msg("Previous run still in flight, skipping")
		return
	}
	defer s.running.Unlock()
	s.logger.Info().Str("task", name).Msg("Running task")
	res, err := job(s.Ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("task", name).Msg("Task failed")
		return
	}
	s.logger.Info().
		Str("task", name).
		Int("points", res.Series.Len()).
		Int("warnings", len(res.Warnings)).
		Int64("run_id", res.RunID).
		Msg("Task finished")
}
