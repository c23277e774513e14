package runner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/findata/internal/common"
)

// Scheduler runs the extraction periodically
type Scheduler struct {
	runner *Runner
	cron   *cron.Cron
	logger arbor.ILogger
	ctx    context.Context
}

// NewScheduler creates a new extraction scheduler. Overlapping triggers are skipped.
func NewScheduler(runner *Runner, logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		runner: runner,
		cron:   cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
		ctx:    context.Background(),
	}
}

// Start registers the schedule and begins triggering runs. Runs started by the scheduler are
// cancelled when ctx is done.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		// Default: daily at 03:00
		schedule = "0 0 3 * * *"
	}
	s.ctx = ctx

	if _, err := s.cron.AddFunc(schedule, s.runExtraction); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info().
		Str("schedule", schedule).
		Msg("Extraction scheduler started")

	return nil
}

// Stop stops triggering runs and waits for a run in progress to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Extraction scheduler stopped")
}

// Next returns the next scheduled trigger, zero before Start
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow triggers an immediate run in the background
func (s *Scheduler) RunNow() {
	s.logger.Info().Msg("Triggering immediate extraction run")
	go s.runExtraction()
}

func (s *Scheduler) runExtraction() {
	s.logger.Info().Msg("Starting scheduled extraction")

	err := common.SafeRun(s.logger, "scheduled extraction", func() error {
		stats, err := s.runner.Run(s.ctx)
		if err != nil {
			return err
		}
		s.logger.Info().
			Str("run_id", stats.RunID).
			Int("extracted", stats.Extracted).
			Int("faults", stats.Faults).
			Dur("duration", stats.Duration).
			Msg("Scheduled extraction completed")
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Msg("Scheduled extraction failed")
	}
}
