package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer removes pending orders that were never paid
type Expirer interface {
	ExpireStale(ctx context.Context) error
}

// Scheduler runs the periodic housekeeping jobs
type Scheduler struct {
	cron     *cron.Cron
	expirer  Expirer
	schedule string
	timeout  time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler running the expiry job on schedule, a
// standard cron spec or a descriptor such as "@every 15m"
func NewScheduler(expirer Expirer, schedule string, logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))

	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		expirer:  expirer,
		schedule: schedule,
		timeout:  2 * time.Minute,
		logger:   logger,
	}
}

// Start registers the jobs and starts the cron scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.ExpirePendingOrders); err != nil {
		s.logger.Error("failed to schedule pending order expiry job", "schedule", s.schedule, "error", err)
		return err
	}
	s.logger.Info("scheduled pending order expiry job", "schedule", s.schedule)

	s.cron.Start()
	return nil
}

// ExpirePendingOrders runs one expiry pass
func (s *Scheduler) ExpirePendingOrders() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.expirer.ExpireStale(ctx); err != nil {
		s.logger.Error("pending order expiry failed", "error", err, "duration", time.Since(start))
		return
	}
	s.logger.Debug("pending order expiry finished", "duration", time.Since(start))
}

// Stop stops the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
