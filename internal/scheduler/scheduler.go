// Package scheduler runs periodic maintenance for the server.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper removes stale entries and reports how many went.
// session.Store satisfies it.
type Sweeper interface {
	Sweep() int
}

// Scheduler manages cron tasks.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a scheduler using six-field cron specs (with seconds).
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			// Recover sits inside the skip guard so a panicking job still
			// releases it for the next tick.
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		logger: logger,
	}
}

// RegisterSweep runs sweeper on spec.
func (s *Scheduler) RegisterSweep(spec string, sweeper Sweeper) error {
	if _, err := s.cron.AddFunc(spec, func() { s.sweep(sweeper) }); err != nil {
		return fmt.Errorf("register session sweep %q: %w", spec, err)
	}
	s.logger.Info("session sweep registered", zap.String("schedule", spec))
	return nil
}

func (s *Scheduler) sweep(sweeper Sweeper) {
	if n := sweeper.Sweep(); n > 0 {
		s.logger.Info("session sweep", zap.Int("removed", n))
	} else {
		s.logger.Debug("session sweep", zap.Int("removed", 0))
	}
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop stops the scheduler and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
