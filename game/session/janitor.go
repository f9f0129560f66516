package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	DefaultCleanupInterval = time.Hour
	DefaultMaxIdle         = 24 * time.Hour
)

// Janitor periodically removes idle sessions
type Janitor struct {
	manager   *Manager
	scheduler gocron.Scheduler
	interval  time.Duration
	maxIdle   time.Duration
	logger    *zap.Logger
}

// NewJanitor creates a janitor that every interval removes sessions idle for
// longer than maxIdle. A nil clock uses the real clock.
func NewJanitor(manager *Manager, interval, maxIdle time.Duration, clock clockwork.Clock, logger *zap.Logger) (*Janitor, error) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if maxIdle <= 0 {
		maxIdle = DefaultMaxIdle
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	scheduler, err := gocron.NewScheduler(gocron.WithClock(clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	j := &Janitor{
		manager:   manager,
		scheduler: scheduler,
		interval:  interval,
		maxIdle:   maxIdle,
		logger:    logger,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(j.sweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule cleanup: %w", err)
	}

	return j, nil
}

// Run starts the janitor and blocks until ctx is done
func (j *Janitor) Run(ctx context.Context) error {
	j.scheduler.Start()
	j.logger.Info("session janitor started",
		zap.Duration("interval", j.interval),
		zap.Duration("max_idle", j.maxIdle))

	<-ctx.Done()

	if err := j.scheduler.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop janitor: %w", err)
	}
	return nil
}

func (j *Janitor) sweep() {
	if removed := j.manager.CleanupExpiredSessions(j.maxIdle); removed > 0 {
		j.logger.Info("cleaned up idle sessions", zap.Int("removed", removed))
	}
}
