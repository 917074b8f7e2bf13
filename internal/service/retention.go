package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RetentionSweeper is the part of the notification service used by the scheduler.
type RetentionSweeper interface {
	SweepExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NotificationRetention runs the retention sweep once or on a cron schedule.
type NotificationRetention struct {
	sweeper   RetentionSweeper
	retention time.Duration
	timeout   time.Duration
	logger    zerolog.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
}

// NewNotificationRetention constructs a retention runner.
func NewNotificationRetention(sweeper RetentionSweeper, retention time.Duration, logger zerolog.Logger) *NotificationRetention {
	return &NotificationRetention{
		sweeper:   sweeper,
		retention: retention,
		timeout:   5 * time.Minute,
		logger:    logger.With().Str("component", "notification_retention").Logger(),
	}
}

// RunOnce performs a single sweep and returns the number of deleted notifications.
func (r *NotificationRetention) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return r.sweeper.SweepExpired(ctx, r.retention)
}

// Start registers the sweep under schedule, a standard five-field cron expression.
func (r *NotificationRetention) Start(schedule string) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid retention schedule: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.scheduler != nil {
		return fmt.Errorf("retention scheduler already running")
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(schedule, r.tick); err != nil {
		return fmt.Errorf("failed to register retention sweep: %w", err)
	}
	scheduler.Start()
	r.scheduler = scheduler

	r.logger.Info().Str("schedule", schedule).Dur("retention", r.retention).Msg("retention scheduler started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (r *NotificationRetention) Stop() {
	r.mu.Lock()
	scheduler := r.scheduler
	r.scheduler = nil
	r.mu.Unlock()

	if scheduler == nil {
		return
	}
	ctx := scheduler.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("retention scheduler stopped")
}

func (r *NotificationRetention) tick() {
	if _, err := r.RunOnce(context.Background()); err != nil {
		r.logger.Error().Err(err).Msg("retention sweep failed")
	}
}
