// Package jobs runs scheduled housekeeping inside the API process.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	operatorports "github.com/localborga/milling-orders/internal/domains/operators/ports"
	orderports "github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// DefaultPurgeSchedule runs purges at the top of every hour.
const DefaultPurgeSchedule = "@hourly"

const purgeTimeout = 30 * time.Second

// PurgeFunc removes whatever expired as of now and reports how many rows went.
type PurgeFunc func(ctx context.Context, now time.Time) (int64, error)

// PurgeJob runs a PurgeFunc on a cron schedule.
type PurgeJob struct {
	name     string
	purge    PurgeFunc
	cron     *cron.Cron
	schedule string
	logger   *slog.Logger
	now      func() time.Time
}

// NewPurgeJob schedules purge under name; an empty schedule means DefaultPurgeSchedule.
func NewPurgeJob(name string, purge PurgeFunc, schedule string, logger *slog.Logger) *PurgeJob {
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeJob{
		name:     name,
		purge:    purge,
		cron:     cron.New(),
		schedule: schedule,
		logger:   logger.With("component", name+"_purge_job"),
		now:      time.Now,
	}
}

// NewSessionPurgeJob deletes operator sessions past their expiry.
func NewSessionPurgeJob(store operatorports.SessionStore, schedule string, logger *slog.Logger) *PurgeJob {
	return NewPurgeJob("session", store.PurgeExpired, schedule, logger)
}

// NewIdempotencyPurgeJob forgets checkout keys older than retention, after which a retried
// checkout places a new order.
func NewIdempotencyPurgeJob(store orderports.IdempotencyStore, retention time.Duration, schedule string, logger *slog.Logger) *PurgeJob {
	if retention <= 0 {
		retention = orderports.DefaultIdempotencyRetention
	}
	return NewPurgeJob("idempotency_key", func(ctx context.Context, now time.Time) (int64, error) {
		return store.PurgeBefore(ctx, now.Add(-retention))
	}, schedule, logger)
}

// Start registers the purge and starts the cron runner.
func (j *PurgeJob) Start() error {
	if _, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("purge job started", "schedule", j.schedule)
	return nil
}

// RunOnce purges now.
func (j *PurgeJob) RunOnce(ctx context.Context) (int64, error) {
	purged, err := j.purge(ctx, j.now())
	if err != nil {
		j.logger.ErrorContext(ctx, "purge failed", "error", err)
		return 0, err
	}
	if purged > 0 {
		j.logger.InfoContext(ctx, "expired rows purged", "count", purged)
	}
	return purged, nil
}

// Stop stops scheduling and waits for a running purge to finish.
func (j *PurgeJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info("purge job stopped")
}
