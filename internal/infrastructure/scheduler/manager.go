// Package scheduler runs the periodic pipeline passes using gocron v2.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/goroutine"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// BatchJobFunc adapts a function to BatchJob.
type BatchJobFunc func(ctx context.Context) (int, error)

func (f BatchJobFunc) Execute(ctx context.Context) (int, error) {
	return f(ctx)
}

// SchedulerManager owns the gocron scheduler of the run command.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager initializes gocron with the business timezone for cron
// expressions. At most one job runs at a time: passes share one store, so a
// reminder run due during a sync pass waits for it.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
		gocron.WithLimitConcurrentJobs(1, gocron.LimitModeWait),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterSyncJob runs the sync-all pipeline every interval, starting
// immediately. A pass that is still running when the next one is due
// delays it instead of overlapping.
func (m *SchedulerManager) RegisterSyncJob(job BatchJob, interval, timeout time.Duration) error {
	if interval <= 0 {
		return errors.New("sync interval must be positive")
	}
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			m.runJob("sync-all", job, timeout)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("pipeline", "sync"),
		gocron.WithName("sync-all"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sync job", "interval", interval)
	return nil
}

// RegisterReminderJob dispatches overdue reminders on a cron schedule in the
// business timezone, e.g. "0 * * * *".
func (m *SchedulerManager) RegisterReminderJob(job BatchJob, cron string, timeout time.Duration) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob(cron, false),
		gocron.NewTask(func() {
			m.runJob("send-overdue", job, timeout)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("reminder"),
		gocron.WithName("send-overdue"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered reminder job", "cron", cron)
	return nil
}

func (m *SchedulerManager) runJob(name string, job BatchJob, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	m.logger.Debugw("job started", "job", name)
	startTime := biztime.NowUTC()

	var count int
	err := goroutine.SafeRun(m.logger, name, func() error {
		var err error
		count, err = job.Execute(ctx)
		return err
	})
	if err != nil {
		// Don't log error if context was cancelled (graceful shutdown)
		if errors.Is(err, context.Canceled) {
			return
		}
		m.logger.Errorw("job failed",
			"job", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	m.logger.Infow("job completed",
		"job", name,
		"count", count,
		"duration", time.Since(startTime),
	)
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
