// Package daemon runs the pipeline on a schedule until interrupted.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/slatrack/slatrack/internal/application/pipeline"
	"github.com/slatrack/slatrack/internal/application/sla"
	"github.com/slatrack/slatrack/internal/infrastructure/scheduler"
	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
)

const (
	reminderCron    = "0 * * * *"
	reminderTimeout = 30 * time.Minute
)

func NewCommand(opts *app.Options) *cobra.Command {
	var noReminders bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run sync-all every scheduler.interval_minutes and reminders hourly",
		Long: `Start the scheduler daemon. The sync-all pipeline runs immediately and then
every scheduler.interval_minutes; overdue reminders are dispatched at the top of
every hour. A pass that is still running delays the next one.`,
	}
	cmd.Flags().BoolVar(&noReminders, "no-reminders", false, "Do not schedule reminder dispatch")
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return run(cmd.Context(), opts, noReminders)
	}
	return cmd
}

func run(parent context.Context, opts *app.Options, noReminders bool) error {
	if parent == nil {
		parent = context.Background()
	}
	c, err := app.New(parent, opts)
	if err != nil {
		return err
	}
	defer c.Close()
	log := c.Logger().Named("daemon")

	manager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	interval := time.Duration(c.Config().Scheduler.IntervalMinutes) * time.Minute
	runner := c.Pipeline()
	days := c.Config().Ingest.Days
	syncJob := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
		report, err := runner.Run(ctx, pipeline.Command{Days: days})
		if err != nil {
			return 0, err
		}
		return report.Ingest.Processed, nil
	})
	if err := manager.RegisterSyncJob(syncJob, interval, interval); err != nil {
		return fmt.Errorf("failed to register sync job: %w", err)
	}

	if !noReminders {
		sender, err := c.SendOverdue()
		if err != nil {
			return err
		}
		reminderJob := scheduler.BatchJobFunc(func(ctx context.Context) (int, error) {
			res, err := sender.Execute(ctx, sla.SendOverdueCommand{})
			if err != nil {
				return 0, err
			}
			return res.Sent + res.Previewed, nil
		})
		if err := manager.RegisterReminderJob(reminderJob, reminderCron, reminderTimeout); err != nil {
			return fmt.Errorf("failed to register reminder job: %w", err)
		}
	}

	manager.Start()
	log.Infow("scheduler running", "interval", interval.String(), "reminders", !noReminders)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Infow("shutting down scheduler...")
	if err := manager.Stop(); err != nil {
		return err
	}
	log.Infow("scheduler exited gracefully")
	return nil
}
