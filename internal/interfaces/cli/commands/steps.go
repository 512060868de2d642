package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/slatrack/slatrack/internal/application/excelsync"
	"github.com/slatrack/slatrack/internal/application/ingest"
	"github.com/slatrack/slatrack/internal/application/responses"
	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
	"github.com/slatrack/slatrack/internal/shared/biztime"
)

// sinceDays resolves --days, falling back to ingest.days.
func sinceDays(c *app.Container, days int) (time.Time, int) {
	if days <= 0 {
		days = c.Config().Ingest.Days
	}
	return biztime.NowUTC().AddDate(0, 0, -days), days
}

func NewIngestCommand(opts *app.Options) *cobra.Command {
	var (
		days         int
		ignoreFilter bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Import inbox and sent mail into tickets",
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days of mail to scan (default: ingest.days)")
	cmd.Flags().BoolVar(&ignoreFilter, "ignore-filter", false, "Ignore the configured sender filter")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		since, _ := sinceDays(c, days)
		res, err := c.Ingest().Execute(ctx, ingest.Command{Since: since, IgnoreSenderFilter: ignoreFilter})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "ingest", res)
	})
	return cmd
}

func NewRecalcCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate SLA status of open tickets",
	}
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		res, err := c.Recalc().Execute(ctx)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "recalc", res)
	})
	return cmd
}

func NewExportCommand(opts *app.Options) *cobra.Command {
	var todayOnly bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write tickets to the operator workbook",
	}
	cmd.Flags().BoolVar(&todayOnly, "today-only", false, "Export only tickets received today")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		res, err := c.Export().Execute(ctx, excelsync.ExportCommand{TodayOnly: todayOnly})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "export", res)
	})
	return cmd
}

func NewSyncCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Apply workbook edits to the store",
	}
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		res, err := c.Sync().Execute(ctx)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "sync", res)
	})
	return cmd
}

func NewProcessResponsesCommand(opts *app.Options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "process-responses",
		Short: "Apply votes and slash commands from replies",
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days of mail to scan (default: ingest.days)")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		uc, err := c.Responses()
		if err != nil {
			return err
		}
		since, _ := sinceDays(c, days)
		res, err := uc.Execute(ctx, responses.Command{Since: since})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "process_responses", res)
	})
	return cmd
}

func NewSyncAllCommand(opts *app.Options) *cobra.Command {
	var (
		days   int
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:   "sync-all",
		Short: "Run workbook sync, ingest, recalc, export and plan in one pass",
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days of mail to scan (default: ingest.days)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Skip applying workbook edits")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		_, n := sinceDays(c, days)
		report, err := c.Pipeline().Run(ctx, pipelineCommand(n, dryRun))
		if report != nil {
			if perr := printResult(cmd.OutOrStdout(), "sync_all", summarizeReport(report)); perr != nil && err == nil {
				err = perr
			}
		}
		return err
	})
	return cmd
}
