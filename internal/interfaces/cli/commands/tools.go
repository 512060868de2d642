package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slatrack/slatrack/internal/application/diagnose"
	"github.com/slatrack/slatrack/internal/application/recommend"
	"github.com/slatrack/slatrack/internal/application/seed"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
)

func NewDiagnoseCommand(opts *app.Options) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Report mailbox counts, data paths and send settings",
	}
	cmd.Flags().IntVar(&days, "days", 0, "Days of mail to inspect (default: ingest.days)")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		_, n := sinceDays(c, days)
		report, err := c.Diagnose().Execute(ctx, diagnose.Command{Days: n})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "diagnose", report)
	})
	return cmd
}

func NewSeedTestCommand(opts *app.Options) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "seed-test",
		Short: "Create synthetic test tickets",
	}
	cmd.Flags().StringSliceVar(&statuses, "status", []string{string(vo.StatusNew)}, "Status of a seeded ticket, repeatable")
	cmd.RunE = withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
		codes := make([]vo.Status, 0, len(statuses))
		for _, s := range statuses {
			codes = append(codes, vo.Status(s))
		}
		res, err := c.Seed().Execute(ctx, seed.Command{Statuses: codes})
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), "seed_test", res)
	})
	return cmd
}

func NewAnswersCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answers",
		Short: "Manage the recommendation answer corpus",
	}
	importCmd := &cobra.Command{
		Use:   "import [xlsx]",
		Short: "Replace the answer corpus with a workbook (default: paths.answers)",
		Args:  cobra.MaximumNArgs(1),
	}
	importCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return withContainer(opts, func(ctx context.Context, cmd *cobra.Command, c *app.Container) error {
			path := c.Config().Paths.Answers
			if len(args) > 0 {
				path = args[0]
			}
			res, err := c.ImportAnswers().Execute(ctx, recommend.ImportAnswersCommand{Path: path})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), "answers_import", res)
		})(cmd, args)
	}
	cmd.AddCommand(importCmd)
	return cmd
}

func NewConfigCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(opts)
			if err != nil {
				return err
			}
			out, err := cfg.Dump()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	})
	return cmd
}
