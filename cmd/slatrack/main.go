package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
	"github.com/slatrack/slatrack/internal/interfaces/cli/commands"
	"github.com/slatrack/slatrack/internal/interfaces/cli/daemon"
	"github.com/slatrack/slatrack/internal/interfaces/cli/migrate"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/version"
)

func main() {
	opts := &app.Options{}
	rootCmd := &cobra.Command{
		Use:          "slatrack",
		Short:        "SLA tracking for customer mail threads",
		Long:         `slatrack ingests customer mail into tickets, tracks them against SLA deadlines, syncs an operator workbook and sends reminders.`,
		Version:      version.String(),
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	rootCmd.AddCommand(
		commands.NewIngestCommand(opts),
		commands.NewRecalcCommand(opts),
		commands.NewExportCommand(opts),
		commands.NewSyncCommand(opts),
		commands.NewProcessResponsesCommand(opts),
		commands.NewPlanCommand(opts),
		commands.NewSendOverdueCommand(opts),
		commands.NewSendTestCommand(opts),
		commands.NewSyncAllCommand(opts),
		commands.NewDiagnoseCommand(opts),
		commands.NewSeedTestCommand(opts),
		commands.NewAnswersCommand(opts),
		commands.NewConfigCommand(opts),
		daemon.NewCommand(opts),
		migrate.NewCommand(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(apperrors.ExitCode(err))
	}
}
