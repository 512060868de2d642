package migrate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slatrack/slatrack/internal/infrastructure/database"
	"github.com/slatrack/slatrack/internal/infrastructure/migration"
	"github.com/slatrack/slatrack/internal/interfaces/cli/app"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

func NewCommand(opts *app.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration tools",
		Long:  `Apply, roll back and inspect the versioned SQL migrations embedded in the binary.`,
	}

	cmd.AddCommand(
		newUpCommand(opts),
		newDownCommand(opts),
		newStatusCommand(opts),
		newCreateCommand(opts),
	)

	return cmd
}

func newUpCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Run all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGoose(cmd.Context(), opts, func(ctx context.Context, s *migration.GooseStrategy, log logger.Interface) error {
				log.Infow("running up migrations")
				if err := s.Migrate(ctx, database.Get()); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				log.Infow("migrations completed successfully")
				return nil
			})
		},
	}
}

func newDownCommand(opts *app.Options) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Rollback migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGoose(cmd.Context(), opts, func(ctx context.Context, s *migration.GooseStrategy, log logger.Interface) error {
				log.Infow("running down migrations", "steps", steps)
				if err := s.MigrateDown(ctx, database.Get(), steps); err != nil {
					return fmt.Errorf("down migration failed: %w", err)
				}
				log.Infow("down migration completed successfully")
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&steps, "steps", "n", 1, "Number of migrations to rollback")
	return cmd
}

func newStatusCommand(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withGoose(cmd.Context(), opts, func(ctx context.Context, s *migration.GooseStrategy, _ logger.Interface) error {
				version, err := s.GetVersion(ctx, database.Get())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nMigration Status:\n")
				fmt.Fprintf(cmd.OutOrStdout(), "  Current Version: %d\n", version)
				return s.Status(ctx, database.Get())
			})
		},
	}
}

func newCreateCommand(opts *app.Options) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new migration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.LoadConfig(opts); err != nil {
				return err
			}
			defer logger.Sync()
			s := migration.NewGooseStrategy(migration.DefaultScriptsPath)
			if err := s.Create(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migration '%s' created in %s\n", name, migration.DefaultScriptsPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the migration (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// withGoose opens the store without the schema strategy and hands fn the
// goose strategy over the embedded scripts.
func withGoose(ctx context.Context, opts *app.Options, fn func(context.Context, *migration.GooseStrategy, logger.Interface) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := app.LoadConfig(opts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	log := logger.NewLogger().Named("migrate")
	if err := fn(ctx, migration.NewGooseStrategy(migration.DefaultScriptsPath), log); err != nil {
		log.Errorw("migrate command failed", "error", err)
		return err
	}
	return nil
}
