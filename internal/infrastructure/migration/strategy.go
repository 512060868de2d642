package migration

import (
	"context"
	"embed"
	"fmt"
	"os"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"

	"github.com/slatrack/slatrack/internal/infrastructure/persistence/migrations"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

//go:embed scripts/*.sql
var embeddedScripts embed.FS

const (
	StrategySchema = "schema"
	StrategyGoose  = "goose"

	embeddedDir  = "scripts"
	gooseDialect = "sqlite3"
)

// Strategy defines the interface for different migration strategies
type Strategy interface {
	// Migrate brings the store up to date.
	Migrate(ctx context.Context, db *gorm.DB) error
	// GetName returns the strategy name
	GetName() string
}

// SchemaStrategy derives the schema from the gorm models and repairs legacy data.
// Every pipeline step runs it first.
type SchemaStrategy struct {
	logger logger.Interface
}

func NewSchemaStrategy() Strategy {
	return &SchemaStrategy{
		logger: logger.NewLogger().With("component", "migration.schema"),
	}
}

func (s *SchemaStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	s.logger.Debugw("ensuring schema")
	if err := migrations.MigrateTicketTables(db.WithContext(ctx)); err != nil {
		s.logger.Errorw("schema ensure failed", "error", err)
		return err
	}
	return nil
}

func (s *SchemaStrategy) GetName() string {
	return StrategySchema
}

// GooseStrategy applies the versioned SQL scripts embedded in the binary.
// Create writes new scripts to scriptsPath on disk.
type GooseStrategy struct {
	scriptsPath string
	logger      logger.Interface
}

func NewGooseStrategy(scriptsPath string) *GooseStrategy {
	return &GooseStrategy{
		scriptsPath: scriptsPath,
		logger:      logger.NewLogger().With("component", "migration.goose"),
	}
}

func (s *GooseStrategy) setup() error {
	goose.SetBaseFS(embeddedScripts)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

func (s *GooseStrategy) Migrate(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.setup(); err != nil {
		return err
	}

	currentVersion, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		s.logger.Errorw("failed to get current version", "error", err)
		return fmt.Errorf("failed to get current version: %w", err)
	}

	if err := goose.UpContext(ctx, sqlDB, embeddedDir); err != nil {
		s.logger.Errorw("migration failed", "error", err)
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	finalVersion, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return fmt.Errorf("failed to get final version: %w", err)
	}

	s.logger.Infow("migration completed successfully",
		"from_version", currentVersion,
		"to_version", finalVersion)
	return nil
}

func (s *GooseStrategy) GetName() string {
	return StrategyGoose
}

func (s *GooseStrategy) MigrateDown(ctx context.Context, db *gorm.DB, steps int) error {
	s.logger.Infow("starting down migration", "steps", steps)

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.setup(); err != nil {
		return err
	}

	for i := 0; i < steps; i++ {
		if err := goose.DownContext(ctx, sqlDB, embeddedDir); err != nil {
			s.logger.Errorw("down migration failed", "error", err)
			return fmt.Errorf("failed to run down migration: %w", err)
		}
	}
	return nil
}

func (s *GooseStrategy) GetVersion(ctx context.Context, db *gorm.DB) (int64, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return 0, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.setup(); err != nil {
		return 0, err
	}
	version, err := goose.GetDBVersionContext(ctx, sqlDB)
	if err != nil {
		return 0, fmt.Errorf("failed to get version: %w", err)
	}
	return version, nil
}

func (s *GooseStrategy) Status(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := s.setup(); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, sqlDB, embeddedDir); err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	return nil
}

// Create writes a new timestamped SQL script into scriptsPath.
func (s *GooseStrategy) Create(name string) error {
	if err := os.MkdirAll(s.scriptsPath, 0o755); err != nil {
		return fmt.Errorf("failed to create scripts directory: %w", err)
	}
	goose.SetBaseFS(nil)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Create(nil, s.scriptsPath, name, "sql"); err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}
	s.logger.Infow("migration created successfully", "name", name, "dir", s.scriptsPath)
	return nil
}
