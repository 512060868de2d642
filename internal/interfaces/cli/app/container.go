// Package app wires configuration, storage, mail and use cases for the CLI.
package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/infrastructure/config"
	"github.com/slatrack/slatrack/internal/infrastructure/database"
	"github.com/slatrack/slatrack/internal/infrastructure/migration"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

// Options are the global flags shared by every command.
type Options struct {
	ConfigPath string
}

// Container holds the infrastructure of one CLI invocation. Use cases are
// built on demand so a command only pays for what it runs.
type Container struct {
	cfg    *config.Config
	db     *gorm.DB
	log    logger.Interface
	sink   logger.Sink
	repos  *repositories
	schema *migration.SchemaGuard
	tx     db.Transactor
	mail   mailbox.Factory
}

// LoadConfig loads and validates the configuration and applies the process
// level settings derived from it: logger and business timezone.
func LoadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := biztime.Init(cfg.App.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}
	return cfg, nil
}

// New opens the store and builds the shared infrastructure.
func New(ctx context.Context, opts *Options) (*Container, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, err
	}
	gdb := database.Get()

	c := &Container{
		cfg:    cfg,
		db:     gdb,
		log:    logger.NewLogger(),
		sink:   logger.NewConsoleSink(os.Stderr),
		repos:  newRepositories(gdb),
		schema: migration.NewSchemaGuard(gdb),
		tx:     db.NewTransactionManager(gdb),
	}
	if cfg.Database.MigrationStrategy == migration.StrategyGoose {
		manager, err := migration.NewManager(cfg.Database.MigrationStrategy)
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		if err := manager.Migrate(ctx, gdb); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	c.mail = c.newMailFactory()
	return c, nil
}

func (c *Container) Config() *config.Config {
	return c.cfg
}

func (c *Container) Logger() logger.Interface {
	return c.log
}

// Sink is the console observer pipeline runs report into.
func (c *Container) Sink() logger.Sink {
	return c.sink
}

func (c *Container) DB() *gorm.DB {
	return c.db
}

// Close releases the store and flushes the log file.
func (c *Container) Close() error {
	err := database.Close()
	_ = logger.Sync()
	return err
}

// EnsureSchema brings the store schema up to date for commands that read
// tickets without running a full step.
func (c *Container) EnsureSchema(ctx context.Context) error {
	return c.schema.EnsureSchema(ctx)
}
