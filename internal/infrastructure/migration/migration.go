package migration

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

// DefaultScriptsPath is where `migrate create` writes new scripts.
const DefaultScriptsPath = "internal/infrastructure/migration/scripts"

// Manager handles database migrations with different strategies
type Manager struct {
	strategy Strategy
	logger   logger.Interface
}

// NewManager picks the strategy named by database.migration_strategy.
func NewManager(strategyName string) (*Manager, error) {
	var strategy Strategy
	switch strings.ToLower(strategyName) {
	case "", StrategySchema:
		strategy = NewSchemaStrategy()
	case StrategyGoose:
		strategy = NewGooseStrategy(DefaultScriptsPath)
	default:
		return nil, fmt.Errorf("unknown migration strategy %q", strategyName)
	}
	return NewManagerWithStrategy(strategy), nil
}

// NewManagerWithStrategy creates a new migration manager with a specific strategy
func NewManagerWithStrategy(strategy Strategy) *Manager {
	return &Manager{
		strategy: strategy,
		logger:   logger.NewLogger().With("component", "migration.manager"),
	}
}

// Migrate executes the configured migration strategy
func (m *Manager) Migrate(ctx context.Context, db *gorm.DB) error {
	if err := m.strategy.Migrate(ctx, db); err != nil {
		m.logger.Errorw("migration failed", "strategy", m.strategy.GetName(), "error", err)
		return fmt.Errorf("migration failed with strategy %s: %w", m.strategy.GetName(), err)
	}
	return nil
}

// GetStrategy returns the current migration strategy
func (m *Manager) GetStrategy() Strategy {
	return m.strategy
}

// EnsureSchema is the schema strategy as a plain function, for pipeline steps.
func EnsureSchema(ctx context.Context, db *gorm.DB) error {
	return NewSchemaStrategy().Migrate(ctx, db)
}

// SchemaGuard binds EnsureSchema to a connection.
type SchemaGuard struct {
	db *gorm.DB
}

func NewSchemaGuard(db *gorm.DB) *SchemaGuard {
	return &SchemaGuard{db: db}
}

func (g *SchemaGuard) EnsureSchema(ctx context.Context) error {
	return EnsureSchema(ctx, g.db)
}
