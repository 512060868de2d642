package migrations

import (
	"fmt"

	"gorm.io/gorm"

	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/models"
)

// Models lists every table the store owns.
func Models() []any {
	return []any{
		&models.TicketModel{},
		&models.EventModel{},
		&models.AnswerModel{},
	}
}

// MigrateTicketTables creates tables, indexes and any column an older store
// lacks, then repairs legacy status codes. Safe to run any number of times.
func MigrateTicketTables(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to auto-migrate tables: %w", err)
	}
	return MigrateLegacyStatuses(db)
}

// MigrateLegacyStatuses rewrites corrupted and aliased status codes in place.
// Each rewritten row gets a new row_version so open Excel edits of it conflict.
func MigrateLegacyStatuses(db *gorm.DB) error {
	for _, m := range vo.LegacyStatusMigrations {
		if err := db.Model(&models.TicketModel{}).
			Where("status = ?", m.From).
			Updates(map[string]any{
				"status":      m.To.String(),
				"row_version": gorm.Expr("row_version + 1"),
			}).Error; err != nil {
			return fmt.Errorf("failed to migrate status %q: %w", m.From, err)
		}
	}
	return nil
}
