package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/mappers"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/models"
	db "github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/mapper"
)

type EventRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
	}
}

func (r *EventRepository) Log(ctx context.Context, e *ticket.Event) error {
	model, err := r.mapper.EventToModel(e)
	if err != nil {
		return err
	}
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(model)
	if result.Error != nil {
		return fmt.Errorf("failed to log event: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		e.ID = model.ID
	}
	return nil
}

func (r *EventRepository) ListByTicket(ctx context.Context, ticketID uint) ([]*ticket.Event, error) {
	var eventModels []models.EventModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Where("ticket_id = ?", ticketID).
		Order("id ASC").
		Find(&eventModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return mapper.MapSliceWithError(eventModels, func(m models.EventModel) (*ticket.Event, error) {
		return r.mapper.EventToDomain(&m)
	})
}
