package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/mappers"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/models"
	db "github.com/slatrack/slatrack/internal/shared/db"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
)

// upsertColumns are overwritten when an ingested thread already exists.
// first_received_utc is kept from the original row.
var upsertColumns = []string{
	"stable_id", "entry_id", "sender", "subject", "body",
	"first_forward_utc", "first_forward_to", "first_reply_utc", "first_reply_body",
	"responsible", "status", "last_status_utc", "days_without_update", "overdue",
	"not_interesting", "customer_email", "is_repeat", "repeat_hint", "recommended_answer",
	"match_score", "topic", "last_reminder_utc", "priority", "last_updated_at",
	"last_updated_by", "data_source", "comment",
}

type TicketRepository struct {
	db     *gorm.DB
	mapper mappers.TicketMapper
}

func NewTicketRepository(db *gorm.DB) *TicketRepository {
	return &TicketRepository{
		db:     db,
		mapper: mappers.NewTicketMapper(),
	}
}

func (r *TicketRepository) Upsert(ctx context.Context, t *ticket.Ticket) (uint, error) {
	if err := t.Validate(); err != nil {
		return 0, apperrors.NewValidationError("invalid ticket", err.Error())
	}
	model := r.mapper.ToModel(t)
	model.ID = 0
	if model.RowVersion < 1 {
		model.RowVersion = 1
	}
	tx := db.GetTxFromContext(ctx, r.db)

	set := clause.AssignmentColumns(upsertColumns)
	set = append(set, clause.Assignment{
		Column: clause.Column{Name: "row_version"},
		Value:  gorm.Expr("tickets.row_version + 1"),
	})
	if err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conv_id"}, {Name: "thread_key"}},
		DoUpdates: set,
	}).Create(model).Error; err != nil {
		return 0, fmt.Errorf("failed to upsert ticket: %w", err)
	}

	// On conflict sqlite reports the last insert rowid of an unrelated row, so re-select by key.
	var stored models.TicketModel
	if err := tx.
		Select("id", "row_version").
		Where("conv_id = ? AND thread_key = ?", model.ConvID, model.ThreadKey).
		First(&stored).Error; err != nil {
		return 0, fmt.Errorf("failed to reload upserted ticket: %w", err)
	}
	t.ID = stored.ID
	t.RowVersion = stored.RowVersion
	return stored.ID, nil
}

func (r *TicketRepository) UpdateVersioned(ctx context.Context, t *ticket.Ticket, expected int) (bool, error) {
	model := r.mapper.ToModel(t)
	values := mutableValues(model)
	values["row_version"] = expected + 1

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ? AND row_version = ?", model.ID, expected).
		Updates(values)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	t.RowVersion = expected + 1
	return true, nil
}

func (r *TicketRepository) Update(ctx context.Context, t *ticket.Ticket) error {
	model := r.mapper.ToModel(t)
	values := mutableValues(model)
	values["row_version"] = gorm.Expr("row_version + 1")

	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ?", model.ID).
		Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update ticket: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("ticket not found", fmt.Sprintf("id=%d", model.ID))
	}
	t.RowVersion++
	return nil
}

func (r *TicketRepository) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	tx := db.GetTxFromContext(ctx, r.db)
	result := tx.
		Model(&models.TicketModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_reminder_utc": at.UTC().UnixMilli(),
			"row_version":       gorm.Expr("row_version + 1"),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark reminder: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("ticket not found", fmt.Sprintf("id=%d", id))
	}
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	var model models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)

	if err := tx.First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("ticket not found", fmt.Sprintf("id=%d", id))
		}
		return nil, fmt.Errorf("failed to find ticket: %w", err)
	}
	return r.mapper.ToDomain(&model), nil
}

func (r *TicketRepository) FindByConvID(ctx context.Context, convID string) ([]*ticket.Ticket, error) {
	if convID == "" {
		return nil, nil
	}
	return r.find(ctx, "conv_id = ?", convID)
}

func (r *TicketRepository) FindByThreadKey(ctx context.Context, threadKey string) ([]*ticket.Ticket, error) {
	if threadKey == "" {
		return nil, nil
	}
	return r.find(ctx, "thread_key = ?", threadKey)
}

func (r *TicketRepository) find(ctx context.Context, where string, arg interface{}) ([]*ticket.Ticket, error) {
	var ticketModels []models.TicketModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.
		Where(where, arg).
		Order("first_received_utc DESC").
		Find(&ticketModels).Error; err != nil {
		return nil, fmt.Errorf("failed to find tickets: %w", err)
	}
	return r.toDomainList(ticketModels), nil
}

func (r *TicketRepository) List(ctx context.Context, filter ticket.TicketFilter) ([]*ticket.Ticket, error) {
	tx := db.GetTxFromContext(ctx, r.db)
	query := tx.Model(&models.TicketModel{})

	if len(filter.StatusIn) > 0 {
		query = query.Where("status IN ?", statusStrings(filter.StatusIn))
	}
	if len(filter.StatusNotIn) > 0 {
		query = query.Where("status NOT IN ?", statusStrings(filter.StatusNotIn))
	}
	if filter.ReceivedSince != nil {
		query = query.Where("first_received_utc >= ?", filter.ReceivedSince.UTC().UnixMilli())
	}
	if filter.ReceivedUntil != nil {
		query = query.Where("first_received_utc <= ?", filter.ReceivedUntil.UTC().UnixMilli())
	}
	if filter.OverdueOnly {
		query = query.Where("overdue = ?", true)
	}

	var ticketModels []models.TicketModel
	if err := query.Order("first_received_utc DESC").Find(&ticketModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return r.toDomainList(ticketModels), nil
}

func (r *TicketRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Model(&models.TicketModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return total, nil
}

func (r *TicketRepository) toDomainList(ticketModels []models.TicketModel) []*ticket.Ticket {
	tickets := make([]*ticket.Ticket, len(ticketModels))
	for i := range ticketModels {
		tickets[i] = r.mapper.ToDomain(&ticketModels[i])
	}
	return tickets
}

// mutableValues lists every column an update may write; row_version is set by the caller.
func mutableValues(m *models.TicketModel) map[string]interface{} {
	return map[string]interface{}{
		"stable_id":           m.StableID,
		"conv_id":             m.ConvID,
		"thread_key":          m.ThreadKey,
		"entry_id":            m.EntryID,
		"first_received_utc":  m.FirstReceivedUTC,
		"sender":              m.Sender,
		"subject":             m.Subject,
		"body":                m.Body,
		"first_forward_utc":   m.FirstForwardUTC,
		"first_forward_to":    m.FirstForwardTo,
		"first_reply_utc":     m.FirstReplyUTC,
		"first_reply_body":    m.FirstReplyBody,
		"responsible":         m.Responsible,
		"status":              m.Status,
		"last_status_utc":     m.LastStatusUTC,
		"days_without_update": m.DaysWithoutUpdate,
		"overdue":             m.Overdue,
		"not_interesting":     m.NotInteresting,
		"customer_email":      m.CustomerEmail,
		"is_repeat":           m.IsRepeat,
		"repeat_hint":         m.RepeatHint,
		"recommended_answer":  m.RecommendedAnswer,
		"match_score":         m.MatchScore,
		"topic":               m.Topic,
		"last_reminder_utc":   m.LastReminderUTC,
		"priority":            m.Priority,
		"last_updated_at":     m.LastUpdatedAt,
		"last_updated_by":     m.LastUpdatedBy,
		"data_source":         m.DataSource,
		"comment":             m.Comment,
	}
}

func statusStrings[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
