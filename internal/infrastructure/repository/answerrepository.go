package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/infrastructure/persistence/models"
	db "github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/mapper"
)

type AnswerRepository struct {
	db *gorm.DB
}

func NewAnswerRepository(db *gorm.DB) *AnswerRepository {
	return &AnswerRepository{db: db}
}

func (r *AnswerRepository) List(ctx context.Context) ([]*ticket.Answer, error) {
	var answerModels []models.AnswerModel
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Order("id ASC").Find(&answerModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list answers: %w", err)
	}
	return mapper.MapSlice(answerModels, func(m models.AnswerModel) *ticket.Answer {
		return &ticket.Answer{ID: m.ID, TicketID: m.TicketID, Question: m.Question, Answer: m.Answer}
	}), nil
}

// ReplaceAll swaps the whole corpus. Callers wrap it in a transaction.
func (r *AnswerRepository) ReplaceAll(ctx context.Context, answers []*ticket.Answer) error {
	tx := db.GetTxFromContext(ctx, r.db)
	if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.AnswerModel{}).Error; err != nil {
		return fmt.Errorf("failed to clear answers: %w", err)
	}
	if len(answers) == 0 {
		return nil
	}
	rows := mapper.MapSlice(answers, func(a *ticket.Answer) models.AnswerModel {
		return models.AnswerModel{TicketID: a.TicketID, Question: a.Question, Answer: a.Answer}
	})
	if err := tx.CreateInBatches(rows, 200).Error; err != nil {
		return fmt.Errorf("failed to insert answers: %w", err)
	}
	return nil
}
