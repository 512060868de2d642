package recommend

import (
	"context"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/infrastructure/spreadsheet"
	"github.com/slatrack/slatrack/internal/shared/db"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

type ImportAnswersCommand struct {
	Path string
}

type ImportAnswersResult struct {
	Imported int
}

// ImportAnswersUseCase replaces the answer corpus with the pairs of a workbook.
type ImportAnswersUseCase struct {
	schema  ticket.SchemaEnsurer
	answers ticket.AnswerRepository
	tx      db.Transactor
	logger  logger.Interface
}

func NewImportAnswersUseCase(
	schema ticket.SchemaEnsurer,
	answers ticket.AnswerRepository,
	tx db.Transactor,
	logger logger.Interface,
) *ImportAnswersUseCase {
	return &ImportAnswersUseCase{schema: schema, answers: answers, tx: tx, logger: logger}
}

func (uc *ImportAnswersUseCase) Execute(ctx context.Context, cmd ImportAnswersCommand) (*ImportAnswersResult, error) {
	if cmd.Path == "" {
		return nil, apperrors.NewValidationError("answers workbook path is required")
	}
	rows, err := spreadsheet.ReadAnswers(cmd.Path)
	if err != nil {
		uc.logger.Errorw("failed to read answers workbook", "path", cmd.Path, "error", err)
		return nil, apperrors.NewValidationError("failed to read answers workbook", err.Error())
	}
	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	answers := make([]*ticket.Answer, 0, len(rows))
	for _, r := range rows {
		answers = append(answers, &ticket.Answer{TicketID: r.TicketID, Question: r.Question, Answer: r.Answer})
	}
	if err := uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		return uc.answers.ReplaceAll(ctx, answers)
	}); err != nil {
		return nil, err
	}

	uc.logger.Infow("answers imported", "path", cmd.Path, "count", len(answers))
	return &ImportAnswersResult{Imported: len(answers)}, nil
}
