// Package seed creates synthetic tickets for exercising the pipeline end to end.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const (
	testSender      = "test@example.com"
	testResponsible = "responsible@example.com"
	overdueAge      = 5
)

type Command struct {
	Statuses []vo.Status
}

type Result struct {
	TicketIDs []uint
}

type UseCase struct {
	schema  ticket.SchemaEnsurer
	tickets ticket.TicketRepository
	events  ticket.EventRepository
	tx      db.Transactor
	logger  logger.Interface
	now     func() time.Time
}

func NewUseCase(
	schema ticket.SchemaEnsurer,
	tickets ticket.TicketRepository,
	events ticket.EventRepository,
	tx db.Transactor,
	logger logger.Interface,
) *UseCase {
	return &UseCase{
		schema:  schema,
		tickets: tickets,
		events:  events,
		tx:      tx,
		logger:  logger,
		now:     biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

// Execute creates one synthetic ticket per requested status. An empty
// command seeds a single new ticket.
func (uc *UseCase) Execute(ctx context.Context, cmd Command) (*Result, error) {
	requested := cmd.Statuses
	if len(requested) == 0 {
		requested = []vo.Status{vo.StatusNew}
	}
	statuses := make([]vo.Status, 0, len(requested))
	for _, s := range requested {
		n := s.Normalize()
		if !n.IsValid() {
			return nil, apperrors.NewValidationError("unknown status", s.String())
		}
		statuses = append(statuses, n)
	}

	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	result := &Result{}
	now := uc.now().UTC()
	err := uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, s := range statuses {
			id, err := uc.seedOne(ctx, s, now)
			if err != nil {
				return err
			}
			result.TicketIDs = append(result.TicketIDs, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *UseCase) seedOne(ctx context.Context, status vo.Status, now time.Time) (uint, error) {
	t := NewTestTicket(status, now)
	id, err := uc.tickets.Upsert(ctx, t)
	if err != nil {
		return 0, err
	}
	ev := ticket.NewEvent(id, ticket.EventSeedTestTicket, ticket.SourceTestSeed, now).
		WithStatus("", status).
		WithDetails(map[string]any{"conv_id": t.ConvID})
	if err := uc.events.Log(ctx, ev); err != nil {
		return 0, err
	}
	uc.logger.Infow("test ticket seeded", "ticket_id", id, "status", status.String())
	return id, nil
}

// NewTestTicket builds the synthetic ticket for status. Overdue tickets are
// backdated so the SLA sweep keeps them overdue.
func NewTestTicket(status vo.Status, now time.Time) *ticket.Ticket {
	stamp := now.Unix()
	received := now
	days := 0
	if status == vo.StatusOverdue {
		received = now.AddDate(0, 0, -overdueAge)
		days = overdueAge
	}
	t := &ticket.Ticket{
		ConvID:            fmt.Sprintf("test-%s-%d", status, stamp),
		ThreadKey:         fmt.Sprintf("test-thread-%s-%d", status, stamp),
		FirstReceived:     received,
		Sender:            testSender,
		CustomerEmail:     testSender,
		Subject:           fmt.Sprintf("[TEST][SLA] Synthetic %s ticket", status),
		Body:              "Synthetic ticket for pipeline checks.",
		Status:            status,
		LastStatusChange:  received,
		DaysWithoutUpdate: days,
		Overdue:           status == vo.StatusOverdue,
		Priority:          vo.PriorityP3,
	}
	if status != vo.StatusNew {
		t.Responsible = testResponsible
	}
	t.Touch(ticket.SourceTestSeed, ticket.SourceTest, now)
	return t
}
