// Package sla advances open tickets against their deadlines and dispatches
// overdue reminders.
package sla

import (
	"context"
	"time"

	"github.com/slatrack/slatrack/internal/application/recommend"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

// recalcExcluded are never swept.
var recalcExcluded = []vo.Status{
	vo.StatusResolved,
	vo.StatusNotInteresting,
	vo.StatusTable,
	vo.StatusInTable,
}

type RecalcResult struct {
	Touched   int
	Escalated int
	Paused    int
}

type RecalcConfig struct {
	Thresholds vo.ThresholdTable
	Calendar   biztime.Calendar
}

type RecalcUseCase struct {
	schema      ticket.SchemaEnsurer
	tickets     ticket.TicketRepository
	tx          db.Transactor
	recommender recommend.Recommender
	cfg         RecalcConfig
	logger      logger.Interface
	now         func() time.Time
}

// NewRecalcUseCase builds the sweep. recommender may be nil.
func NewRecalcUseCase(
	schema ticket.SchemaEnsurer,
	tickets ticket.TicketRepository,
	tx db.Transactor,
	recommender recommend.Recommender,
	cfg RecalcConfig,
	logger logger.Interface,
) *RecalcUseCase {
	return &RecalcUseCase{
		schema:      schema,
		tickets:     tickets,
		tx:          tx,
		recommender: recommender,
		cfg:         cfg,
		logger:      logger,
		now:         biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *RecalcUseCase) WithClock(now func() time.Time) *RecalcUseCase {
	uc.now = now
	return uc
}

func (uc *RecalcUseCase) Execute(ctx context.Context) (*RecalcResult, error) {
	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	result := &RecalcResult{}
	err := uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		open, err := uc.tickets.List(ctx, ticket.TicketFilter{StatusNotIn: recalcExcluded})
		if err != nil {
			return err
		}
		for _, t := range open {
			before := t.Status.Normalize()
			switch uc.advance(t, now) {
			case outcomePaused:
				result.Paused++
			case outcomeUpdated:
				if t.Status == vo.StatusOverdue && before != vo.StatusOverdue {
					result.Escalated++
				}
			}
			if err := uc.tickets.Update(ctx, t); err != nil {
				return err
			}
			result.Touched++
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("recalc failed, rolled back", "error", err)
		return nil, err
	}

	uc.logger.Infow("recalc summary",
		"touched", result.Touched,
		"escalated", result.Escalated,
		"paused", result.Paused,
	)

	if uc.recommender != nil {
		if _, err := uc.recommender.Refresh(ctx); err != nil {
			uc.logger.Warnw("recommendations refresh failed", "error", err)
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomePaused
)

// advance applies the SLA rules to t in place.
func (uc *RecalcUseCase) advance(t *ticket.Ticket, now time.Time) outcome {
	status := t.Status.Normalize()
	t.DaysWithoutUpdate = biztime.DaysBetween(t.LastStatusChange, now)

	if status == vo.StatusWaitingCustomer {
		t.Status = status
		t.Overdue = false
		return outcomePaused
	}

	th := uc.cfg.Thresholds.For(t.Priority)
	hours := uc.cfg.Calendar.HoursBetween(t.FirstReceived, now)

	overdue := (!t.HasReply() && hours >= th.FirstResponseHours) || hours >= th.ResolutionHours
	switch {
	case overdue && status != vo.StatusOverdue && status != vo.StatusResponded && status != vo.StatusAssigned:
		status = vo.StatusOverdue
	case (status == vo.StatusResponded || status == vo.StatusAssigned) && hours >= th.ResolutionHours:
		status = vo.StatusOverdue
	}

	t.Overdue = overdue
	t.Status = status
	t.LastStatusChange = now
	return outcomeUpdated
}
