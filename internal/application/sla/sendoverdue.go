package sla

import (
	"context"
	"time"

	"github.com/slatrack/slatrack/internal/application/notify"
	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

type SendOverdueCommand struct {
	Preview bool
}

type SendOverdueResult struct {
	Recalc      *RecalcResult
	Plan        *Plan
	PreviewMode bool
	Sent        int
	InThread    int
	Previewed   int
	NoAllowed   int
	Failed      int
}

type SendOverdueConfig struct {
	EscalationMatrix map[vo.Priority][]string
	SafeMode         bool
	AllowSend        bool
	QuietHoursStart  int
	QuietHoursEnd    int
}

// SendOverdueUseCase recalculates, plans and then mails every ticket in the send bucket.
type SendOverdueUseCase struct {
	recalc   *RecalcUseCase
	planner  *PlanUseCase
	composer *notify.Composer
	policy   notify.RecipientPolicy
	mail     mailbox.Factory
	tickets  ticket.TicketRepository
	events   ticket.EventRepository
	tx       db.Transactor
	cfg      SendOverdueConfig
	logger   logger.Interface
	now      func() time.Time
}

func NewSendOverdueUseCase(
	recalc *RecalcUseCase,
	planner *PlanUseCase,
	composer *notify.Composer,
	policy notify.RecipientPolicy,
	mail mailbox.Factory,
	tickets ticket.TicketRepository,
	events ticket.EventRepository,
	tx db.Transactor,
	cfg SendOverdueConfig,
	logger logger.Interface,
) *SendOverdueUseCase {
	return &SendOverdueUseCase{
		recalc:   recalc,
		planner:  planner,
		composer: composer,
		policy:   policy,
		mail:     mail,
		tickets:  tickets,
		events:   events,
		tx:       tx,
		cfg:      cfg,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *SendOverdueUseCase) WithClock(now func() time.Time) *SendOverdueUseCase {
	uc.now = now
	return uc
}

func (uc *SendOverdueUseCase) Execute(ctx context.Context, cmd SendOverdueCommand) (*SendOverdueResult, error) {
	recalc, err := uc.recalc.Execute(ctx)
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	plan, err := uc.planner.Execute(ctx, now)
	if err != nil {
		return nil, err
	}

	quiet := biztime.InQuietHours(now, uc.cfg.QuietHoursStart, uc.cfg.QuietHoursEnd)
	preview := cmd.Preview || uc.cfg.SafeMode || !uc.cfg.AllowSend || quiet
	result := &SendOverdueResult{Recalc: recalc, Plan: plan, PreviewMode: preview}

	send := plan.Tickets(BucketSend)
	if len(send) == 0 {
		uc.logger.Infow("no reminders to send")
		return result, nil
	}

	client, err := uc.mail(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	for _, t := range send {
		msg, err := uc.composer.Overdue(t)
		if err != nil {
			return nil, err
		}
		to := append([]string{t.Responsible}, uc.cfg.EscalationMatrix[t.Priority]...)
		allowed, blocked := uc.policy.Filter(to)
		if len(blocked) > 0 {
			uc.logger.Infow("blocked recipients by policy", "ticket_id", t.ID, "blocked", blocked)
		}
		msg.To = allowed

		if preview {
			msg.Preview = true
			uc.logger.Infow("preview reminder", "ticket_id", t.ID, "to", allowed, "subject", msg.Subject, "quiet", quiet)
			if len(allowed) > 0 {
				if err := client.SendMail(ctx, msg); err != nil {
					uc.logger.Warnw("failed to render reminder preview", "ticket_id", t.ID, "error", err)
				}
			}
			result.Previewed++
			continue
		}
		if len(allowed) == 0 {
			uc.logger.Infow("no allowed recipients after policy filtering", "ticket_id", t.ID)
			result.NoAllowed++
			continue
		}

		inThread, err := uc.deliver(ctx, client, t, msg)
		if err != nil {
			uc.logger.Errorw("failed to send reminder", "ticket_id", t.ID, "error", err)
			result.Failed++
			continue
		}
		if inThread {
			result.InThread++
		}

		if err := uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := uc.tickets.MarkReminderSent(ctx, t.ID, now); err != nil {
				return err
			}
			ev := ticket.NewEvent(t.ID, ticket.EventReminderSent, ticket.SourceMail, now).
				WithStatus(t.Status, t.Status).
				WithDetails(map[string]any{"to": allowed, "in_thread": inThread})
			return uc.events.Log(ctx, ev)
		}); err != nil {
			return nil, err
		}
		result.Sent++
	}

	uc.logger.Infow("reminder dispatch summary",
		"sent", result.Sent,
		"previewed", result.Previewed,
		"no_allowed", result.NoAllowed,
		"failed", result.Failed,
	)
	return result, nil
}

// deliver replies in the original thread when possible, falling back to a new message.
func (uc *SendOverdueUseCase) deliver(ctx context.Context, client mailbox.Client, t *ticket.Ticket, msg mailbox.OutgoingMail) (bool, error) {
	if t.EntryID != "" {
		err := client.ReplyOverdue(ctx, t.EntryID, msg)
		if err == nil {
			uc.logger.Infow("sent in-thread reminder", "ticket_id", t.ID)
			return true, nil
		}
		uc.logger.Warnw("in-thread reminder failed, sending new mail", "ticket_id", t.ID, "error", err)
	}
	if err := client.SendMail(ctx, msg); err != nil {
		return false, err
	}
	uc.logger.Infow("sent reminder", "ticket_id", t.ID)
	return false, nil
}
