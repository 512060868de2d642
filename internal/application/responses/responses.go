package responses

import (
	"context"
	"strings"
	"time"

	"github.com/slatrack/slatrack/internal/application/notify"
	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const commentEventPrefix = "comment:"

type Command struct {
	Since time.Time
}

type Result struct {
	Updated   int
	Skipped   int
	Confirmed int
}

type Config struct {
	// Confirm replies to every applied response with the list of changes.
	Confirm bool
	// Preview renders confirmations without delivering them.
	Preview bool
}

// UseCase scans the mailbox for replies and applies votes and commands to the
// matching tickets.
type UseCase struct {
	schema   ticket.SchemaEnsurer
	tickets  ticket.TicketRepository
	events   ticket.EventRepository
	tx       db.Transactor
	mail     mailbox.Factory
	composer *notify.Composer
	cfg      Config
	logger   logger.Interface
	now      func() time.Time
}

func NewUseCase(
	schema ticket.SchemaEnsurer,
	tickets ticket.TicketRepository,
	events ticket.EventRepository,
	tx db.Transactor,
	mail mailbox.Factory,
	composer *notify.Composer,
	cfg Config,
	logger logger.Interface,
) *UseCase {
	return &UseCase{
		schema:   schema,
		tickets:  tickets,
		events:   events,
		tx:       tx,
		mail:     mail,
		composer: composer,
		cfg:      cfg,
		logger:   logger,
		now:      biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

type confirmation struct {
	entryID string
	body    string
}

func (uc *UseCase) Execute(ctx context.Context, cmd Command) (*Result, error) {
	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	client, err := uc.mail(ctx)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	messages, err := client.Messages(ctx, cmd.Since, time.Time{})
	if err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	result := &Result{}
	var confirmations []confirmation

	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, m := range messages {
			if !m.IsMail() {
				continue
			}
			edit := editFromMessage(m)
			if edit.IsEmpty() {
				result.Skipped++
				continue
			}
			t, err := uc.findTicket(ctx, m)
			if err != nil {
				return err
			}
			if t == nil {
				uc.logger.Debugw("response does not match any ticket", "entry_id", m.EntryID, "subject", m.Subject)
				result.Skipped++
				continue
			}

			before := t.Status
			t.ApplyResponse(edit, now)
			if err := uc.tickets.Update(ctx, t); err != nil {
				return err
			}

			raw := m.VotingResponse
			if raw == "" {
				raw = m.Subject
			}
			ev := ticket.NewEvent(t.ID, ticket.EventMailResponse, ticket.SourceMail, now).
				WithStatus(before, t.Status).
				WithRaw(raw).
				WithEntryID(m.EntryID)
			if err := uc.events.Log(ctx, ev); err != nil {
				return err
			}
			if edit.Comment != nil {
				key := ""
				if m.EntryID != "" {
					key = commentEventPrefix + m.EntryID
				}
				ev := ticket.NewEvent(t.ID, ticket.EventComment, ticket.SourceMail, now).
					WithStatus(before, t.Status).
					WithRaw(*edit.Comment).
					WithEntryID(key)
				if err := uc.events.Log(ctx, ev); err != nil {
					return err
				}
			}

			uc.logger.Infow("applied mail response",
				"ticket_id", t.ID,
				"entry_id", m.EntryID,
				"changes", strings.Join(edit.Changes(), "; "),
			)
			if uc.cfg.Confirm && m.EntryID != "" {
				confirmations = append(confirmations, confirmation{
					entryID: m.EntryID,
					body:    uc.composer.Confirmation(edit.Changes()) + "\n\n" + m.Body,
				})
			}
			result.Updated++
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("response processing failed, rolled back", "error", err)
		return nil, err
	}

	for _, c := range confirmations {
		err := client.Reply(ctx, c.entryID, mailbox.OutgoingMail{Body: c.body, Preview: uc.cfg.Preview})
		if err != nil {
			uc.logger.Warnw("failed to send confirmation", "entry_id", c.entryID, "error", err)
			continue
		}
		result.Confirmed++
	}

	uc.logger.Infow("response processing summary",
		"updated", result.Updated,
		"skipped", result.Skipped,
		"confirmed", result.Confirmed,
	)
	return result, nil
}

// findTicket looks a reply up by conversation id, then by normalized subject.
func (uc *UseCase) findTicket(ctx context.Context, m mailbox.Message) (*ticket.Ticket, error) {
	if m.ConvID != "" {
		found, err := uc.tickets.FindByConvID(ctx, m.ConvID)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			return found[0], nil
		}
	}
	found, err := uc.tickets.FindByThreadKey(ctx, strings.ToLower(ticket.NormalizeSubject(m.Subject)))
	if err != nil {
		return nil, err
	}
	if len(found) > 0 {
		return found[0], nil
	}
	return nil, nil
}
