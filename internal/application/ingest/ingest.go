// Package ingest turns mailbox messages into deduplicated tickets.
package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

// ingestEventPrefix keeps ingest event keys apart from response events, which
// are keyed by the entry ids of the same inbox.
const ingestEventPrefix = "ingest:"

type Command struct {
	Since              time.Time
	Until              time.Time
	IgnoreSenderFilter bool
}

type Result struct {
	Processed            int
	SkippedSenderFilter  int
	SkippedNonMail       int
	SkippedNoReceiveTime int
}

type Config struct {
	SenderFilter    mailbox.SenderFilter
	InternalDomains []string
	// DataSource names the mailbox adapter in ticket.data_source.
	DataSource string
}

type UseCase struct {
	schema  ticket.SchemaEnsurer
	tickets ticket.TicketRepository
	events  ticket.EventRepository
	tx      db.Transactor
	mail    mailbox.Factory
	cfg     Config
	logger  logger.Interface
	now     func() time.Time
}

func NewUseCase(
	schema ticket.SchemaEnsurer,
	tickets ticket.TicketRepository,
	events ticket.EventRepository,
	tx db.Transactor,
	mail mailbox.Factory,
	cfg Config,
	logger logger.Interface,
) *UseCase {
	if cfg.DataSource == "" {
		cfg.DataSource = ticket.SourceOutlook
	}
	return &UseCase{
		schema:  schema,
		tickets: tickets,
		events:  events,
		tx:      tx,
		mail:    mail,
		cfg:     cfg,
		logger:  logger,
		now:     biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

func (uc *UseCase) Execute(ctx context.Context, cmd Command) (*Result, error) {
	uc.logger.Infow("executing ingest use case", "since", cmd.Since, "until", cmd.Until)

	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	client, err := uc.mail(ctx)
	if err != nil {
		uc.logger.Errorw("failed to open mailbox", "error", err)
		return nil, err
	}
	defer client.Close()

	sent, err := client.SentItems(ctx, cmd.Since)
	if err != nil {
		uc.logger.Errorw("failed to read sent items", "error", err)
		return nil, err
	}
	index := BuildSentIndex(sent)

	msgs, err := client.Messages(ctx, cmd.Since, cmd.Until)
	if err != nil {
		uc.logger.Errorw("failed to read inbox", "error", err)
		return nil, err
	}

	filter := uc.cfg.SenderFilter
	if cmd.IgnoreSenderFilter {
		filter = mailbox.SenderFilter{Mode: mailbox.FilterOff}
	}

	result := &Result{}
	now := uc.now().UTC()
	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, m := range msgs {
			switch {
			case !m.IsMail():
				result.SkippedNonMail++
				continue
			case m.Received.IsZero():
				result.SkippedNoReceiveTime++
				continue
			case !filter.Passes(m.Sender):
				result.SkippedSenderFilter++
				continue
			}

			prev, err := uc.findExisting(ctx, m)
			if err != nil {
				return err
			}
			t := uc.buildTicket(m, index, prev, now)
			mergeExisting(t, prev)
			id, err := uc.tickets.Upsert(ctx, t)
			if err != nil {
				return fmt.Errorf("upsert ticket for %s: %w", m.EntryID, err)
			}
			if m.EntryID != "" {
				ev := ticket.NewEvent(id, ticket.EventIngest, ticket.SourceIngest, now).
					WithStatus("", t.Status).
					WithEntryID(ingestEventPrefix + m.EntryID)
				if err := uc.events.Log(ctx, ev); err != nil {
					return err
				}
			}
			result.Processed++
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("ingest failed, rolled back", "error", err)
		return nil, err
	}

	uc.logger.Infow("ingest summary",
		"processed", result.Processed,
		"skipped_sender_filter", result.SkippedSenderFilter,
		"skipped_non_mail", result.SkippedNonMail,
		"skipped_no_receive_time", result.SkippedNoReceiveTime,
		"sent_threads", index.Len(),
	)
	return result, nil
}

// buildTicket maps m onto a ticket. A thread is anchored on its earliest
// message: when prev was received before m, the first message's fields are
// kept and replies and forwards are looked up from the first receive time.
func (uc *UseCase) buildTicket(m mailbox.Message, index *SentIndex, prev *ticket.Ticket, now time.Time) *ticket.Ticket {
	received := m.Received.UTC()
	key := ticket.ThreadKey(m.ConvID, m.Subject)
	sender := strings.ToLower(strings.TrimSpace(m.Sender))
	body := ticket.CleanBody(m.Body)

	t := &ticket.Ticket{
		ConvID:        m.ConvID,
		ThreadKey:     key,
		EntryID:       m.EntryID,
		FirstReceived: received,
		Sender:        sender,
		CustomerEmail: mailbox.CustomerEmail(m, uc.cfg.InternalDomains),
		Subject:       m.Subject,
		Body:          body,
		LastUpdatedBy: ticket.SourceIngest,
		DataSource:    uc.cfg.DataSource,
		LastUpdatedAt: &now,
	}
	anchored := prev != nil && !prev.FirstReceived.IsZero() && prev.FirstReceived.Before(received)
	if anchored {
		t.EntryID = prev.EntryID
		t.FirstReceived = prev.FirstReceived
		t.Sender = prev.Sender
		t.Subject = prev.Subject
		t.Body = prev.Body
		if prev.CustomerEmail != "" {
			t.CustomerEmail = prev.CustomerEmail
		}
	}

	reply, hasReply := index.FirstReply(key, t.FirstReceived)
	if prev != nil && prev.FirstReply != nil && (!hasReply || prev.FirstReply.Before(reply.At)) {
		reply, hasReply = SentEvent{At: *prev.FirstReply, Payload: prev.FirstReplyBody}, true
	}
	if hasReply {
		at := reply.At
		t.FirstReply = &at
		t.FirstReplyBody = reply.Payload
	}
	fwd, hasForward := index.FirstForward(key, t.FirstReceived)
	if prev != nil && prev.FirstForward != nil && (!hasForward || prev.FirstForward.Before(fwd.At)) {
		fwd, hasForward = SentEvent{At: *prev.FirstForward, Payload: prev.FirstForwardTo}, true
	}
	if hasForward {
		at := fwd.At
		t.FirstForward = &at
		t.FirstForwardTo = fwd.Payload
		t.Responsible = fwd.Payload
	}

	t.Status = vo.DeriveBaseStatus(hasForward, hasReply, false, false)
	switch {
	case hasReply:
		t.LastStatusChange = reply.At
	case hasForward:
		t.LastStatusChange = fwd.At
	default:
		t.LastStatusChange = t.FirstReceived
	}
	t.DaysWithoutUpdate = biztime.DaysBetween(t.LastStatusChange, now)

	stable := ticket.ComputeStableID(m.ConvID, t.FirstReceived, t.Sender, ticket.NormalizeSubject(t.Subject), t.Body)
	t.StableID = &stable
	return t
}

// findExisting returns the stored ticket of m's thread, if any.
func (uc *UseCase) findExisting(ctx context.Context, m mailbox.Message) (*ticket.Ticket, error) {
	found, err := uc.tickets.FindByThreadKey(ctx, ticket.ThreadKey(m.ConvID, m.Subject))
	if err != nil {
		return nil, err
	}
	for _, f := range found {
		if f.ConvID == m.ConvID {
			return f, nil
		}
	}
	return nil, nil
}

// mergeExisting keeps what people and later passes changed on a thread that
// was ingested before: status only moves forward, and owner, priority,
// comment, reminder and recommendation fields survive re-ingestion.
func mergeExisting(t, prev *ticket.Ticket) {
	if prev == nil {
		return
	}

	raised := vo.Raise(prev.Status, t.Status)
	if raised == prev.Status {
		t.LastStatusChange = prev.LastStatusChange
		t.DaysWithoutUpdate = prev.DaysWithoutUpdate
		t.Overdue = prev.Overdue
	}
	t.Status = raised
	if prev.Responsible != "" {
		t.Responsible = prev.Responsible
	}
	if prev.StableID != nil {
		t.StableID = prev.StableID
	}
	t.Priority = prev.Priority
	t.Comment = prev.Comment
	t.LastReminder = prev.LastReminder
	t.NotInteresting = prev.NotInteresting
	t.IsRepeat = prev.IsRepeat
	t.RepeatHint = prev.RepeatHint
	t.RecommendedAnswer = prev.RecommendedAnswer
	t.MatchScore = prev.MatchScore
	t.Topic = prev.Topic
	if t.CustomerEmail == "" {
		t.CustomerEmail = prev.CustomerEmail
	}
}
