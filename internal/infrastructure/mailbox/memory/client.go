// Package memory provides an in-memory mailbox.Client for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
)

// Name is reported as the ticket data source of ingested mail.
const Name = "memory"

// Outgoing is a recorded outgoing message.
type Outgoing struct {
	Kind    string // send, reply or reply_overdue
	EntryID string
	Mail    mailbox.OutgoingMail
}

// Client keeps inbox and sent items in memory and records everything sent.
// Error fields make the next matching call fail.
type Client struct {
	mu sync.Mutex

	Inbox []mailbox.Message
	Sent  []mailbox.SentItem

	Outbox []Outgoing
	Closed bool

	MessagesErr     error
	SentItemsErr    error
	SendErr         error
	ReplyOverdueErr error
	ReplyErr        error
}

func New() *Client {
	return &Client{}
}

// Factory returns c from every call, reopening it.
func (c *Client) Factory() mailbox.Factory {
	return func(ctx context.Context) (mailbox.Client, error) {
		c.mu.Lock()
		c.Closed = false
		c.mu.Unlock()
		return c, nil
	}
}

func (c *Client) AddMessage(m mailbox.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Class == 0 {
		m.Class = mailbox.ClassMail
	}
	c.Inbox = append(c.Inbox, m)
}

func (c *Client) AddSent(s mailbox.SentItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s.Class == 0 {
		s.Class = mailbox.ClassMail
	}
	c.Sent = append(c.Sent, s)
}

// Recorded returns a copy of the outgoing messages.
func (c *Client) Recorded() []Outgoing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Outgoing(nil), c.Outbox...)
}

func (c *Client) Messages(_ context.Context, since, until time.Time) ([]mailbox.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.MessagesErr != nil {
		return nil, c.MessagesErr
	}

	var out []mailbox.Message
	for _, m := range c.Inbox {
		if !m.Received.IsZero() && (m.Received.Before(since) || (!until.IsZero() && !m.Received.Before(until))) {
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Received.Before(out[j].Received) })
	return out, nil
}

func (c *Client) SentItems(_ context.Context, since time.Time) ([]mailbox.SentItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SentItemsErr != nil {
		return nil, c.SentItemsErr
	}

	var out []mailbox.SentItem
	for _, s := range c.Sent {
		if s.Sent.Before(since) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Client) SendMail(_ context.Context, m mailbox.OutgoingMail) error {
	return c.record("send", "", m, c.SendErr)
}

func (c *Client) ReplyOverdue(_ context.Context, entryID string, m mailbox.OutgoingMail) error {
	if !c.has(entryID) {
		return apperrors.NewNotFoundError("message not found", entryID)
	}
	return c.record("reply_overdue", entryID, m, c.ReplyOverdueErr)
}

func (c *Client) Reply(_ context.Context, entryID string, m mailbox.OutgoingMail) error {
	if !c.has(entryID) {
		return apperrors.NewNotFoundError("message not found", entryID)
	}
	return c.record("reply", entryID, m, c.ReplyErr)
}

func (c *Client) Diagnose(ctx context.Context, since time.Time, filter mailbox.SenderFilter) (*mailbox.Diagnostics, error) {
	msgs, err := c.Messages(ctx, since, time.Time{})
	if err != nil {
		return nil, err
	}
	d := &mailbox.Diagnostics{Mailbox: Name, Folder: "inbox"}
	counts := map[string]int{}
	for _, m := range msgs {
		if !m.IsMail() {
			continue
		}
		d.Total++
		counts[m.Sender]++
		if filter.Passes(m.Sender) {
			d.AfterFilter++
		}
	}
	for s, n := range counts {
		d.TopSenders = append(d.TopSenders, mailbox.SenderCount{Sender: s, Count: n})
	}
	sort.Slice(d.TopSenders, func(i, j int) bool {
		if d.TopSenders[i].Count != d.TopSenders[j].Count {
			return d.TopSenders[i].Count > d.TopSenders[j].Count
		}
		return d.TopSenders[i].Sender < d.TopSenders[j].Sender
	})
	d.FilterTooStrict = filter.Active() && d.Total > 0 && d.AfterFilter == 0
	return d, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Closed = true
	return nil
}

func (c *Client) has(entryID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.Inbox {
		if m.EntryID == entryID {
			return true
		}
	}
	return false
}

func (c *Client) record(kind, entryID string, m mailbox.OutgoingMail, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		return err
	}
	c.Outbox = append(c.Outbox, Outgoing{Kind: kind, EntryID: entryID, Mail: m})
	return nil
}
