// Package mailbox defines the mail-client contract used by ingestion,
// response processing and reminder dispatch.
package mailbox

import (
	"context"
	"strings"
	"time"
)

// ClassMail is the item class of an ordinary message. Meeting requests,
// receipts and other item kinds carry a different class and are skipped.
const ClassMail = 43

// Message is a received inbox item.
type Message struct {
	EntryID         string
	ConvID          string
	Class           int
	Subject         string
	Body            string
	Sender          string
	SenderName      string
	ReplyTo         string
	ReplyRecipients []string
	Received        time.Time
	VotingResponse  string
}

// IsMail reports whether the item is an ordinary message.
func (m Message) IsMail() bool {
	return m.Class == ClassMail
}

// SentItem is an item from the sent folder.
type SentItem struct {
	EntryID string
	ConvID  string
	Class   int
	Subject string
	Body    string
	To      string
	Sent    time.Time
}

func (s SentItem) IsMail() bool {
	return s.Class == ClassMail
}

// FirstRecipient returns the first address of a ;-separated To line.
func (s SentItem) FirstRecipient() string {
	first, _, _ := strings.Cut(s.To, ";")
	return strings.TrimSpace(first)
}

// OutgoingMail is a message to send. HTMLBody is optional.
type OutgoingMail struct {
	To            []string
	Subject       string
	Body          string
	HTMLBody      string
	VotingOptions []string
	// Preview renders the message to the log instead of sending it.
	Preview bool
}

// SenderFilter selects inbox messages by sender address.
type SenderFilter struct {
	Mode  string
	Value string
}

// SenderCount is one row of the top-senders diagnostic.
type SenderCount struct {
	Sender string
	Count  int
}

// Diagnostics summarizes what a mailbox holds for a period.
type Diagnostics struct {
	Mailbox         string
	Folder          string
	Total           int
	AfterFilter     int
	TopSenders      []SenderCount
	FilterTooStrict bool
}

// Client is a mail store plus a transport. Implementations must be closed.
type Client interface {
	Messages(ctx context.Context, since, until time.Time) ([]Message, error)
	SentItems(ctx context.Context, since time.Time) ([]SentItem, error)
	SendMail(ctx context.Context, mail OutgoingMail) error
	// ReplyOverdue answers in-thread to the item with entryID, keeping the thread intact.
	ReplyOverdue(ctx context.Context, entryID string, mail OutgoingMail) error
	Reply(ctx context.Context, entryID string, mail OutgoingMail) error
	Diagnose(ctx context.Context, since time.Time, filter SenderFilter) (*Diagnostics, error)
	Close() error
}

// Factory opens a client for one pipeline step.
type Factory func(ctx context.Context) (Client, error)
