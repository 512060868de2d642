package ticket

import (
	"context"
	"time"

	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
)

type TicketRepository interface {
	// Upsert inserts or updates by (conv_id, thread_key); first_received is
	// kept from the original row and row_version is bumped on update.
	Upsert(ctx context.Context, t *Ticket) (uint, error)
	// UpdateVersioned writes t only if the stored row_version equals expected.
	// A false result means a concurrent edit won.
	UpdateVersioned(ctx context.Context, t *Ticket, expected int) (bool, error)
	Update(ctx context.Context, t *Ticket) error
	MarkReminderSent(ctx context.Context, id uint, at time.Time) error
	GetByID(ctx context.Context, id uint) (*Ticket, error)
	FindByConvID(ctx context.Context, convID string) ([]*Ticket, error)
	FindByThreadKey(ctx context.Context, threadKey string) ([]*Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]*Ticket, error)
	Count(ctx context.Context) (int64, error)
}

// TicketFilter narrows List. Zero values disable the corresponding clause.
type TicketFilter struct {
	StatusIn      []vo.Status
	StatusNotIn   []vo.Status
	ReceivedSince *time.Time
	ReceivedUntil *time.Time
	OverdueOnly   bool
}

type EventRepository interface {
	// Log inserts e, silently ignoring a duplicate ItemEntryID.
	Log(ctx context.Context, e *Event) error
	ListByTicket(ctx context.Context, ticketID uint) ([]*Event, error)
}

type AnswerRepository interface {
	List(ctx context.Context) ([]*Answer, error)
	ReplaceAll(ctx context.Context, answers []*Answer) error
}

// SchemaEnsurer brings the store schema up to date. Every pipeline step calls
// it before touching tickets; it must be safe to call repeatedly.
type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}
