package ticket

import (
	"time"

	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
)

type EventType string

const (
	EventIngest         EventType = "ingest"
	EventSeedTestTicket EventType = "seed_test_ticket"
	EventExcelSync      EventType = "excel_sync"
	EventExcelConflict  EventType = "excel_conflict"
	EventMailResponse   EventType = "mail_response"
	EventComment        EventType = "comment"
	EventUIUpdate       EventType = "ui_update"
	EventReminderSent   EventType = "reminder_sent"
)

// Event is an append-only audit record. ItemEntryID, when set, makes the
// insert idempotent: logging the same external item twice is a no-op.
type Event struct {
	ID           uint
	TicketID     uint
	Type         EventType
	StatusBefore vo.Status
	StatusAfter  vo.Status
	Source       string
	CreatedAt    time.Time
	RawResponse  string
	ItemEntryID  *string
	Details      map[string]any
}

// NewEvent builds an event stamped at now.
func NewEvent(ticketID uint, eventType EventType, source string, now time.Time) *Event {
	return &Event{
		TicketID:  ticketID,
		Type:      eventType,
		Source:    source,
		CreatedAt: now.UTC(),
	}
}

// WithStatus records the status transition.
func (e *Event) WithStatus(before, after vo.Status) *Event {
	e.StatusBefore = before
	e.StatusAfter = after
	return e
}

// WithEntryID keys the event for idempotent insertion. Empty ids are ignored.
func (e *Event) WithEntryID(id string) *Event {
	if id != "" {
		e.ItemEntryID = &id
	}
	return e
}

func (e *Event) WithRaw(raw string) *Event {
	e.RawResponse = raw
	return e
}

func (e *Event) WithDetails(details map[string]any) *Event {
	e.Details = details
	return e
}

// Answer is one question/answer pair of the recommendation corpus.
type Answer struct {
	ID       uint
	TicketID *uint
	Question string
	Answer   string
}
