// Package testutil provides an in-memory ticket store and fixtures for tests
// of the ticket use cases.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
)

// Store keeps tickets, events and answers in memory with the same version
// and idempotency rules as the sqlite repositories.
type Store struct {
	mu      sync.Mutex
	nextID  uint
	tickets map[uint]*ticket.Ticket
	events  []*ticket.Event
	answers []*ticket.Answer
	entries map[string]struct{}

	// SchemaCalls counts EnsureSchema invocations.
	SchemaCalls int
	// UpsertErr, when set, fails every Upsert.
	UpsertErr error
}

func NewStore() *Store {
	return &Store{
		tickets: make(map[uint]*ticket.Ticket),
		entries: make(map[string]struct{}),
	}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SchemaCalls++
	return nil
}

// Tickets returns the repository view of the store.
func (s *Store) Tickets() ticket.TicketRepository { return ticketRepo{s} }

// Events returns the event log view of the store.
func (s *Store) Events() ticket.EventRepository { return eventRepo{s} }

// Answers returns the answer corpus view of the store.
func (s *Store) Answers() ticket.AnswerRepository { return answerRepo{s} }

// Put stores t as is, assigning an id when it has none. It returns the id.
func (s *Store) Put(t *ticket.Ticket) uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		s.nextID++
		t.ID = s.nextID
	} else if t.ID > s.nextID {
		s.nextID = t.ID
	}
	s.tickets[t.ID] = t.Clone()
	return t.ID
}

// Get returns a copy of the stored ticket or nil.
func (s *Store) Get(id uint) *ticket.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tickets[id]; ok {
		return t.Clone()
	}
	return nil
}

// All returns copies of every ticket ordered by id.
func (s *Store) All() []*ticket.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*ticket.Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EventsOf returns the logged events of the given type, oldest first.
func (s *Store) EventsOf(eventType ticket.EventType) []*ticket.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ticket.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type ticketRepo struct{ s *Store }

func (r ticketRepo) Upsert(ctx context.Context, t *ticket.Ticket) (uint, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.UpsertErr != nil {
		return 0, s.UpsertErr
	}
	for id, existing := range s.tickets {
		if existing.ConvID == t.ConvID && existing.ThreadKey == t.ThreadKey {
			c := t.Clone()
			c.ID = id
			c.FirstReceived = existing.FirstReceived
			c.RowVersion = existing.RowVersion + 1
			s.tickets[id] = c
			return id, nil
		}
	}
	s.nextID++
	c := t.Clone()
	c.ID = s.nextID
	c.RowVersion = 1
	s.tickets[c.ID] = c
	return c.ID, nil
}

func (r ticketRepo) UpdateVersioned(ctx context.Context, t *ticket.Ticket, expected int) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tickets[t.ID]
	if !ok || existing.RowVersion != expected {
		return false, nil
	}
	c := t.Clone()
	c.RowVersion = expected + 1
	s.tickets[t.ID] = c
	t.RowVersion = c.RowVersion
	return true, nil
}

func (r ticketRepo) Update(ctx context.Context, t *ticket.Ticket) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tickets[t.ID]
	if !ok {
		return apperrors.NewNotFoundError("ticket not found")
	}
	c := t.Clone()
	c.RowVersion = existing.RowVersion + 1
	s.tickets[t.ID] = c
	t.RowVersion = c.RowVersion
	return nil
}

func (r ticketRepo) MarkReminderSent(ctx context.Context, id uint, at time.Time) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tickets[id]
	if !ok {
		return apperrors.NewNotFoundError("ticket not found")
	}
	existing.MarkReminded(at)
	existing.RowVersion++
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id uint) (*ticket.Ticket, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("ticket not found")
	}
	return t.Clone(), nil
}

func (r ticketRepo) FindByConvID(ctx context.Context, convID string) ([]*ticket.Ticket, error) {
	return r.find(func(t *ticket.Ticket) bool { return t.ConvID == convID }), nil
}

func (r ticketRepo) FindByThreadKey(ctx context.Context, threadKey string) ([]*ticket.Ticket, error) {
	return r.find(func(t *ticket.Ticket) bool { return t.ThreadKey == threadKey }), nil
}

// find returns matches newest first.
func (r ticketRepo) find(match func(*ticket.Ticket) bool) []*ticket.Ticket {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ticket.Ticket
	for _, t := range s.tickets {
		if match(t) {
			out = append(out, t.Clone())
		}
	}
	sortNewestFirst(out)
	return out
}

func (r ticketRepo) List(ctx context.Context, filter ticket.TicketFilter) ([]*ticket.Ticket, error) {
	return r.find(func(t *ticket.Ticket) bool {
		if len(filter.StatusIn) > 0 && !hasStatus(filter.StatusIn, t.Status) {
			return false
		}
		if len(filter.StatusNotIn) > 0 && hasStatus(filter.StatusNotIn, t.Status) {
			return false
		}
		if filter.ReceivedSince != nil && t.FirstReceived.Before(*filter.ReceivedSince) {
			return false
		}
		if filter.ReceivedUntil != nil && t.FirstReceived.After(*filter.ReceivedUntil) {
			return false
		}
		if filter.OverdueOnly && !t.Overdue {
			return false
		}
		return true
	}), nil
}

func (r ticketRepo) Count(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return int64(len(r.s.tickets)), nil
}

func hasStatus(set []vo.Status, s vo.Status) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func sortNewestFirst(ts []*ticket.Ticket) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].FirstReceived.Equal(ts[j].FirstReceived) {
			return ts[i].FirstReceived.After(ts[j].FirstReceived)
		}
		return ts[i].ID > ts[j].ID
	})
}

type eventRepo struct{ s *Store }

func (r eventRepo) Log(ctx context.Context, e *ticket.Event) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ItemEntryID != nil {
		if _, dup := s.entries[*e.ItemEntryID]; dup {
			return nil
		}
		s.entries[*e.ItemEntryID] = struct{}{}
	}
	c := *e
	c.ID = uint(len(s.events) + 1)
	s.events = append(s.events, &c)
	return nil
}

func (r eventRepo) ListByTicket(ctx context.Context, ticketID uint) ([]*ticket.Event, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*ticket.Event
	for _, e := range s.events {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

type answerRepo struct{ s *Store }

func (r answerRepo) List(ctx context.Context) ([]*ticket.Answer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]*ticket.Answer(nil), r.s.answers...), nil
}

func (r answerRepo) ReplaceAll(ctx context.Context, answers []*ticket.Answer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.answers = append([]*ticket.Answer(nil), answers...)
	for i, a := range r.s.answers {
		a.ID = uint(i + 1)
	}
	return nil
}
