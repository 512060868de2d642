package sla

import (
	"context"
	"time"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

// Bucket is the reminder decision for one ticket.
type Bucket int

const (
	BucketSend Bucket = iota
	BucketSkipNoOwner
	BucketSkipInterval
	BucketSkipQuiet
)

// Buckets lists every bucket in display order.
func Buckets() []Bucket {
	return []Bucket{BucketSend, BucketSkipNoOwner, BucketSkipInterval, BucketSkipQuiet}
}

func (b Bucket) String() string {
	switch b {
	case BucketSend:
		return "send"
	case BucketSkipNoOwner:
		return "skip_no_responsible"
	case BucketSkipInterval:
		return "skip_interval"
	case BucketSkipQuiet:
		return "skip_quiet"
	}
	return "unknown"
}

// Plan groups reminder candidates by bucket.
type Plan struct {
	GeneratedAt time.Time
	entries     map[Bucket][]*ticket.Ticket
}

func newPlan(at time.Time) *Plan {
	return &Plan{GeneratedAt: at, entries: make(map[Bucket][]*ticket.Ticket, len(Buckets()))}
}

func (p *Plan) add(b Bucket, t *ticket.Ticket) {
	p.entries[b] = append(p.entries[b], t)
}

// Tickets returns the tickets in bucket b.
func (p *Plan) Tickets(b Bucket) []*ticket.Ticket {
	return p.entries[b]
}

// Counts returns the size of every bucket, zero ones included.
func (p *Plan) Counts() map[Bucket]int {
	out := make(map[Bucket]int, len(Buckets()))
	for _, b := range Buckets() {
		out[b] = len(p.entries[b])
	}
	return out
}

// Total is the number of planned tickets across buckets.
func (p *Plan) Total() int {
	n := 0
	for _, ts := range p.entries {
		n += len(ts)
	}
	return n
}

// reminderStatuses are the statuses that get reminders.
var reminderStatuses = []vo.Status{vo.StatusOverdue, vo.StatusResponded}

type PlanConfig struct {
	ReminderInterval time.Duration
	QuietHoursStart  int
	QuietHoursEnd    int
}

type PlanUseCase struct {
	tickets ticket.TicketRepository
	cfg     PlanConfig
	logger  logger.Interface
}

func NewPlanUseCase(tickets ticket.TicketRepository, cfg PlanConfig, logger logger.Interface) *PlanUseCase {
	return &PlanUseCase{tickets: tickets, cfg: cfg, logger: logger}
}

// Execute sorts reminder candidates into buckets. The first matching rule
// wins: no owner, then a recent reminder, then quiet hours.
func (uc *PlanUseCase) Execute(ctx context.Context, now time.Time) (*Plan, error) {
	candidates, err := uc.tickets.List(ctx, ticket.TicketFilter{StatusIn: reminderStatuses})
	if err != nil {
		return nil, err
	}

	plan := newPlan(now)
	quiet := biztime.InQuietHours(now, uc.cfg.QuietHoursStart, uc.cfg.QuietHoursEnd)
	for _, t := range candidates {
		plan.add(uc.classify(t, now, quiet), t)
	}

	counts := plan.Counts()
	uc.logger.Infow("reminder plan",
		"send", counts[BucketSend],
		"skip_no_responsible", counts[BucketSkipNoOwner],
		"skip_interval", counts[BucketSkipInterval],
		"skip_quiet", counts[BucketSkipQuiet],
	)
	return plan, nil
}

func (uc *PlanUseCase) classify(t *ticket.Ticket, now time.Time, quiet bool) Bucket {
	switch {
	case !t.HasOwner():
		return BucketSkipNoOwner
	case t.LastReminder != nil && now.Sub(*t.LastReminder) < uc.cfg.ReminderInterval:
		return BucketSkipInterval
	case quiet:
		return BucketSkipQuiet
	}
	return BucketSend
}
