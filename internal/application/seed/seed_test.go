package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/domain/ticket/testutil"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/db"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

var fixedNow = time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

func newUseCase(store *testutil.Store) *UseCase {
	return NewUseCase(store, store.Tickets(), store.Events(), db.NoopTransactor{}, logger.NewNopLogger()).
		WithClock(func() time.Time { return fixedNow })
}

func TestNewTestTicket(t *testing.T) {
	tests := []struct {
		name        string
		status      vo.Status
		received    time.Time
		days        int
		overdue     bool
		responsible string
	}{
		{name: "new has no owner", status: vo.StatusNew, received: fixedNow},
		{name: "assigned", status: vo.StatusAssigned, received: fixedNow, responsible: testResponsible},
		{name: "overdue is backdated", status: vo.StatusOverdue, received: fixedNow.AddDate(0, 0, -5), days: 5, overdue: true, responsible: testResponsible},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := NewTestTicket(tt.status, fixedNow)
			require.NoError(t, tk.Validate())
			assert.Equal(t, "[TEST][SLA] Synthetic "+tt.status.String()+" ticket", tk.Subject)
			assert.Equal(t, tt.received, tk.FirstReceived)
			assert.Equal(t, tt.days, tk.DaysWithoutUpdate)
			assert.Equal(t, tt.overdue, tk.Overdue)
			assert.Equal(t, tt.responsible, tk.Responsible)
			assert.Equal(t, vo.PriorityP3, tk.Priority)
			assert.Equal(t, ticket.SourceTest, tk.DataSource)
			assert.Equal(t, ticket.SourceTestSeed, tk.LastUpdatedBy)
			assert.Contains(t, tk.ConvID, "test-"+tt.status.String()+"-")
		})
	}
}

func TestUseCase_Execute(t *testing.T) {
	store := testutil.NewStore()

	result, err := newUseCase(store).Execute(context.Background(), Command{Statuses: []vo.Status{"OVERDUE", vo.StatusResponded}})
	require.NoError(t, err)
	require.Len(t, result.TicketIDs, 2)

	overdue := store.Get(result.TicketIDs[0])
	assert.Equal(t, vo.StatusOverdue, overdue.Status)
	assert.True(t, overdue.Overdue)

	events := store.EventsOf(ticket.EventSeedTestTicket)
	require.Len(t, events, 2)
	assert.Equal(t, ticket.SourceTestSeed, events[0].Source)
	assert.Equal(t, vo.StatusOverdue, events[0].StatusAfter)
	assert.Equal(t, vo.StatusResponded, events[1].StatusAfter)
}

func TestUseCase_DefaultsToNew(t *testing.T) {
	store := testutil.NewStore()

	result, err := newUseCase(store).Execute(context.Background(), Command{})
	require.NoError(t, err)
	require.Len(t, result.TicketIDs, 1)
	assert.Equal(t, vo.StatusNew, store.Get(result.TicketIDs[0]).Status)
}

func TestUseCase_RejectsUnknownStatus(t *testing.T) {
	store := testutil.NewStore()

	_, err := newUseCase(store).Execute(context.Background(), Command{Statuses: []vo.Status{"bogus"}})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
	assert.Empty(t, store.All())
	assert.Zero(t, store.SchemaCalls)
}

func TestUseCase_StoreError(t *testing.T) {
	store := testutil.NewStore()
	store.UpsertErr = errors.New("disk full")

	_, err := newUseCase(store).Execute(context.Background(), Command{Statuses: []vo.Status{vo.StatusNew}})
	require.Error(t, err)
	assert.Empty(t, store.EventsOf(ticket.EventSeedTestTicket))
}
