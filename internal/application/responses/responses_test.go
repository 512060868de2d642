package responses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatrack/slatrack/internal/application/notify"
	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/domain/ticket/testutil"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/mailbox/memory"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
	"github.com/slatrack/slatrack/internal/shared/services/markdown"
)

var fixedNow = time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

func TestParseCommandBlock_StopsAtQuote(t *testing.T) {
	commands := ParseCommandBlock("/status resolved\n/owner user@example.com\n\n> quoted line\n/status ignored")
	assert.Equal(t, "resolved", commands["status"])
	assert.Equal(t, "user@example.com", commands["owner"])
	for _, v := range commands {
		assert.NotContains(t, v, "ignored")
	}
}

func TestParseCommandBlock(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{
			name: "empty",
			body: "",
			want: map[string]string{},
		},
		{
			name: "later duplicate wins",
			body: "/status waiting\r\n/STATUS  resolved \r\n",
			want: map[string]string{"status": "resolved"},
		},
		{
			name: "plain text lines are skipped",
			body: "Коллеги, закрываю\n/comment отправили повторно\n/prio p1",
			want: map[string]string{"comment": "отправили повторно", "prio": "p1"},
		},
		{
			name: "stops at russian header",
			body: "/owner a@naos.com\nОт: client@shop.ru\n/status resolved",
			want: map[string]string{"owner": "a@naos.com"},
		},
		{
			name: "stops at from header",
			body: "/prio 2\nFrom: x\n/owner b",
			want: map[string]string{"prio": "2"},
		},
		{
			name: "bare slash ignored",
			body: "/\n/comment",
			want: map[string]string{"comment": ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommandBlock(tt.body))
		})
	}
}

func TestEditFromMessage(t *testing.T) {
	tests := []struct {
		name   string
		msg    mailbox.Message
		status vo.Status
		empty  bool
	}{
		{
			name:   "vote wins over command",
			msg:    mailbox.Message{VotingResponse: "Закрыть", Body: "/status waiting"},
			status: vo.StatusResolved,
		},
		{
			name:   "unknown vote falls back to command",
			msg:    mailbox.Message{VotingResponse: "???", Body: "/status нужно время"},
			status: vo.StatusWaitingCustomer,
		},
		{
			name:   "inline status in subject",
			msg:    mailbox.Message{Subject: "RE: Заказ статус: закрыто"},
			status: vo.StatusResolved,
		},
		{
			name:   "inline status in body",
			msg:    mailbox.Message{Body: "Status = overdue\nthanks"},
			status: vo.StatusOverdue,
		},
		{
			name:  "nothing actionable",
			msg:   mailbox.Message{Subject: "RE: Заказ", Body: "Спасибо\n/comment только комментарий"},
			empty: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edit := editFromMessage(tt.msg)
			if tt.empty {
				assert.True(t, edit.IsEmpty())
				return
			}
			require.NotNil(t, edit.Status)
			assert.Equal(t, tt.status, *edit.Status)
		})
	}
}

func TestEditFromMessage_InvalidPriorityIgnored(t *testing.T) {
	edit := editFromMessage(mailbox.Message{Body: "/prio urgent\n/owner ops@naos.com"})
	assert.Nil(t, edit.Priority)
	require.NotNil(t, edit.Responsible)
	assert.Equal(t, "ops@naos.com", *edit.Responsible)
}

func newUseCase(t *testing.T, store *testutil.Store, mail *memory.Client, cfg Config) *UseCase {
	t.Helper()
	composer, err := notify.NewComposer(markdown.NewMarkdownService(), notify.ComposerConfig{})
	require.NoError(t, err)
	return NewUseCase(store, store.Tickets(), store.Events(), db.NoopTransactor{}, mail.Factory(), composer, cfg, logger.NewNopLogger()).
		WithClock(func() time.Time { return fixedNow })
}

func TestUseCase_Execute(t *testing.T) {
	store := testutil.NewStore()
	received := fixedNow.Add(-48 * time.Hour)
	byConv := store.Put(&ticket.Ticket{
		ConvID: "CONV1", ThreadKey: "conv1", Subject: "Заказ 15", Status: vo.StatusOverdue,
		Overdue: true, DaysWithoutUpdate: 2, FirstReceived: received, LastStatusChange: received,
	})
	bySubject := store.Put(&ticket.Ticket{
		ConvID: "", ThreadKey: "доставка", Subject: "Доставка", Status: vo.StatusAssigned,
		FirstReceived: received, LastStatusChange: received,
	})

	mail := memory.New()
	mail.AddMessage(mailbox.Message{
		EntryID: "r1", ConvID: "CONV1", Subject: "RE: [SLA][P1] Просрочка", VotingResponse: "Закрыть",
		Body: "/comment отгрузили\n\n> old", Received: fixedNow.Add(-time.Hour),
	})
	mail.AddMessage(mailbox.Message{
		EntryID: "r2", Subject: "RE: Доставка", Body: "/owner Ops@naos.com\n/prio p2", Received: fixedNow.Add(-time.Hour),
	})
	mail.AddMessage(mailbox.Message{
		EntryID: "r3", Subject: "RE: Неизвестная тема", Body: "/status resolved", Received: fixedNow.Add(-time.Hour),
	})
	mail.AddMessage(mailbox.Message{
		EntryID: "r4", Subject: "Просто письмо", Body: "Привет", Received: fixedNow.Add(-time.Hour),
	})

	uc := newUseCase(t, store, mail, Config{Confirm: true, Preview: true})
	result, err := uc.Execute(context.Background(), Command{Since: fixedNow.AddDate(0, 0, -7)})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 2, result.Skipped)
	assert.Equal(t, 2, result.Confirmed)
	assert.True(t, mail.Closed)

	closed := store.Get(byConv)
	assert.Equal(t, vo.StatusResolved, closed.Status)
	assert.False(t, closed.Overdue)
	assert.Equal(t, 0, closed.DaysWithoutUpdate)
	assert.Equal(t, "отгрузили", closed.Comment)
	assert.Equal(t, fixedNow, closed.LastStatusChange)
	assert.Equal(t, ticket.SourceMail, closed.LastUpdatedBy)
	assert.Equal(t, 1, closed.RowVersion)

	reassigned := store.Get(bySubject)
	assert.Equal(t, vo.StatusAssigned, reassigned.Status)
	assert.Equal(t, "Ops@naos.com", reassigned.Responsible)
	assert.Equal(t, vo.PriorityP2, reassigned.Priority)

	responses := store.EventsOf(ticket.EventMailResponse)
	require.Len(t, responses, 2)
	assert.Equal(t, "Закрыть", responses[0].RawResponse)
	assert.Equal(t, vo.StatusOverdue, responses[0].StatusBefore)
	assert.Equal(t, vo.StatusResolved, responses[0].StatusAfter)
	require.NotNil(t, responses[0].ItemEntryID)
	assert.Equal(t, "r1", *responses[0].ItemEntryID)
	assert.Equal(t, "RE: Доставка", responses[1].RawResponse)

	comments := store.EventsOf(ticket.EventComment)
	require.Len(t, comments, 1)
	assert.Equal(t, "отгрузили", comments[0].RawResponse)

	out := mail.Recorded()
	require.Len(t, out, 2)
	assert.Equal(t, "reply", out[0].Kind)
	assert.Equal(t, "r1", out[0].EntryID)
	assert.True(t, out[0].Mail.Preview)
	assert.Contains(t, out[0].Mail.Body, "Принято. Обновлено: status=resolved; comment=отгрузили")
}

func TestUseCase_NoConfirmation(t *testing.T) {
	store := testutil.NewStore()
	store.Put(&ticket.Ticket{ConvID: "C", ThreadKey: "c", Status: vo.StatusNew, FirstReceived: fixedNow})
	mail := memory.New()
	mail.AddMessage(mailbox.Message{EntryID: "r1", ConvID: "C", VotingResponse: "OK", Received: fixedNow})

	result, err := newUseCase(t, store, mail, Config{}).Execute(context.Background(), Command{Since: fixedNow.Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 0, result.Confirmed)
	assert.Empty(t, mail.Recorded())
}

func TestUseCase_MailboxError(t *testing.T) {
	store := testutil.NewStore()
	mail := memory.New()
	mail.MessagesErr = errors.New("mailbox offline")

	_, err := newUseCase(t, store, mail, Config{}).Execute(context.Background(), Command{})
	require.Error(t, err)
	assert.True(t, mail.Closed)
}
