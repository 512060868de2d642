package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
)

func TestEventRepository_LogIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewEventRepository(setupTestDB(t))

	first := ticket.NewEvent(7, ticket.EventMailResponse, "mail", baseTime).
		WithStatus(vo.StatusAssigned, vo.StatusResolved).
		WithEntryID("entry-1").
		WithRaw("Закрыть").
		WithDetails(map[string]any{"changes": []any{"status=resolved"}})
	require.NoError(t, repo.Log(ctx, first))
	assert.NotZero(t, first.ID)

	dup := ticket.NewEvent(7, ticket.EventMailResponse, "mail", baseTime).WithEntryID("entry-1")
	require.NoError(t, repo.Log(ctx, dup))

	unkeyed := ticket.NewEvent(7, ticket.EventExcelSync, "excel", baseTime)
	require.NoError(t, repo.Log(ctx, unkeyed))
	unkeyed2 := ticket.NewEvent(7, ticket.EventExcelSync, "excel", baseTime)
	require.NoError(t, repo.Log(ctx, unkeyed2))

	events, err := repo.ListByTicket(ctx, 7)
	require.NoError(t, err)
	require.Len(t, events, 3, "the keyed duplicate is ignored, unkeyed events always insert")

	assert.Equal(t, ticket.EventMailResponse, events[0].Type)
	assert.Equal(t, vo.StatusResolved, events[0].StatusAfter)
	assert.Equal(t, "Закрыть", events[0].RawResponse)
	assert.Equal(t, []any{"status=resolved"}, events[0].Details["changes"])
}

func TestAnswerRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := NewAnswerRepository(setupTestDB(t))

	require.NoError(t, repo.ReplaceAll(ctx, []*ticket.Answer{
		{Question: "Как вернуть товар?", Answer: "Оформите возврат"},
		{Question: "Где мой заказ?", Answer: "Проверьте трекинг"},
	}))
	require.NoError(t, repo.ReplaceAll(ctx, []*ticket.Answer{
		{Question: "Где мой заказ?", Answer: "Новый ответ"},
	}))

	answers, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Новый ответ", answers[0].Answer)
}
