package recommend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/domain/ticket/testutil"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

var fixedNow = time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

func seed(store *testutil.Store, subject, body string, age time.Duration) uint {
	return store.Put(&ticket.Ticket{
		ConvID:        subject,
		ThreadKey:     subject,
		Subject:       subject,
		Body:          body,
		Status:        vo.StatusAssigned,
		FirstReceived: fixedNow.Add(-age),
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"где", "мой", "заказ", "где мой", "мой заказ"}, tokenize("Где мой заказ?!"))
	assert.Empty(t, tokenize("a ? !"))
}

func TestCosine(t *testing.T) {
	_, vecs := fit([]string{"возврат товара", "возврат товара", "счет на оплату"})
	assert.InDelta(t, 1.0, cosine(vecs[0], vecs[1]), 1e-9)
	assert.InDelta(t, 0.0, cosine(vecs[0], vecs[2]), 1e-9)
}

func TestTFIDF_Refresh(t *testing.T) {
	store := testutil.NewStore()
	a := seed(store, "Возврат товара", "хочу оформить возврат товара", time.Hour)
	b := seed(store, "Возврат товара по заказу", "оформить возврат товара", 2*time.Hour)
	c := seed(store, "Счет", "пришлите счет на оплату", 3*time.Hour)
	old := seed(store, "Возврат товара", "хочу оформить возврат товара", 60*24*time.Hour)

	require.NoError(t, store.Answers().ReplaceAll(context.Background(), []*ticket.Answer{
		{Question: "как оформить возврат товара", Answer: "Заполните заявление на возврат"},
		{Question: "доставка курьером", Answer: "Курьер звонит заранее"},
	}))

	r := NewTFIDF(store.Tickets(), store.Answers(), db.NoopTransactor{},
		Config{SimilarityDays: 30, Threshold: 0.3}, logger.NewNopLogger()).
		WithClock(func() time.Time { return fixedNow })

	changed, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed)

	ta := store.Get(a)
	assert.True(t, ta.IsRepeat)
	assert.Equal(t, "1 похожих за 30д (топ: Возврат товара по заказу)", ta.RepeatHint)
	assert.Equal(t, "Заполните заявление на возврат", ta.RecommendedAnswer)
	assert.Equal(t, "как оформить возврат товара", ta.Topic)
	require.NotNil(t, ta.MatchScore)
	assert.GreaterOrEqual(t, *ta.MatchScore, 0.3)
	assert.Equal(t, 1, ta.RowVersion)

	assert.True(t, store.Get(b).IsRepeat)
	assert.False(t, store.Get(c).IsRepeat)
	assert.Empty(t, store.Get(c).RecommendedAnswer)
	assert.False(t, store.Get(old).IsRepeat)

	// A second pass with nothing new writes nothing.
	changed, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, changed)
	assert.Equal(t, 1, store.Get(a).RowVersion)
}

func TestTFIDF_RefreshEmpty(t *testing.T) {
	store := testutil.NewStore()
	r := NewTFIDF(store.Tickets(), store.Answers(), db.NoopTransactor{}, Config{Threshold: 0.4}, logger.NewNopLogger())
	changed, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.Zero(t, changed)
}

func TestImportAnswersUseCase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answers.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Вопрос", "Ответ", "ticket_id"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Где заказ?", "Проверьте трек-номер", "7"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"Пустой ответ", ""}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	store := testutil.NewStore()
	uc := NewImportAnswersUseCase(store, store.Answers(), db.NoopTransactor{}, logger.NewNopLogger())

	result, err := uc.Execute(context.Background(), ImportAnswersCommand{Path: path})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	answers, err := store.Answers().List(context.Background())
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "Где заказ?", answers[0].Question)
	require.NotNil(t, answers[0].TicketID)
	assert.Equal(t, uint(7), *answers[0].TicketID)

	_, err = uc.Execute(context.Background(), ImportAnswersCommand{})
	assert.Error(t, err)
	_, err = uc.Execute(context.Background(), ImportAnswersCommand{Path: filepath.Join(t.TempDir(), "missing.xlsx")})
	assert.Error(t, err)
}
