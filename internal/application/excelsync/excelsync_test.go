package excelsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/domain/ticket/testutil"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/spreadsheet"
	"github.com/slatrack/slatrack/internal/shared/db"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

var fixedNow = time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC)

func seedTickets(store *testutil.Store) (overdue, fresh, spare uint) {
	updated := fixedNow.Add(-time.Hour)
	overdue = store.Put(&ticket.Ticket{
		ConvID: "c1", ThreadKey: "c1", Subject: "Заказ 15", Sender: "client@shop.ru",
		Status: vo.StatusOverdue, Overdue: true, Priority: vo.PriorityP1, Responsible: "ops@naos.com",
		FirstReceived: fixedNow.AddDate(0, 0, -3), RowVersion: 2, LastUpdatedAt: &updated,
	})
	fresh = store.Put(&ticket.Ticket{
		ConvID: "c2", ThreadKey: "c2", Subject: "Доставка", Status: vo.StatusNew,
		FirstReceived: fixedNow.Add(-2 * time.Hour), RowVersion: 1,
	})
	spare = store.Put(&ticket.Ticket{
		ConvID: "c3", ThreadKey: "c3", Subject: "Вопрос", Status: vo.StatusAssigned, Responsible: "ops@naos.com",
		FirstReceived: fixedNow.AddDate(0, 0, -1), RowVersion: 1,
	})
	return overdue, fresh, spare
}

func exportConfig(path string) ExportConfig {
	return ExportConfig{
		Path:        path,
		Password:    "secret",
		Thresholds:  vo.ThresholdTable{ByPriority: vo.DefaultThresholds, OverdueDays: 2},
		StatusHints: map[string]string{"new": "Только что пришло"},
	}
}

func newExport(store *testutil.Store, w WorkbookWriter, path string) *ExportUseCase {
	return NewExportUseCase(store, store.Tickets(), w, exportConfig(path), logger.NewNopLogger()).
		WithClock(func() time.Time { return fixedNow })
}

func realWriter() *spreadsheet.Writer {
	return spreadsheet.NewWriter(spreadsheet.WriterConfig{}, logger.NewNopLogger())
}

type recordingWriter struct {
	workbook *spreadsheet.Workbook
	err      error
}

func (w *recordingWriter) Write(_ context.Context, path string, wb *spreadsheet.Workbook) (*spreadsheet.WriteResult, error) {
	w.workbook = wb
	if w.err != nil {
		return nil, w.err
	}
	return &spreadsheet.WriteResult{Path: path}, nil
}

func TestExport_BuildsWorkbook(t *testing.T) {
	store := testutil.NewStore()
	overdue, _, _ := seedTickets(store)
	w := &recordingWriter{}

	result, err := newExport(store, w, "tickets.xlsx").Execute(context.Background(), ExportCommand{
		Conflicts: []spreadsheet.ConflictRow{{TicketID: overdue, Field: "row_version", Resolution: "skip"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Rows)
	assert.Equal(t, "tickets.xlsx", result.Path)
	assert.Equal(t, 1, store.SchemaCalls)

	wb := w.workbook
	require.Len(t, wb.Tickets, 3)
	assert.Len(t, wb.Overdue(), 1)
	assert.Len(t, wb.Conflicts, 1)
	assert.Equal(t, "secret", wb.Password)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, wb.Priorities)
	assert.Equal(t, vo.StatusLabels(), wb.StatusLabels)
	assert.Equal(t, spreadsheet.StatusHint{Label: "Новое", Hint: "Только что пришло"}, wb.StatusHelp[0])

	var row spreadsheet.TicketRow
	for _, r := range wb.Tickets {
		if r.TicketID == overdue {
			row = r
		}
	}
	assert.Equal(t, "Просрочка SLA", row.Status)
	assert.Equal(t, "overdue", row.StatusCode)
	assert.Equal(t, 2, row.RowVersion)
	assert.True(t, row.Overdue)
	assert.Equal(t, "2026-03-09 12:00:00", row.Received)
	assert.Equal(t, "2026-03-10 12:00:00", row.SLADue)
	assert.Equal(t, "2026-03-12 11:00:00", row.UpdatedAt)
}

func TestExport_TodayOnly(t *testing.T) {
	store := testutil.NewStore()
	_, fresh, _ := seedTickets(store)
	w := &recordingWriter{}

	result, err := newExport(store, w, "tickets.xlsx").Execute(context.Background(), ExportCommand{TodayOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rows)
	assert.Equal(t, fresh, w.workbook.Tickets[0].TicketID)
}

func TestExport_WriterError(t *testing.T) {
	store := testutil.NewStore()
	w := &recordingWriter{err: errors.New("disk full")}

	_, err := newExport(store, w, "tickets.xlsx").Execute(context.Background(), ExportCommand{})
	require.Error(t, err)
}

func TestExport_LockedWorkbookGoesPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickets.xlsx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$tickets.xlsx"), []byte("owner"), 0o644))

	store := testutil.NewStore()
	seedTickets(store)
	result, err := newExport(store, realWriter(), path).Execute(context.Background(), ExportCommand{})
	require.NoError(t, err)
	assert.True(t, result.Pending)
	assert.Equal(t, filepath.Join(dir, "tickets_pending.xlsx"), result.Path)
	assert.FileExists(t, result.Path)
}

func TestBuildKPI(t *testing.T) {
	rows := []spreadsheet.TicketRow{
		{Status: "Просрочка SLA", Overdue: true, Responsible: "a@naos.com"},
		{Status: "В работе", Responsible: "a@naos.com"},
		{Status: "Просрочка SLA", Overdue: true},
		{Status: "Новое"},
	}
	kpi := buildKPI(rows)
	assert.Equal(t, []spreadsheet.KPIRow{
		{Name: "Всего заявок", Value: 4},
		{Name: "Просрочка", Value: 2},
		{Name: "Доля просрочек", Value: "50.0%"},
		{Name: "Статус Просрочка SLA", Value: 2},
		{Name: "Статус В работе", Value: 1},
		{Name: "Статус Новое", Value: 1},
		{Name: "Топ ответственное лицо: <не задан>", Value: 2},
		{Name: "Топ ответственное лицо: a@naos.com", Value: 2},
	}, kpi)

	assert.Equal(t, []spreadsheet.KPIRow{
		{Name: "Всего заявок", Value: 0},
		{Name: "Просрочка", Value: 0},
	}, buildKPI(nil))
}

// editCell rewrites one cell of the ticket sheet row holding ticketID.
func editCell(t *testing.T, path string, ticketID uint, header, value string) {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(spreadsheet.SheetTickets)
	require.NoError(t, err)
	col := -1
	for i, h := range rows[0] {
		if h == header {
			col = i
		}
	}
	require.GreaterOrEqual(t, col, 0, header)

	for i, r := range rows[1:] {
		if r[0] != strconv.FormatUint(uint64(ticketID), 10) {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(col+1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue(spreadsheet.SheetTickets, cell, value))
		require.NoError(t, f.Save())
		return
	}
	t.Fatalf("ticket %d not in workbook", ticketID)
}

// appendRow adds a raw ticket_id/row_version pair below the exported rows.
func appendRow(t *testing.T, path, id, version string) {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(spreadsheet.SheetTickets)
	require.NoError(t, err)
	next := len(rows) + 1
	require.NoError(t, f.SetCellValue(spreadsheet.SheetTickets, "A"+strconv.Itoa(next), id))
	require.NoError(t, f.SetCellValue(spreadsheet.SheetTickets, "C"+strconv.Itoa(next), version))
	require.NoError(t, f.Save())
}

func newSync(store *testutil.Store, path string) *SyncUseCase {
	return NewSyncUseCase(store, store.Tickets(), store.Events(), db.NoopTransactor{}, path, logger.NewNopLogger()).
		WithClock(func() time.Time { return fixedNow })
}

func TestSync_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.xlsx")
	store := testutil.NewStore()
	overdue, fresh, spare := seedTickets(store)

	_, err := newExport(store, realWriter(), path).Execute(context.Background(), ExportCommand{})
	require.NoError(t, err)

	editCell(t, path, overdue, spreadsheet.HeaderStatus, "Закрыто")
	editCell(t, path, overdue, spreadsheet.HeaderComment, "отгружено")
	editCell(t, path, fresh, spreadsheet.HeaderResponsible, "new@naos.com")
	editCell(t, path, fresh, spreadsheet.HeaderPriority, "p9")
	appendRow(t, path, "999", "1")
	appendRow(t, path, "abc", "1")

	// Someone else edits the spare ticket after the export.
	moved := store.Get(spare)
	moved.RowVersion = 5
	store.Put(moved)
	editCell(t, path, spare, spreadsheet.HeaderResponsible, "other@naos.com")

	result, err := newSync(store, path).Execute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Conflicts)
	assert.Equal(t, 1, result.Missing)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.ConflictRows, 1)
	assert.Equal(t, spreadsheet.ConflictRow{
		TicketID: spare, Field: "row_version", ExcelValue: "1", DBValue: "5", Resolution: "skip",
	}, result.ConflictRows[0])

	closed := store.Get(overdue)
	assert.Equal(t, vo.StatusResolved, closed.Status)
	assert.False(t, closed.Overdue)
	assert.Equal(t, "отгружено", closed.Comment)
	assert.Equal(t, 3, closed.RowVersion)
	assert.Equal(t, ticket.SourceExcel, closed.LastUpdatedBy)
	assert.Equal(t, ticket.SourceExcel, closed.DataSource)

	assigned := store.Get(fresh)
	assert.Equal(t, "new@naos.com", assigned.Responsible)
	assert.Equal(t, vo.Priority(""), assigned.Priority)
	assert.Equal(t, vo.StatusNew, assigned.Status)

	untouched := store.Get(spare)
	assert.Equal(t, "ops@naos.com", untouched.Responsible)
	assert.Equal(t, 5, untouched.RowVersion)

	assert.Len(t, store.EventsOf(ticket.EventExcelSync), 2)
	conflicts := store.EventsOf(ticket.EventExcelConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "row_version mismatch", conflicts[0].RawResponse)
	assert.Equal(t, "skip", conflicts[0].Details["resolution"])
}

func TestSync_UnchangedRowsKeepVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.xlsx")
	store := testutil.NewStore()
	overdue, _, _ := seedTickets(store)

	_, err := newExport(store, realWriter(), path).Execute(context.Background(), ExportCommand{})
	require.NoError(t, err)

	result, err := newSync(store, path).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 3, result.Unchanged)
	assert.Equal(t, 2, store.Get(overdue).RowVersion)
}

func TestSync_DatabaseNewer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.xlsx")
	store := testutil.NewStore()
	overdue, _, _ := seedTickets(store)

	_, err := newExport(store, realWriter(), path).Execute(context.Background(), ExportCommand{})
	require.NoError(t, err)
	editCell(t, path, overdue, spreadsheet.HeaderStatus, "Закрыто")

	later := fixedNow.Add(-time.Minute)
	touched := store.Get(overdue)
	touched.LastUpdatedAt = &later
	store.Put(touched)

	result, err := newSync(store, path).Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, result.ConflictRows, 1)
	assert.Equal(t, "last_updated_at", result.ConflictRows[0].Field)
	assert.Equal(t, "skip (db newer)", result.ConflictRows[0].Resolution)
	assert.Equal(t, vo.StatusOverdue, store.Get(overdue).Status)
}

func TestSync_MissingAndMalformedWorkbook(t *testing.T) {
	dir := t.TempDir()
	store := testutil.NewStore()

	result, err := newSync(store, filepath.Join(dir, "absent.xlsx")).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{}, result)

	broken := filepath.Join(dir, "broken.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "something else"))
	require.NoError(t, f.SaveAs(broken))
	require.NoError(t, f.Close())

	result, err = newSync(store, broken).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{}, result)

	require.NoError(t, os.WriteFile(broken, []byte("not a zip"), 0o644))
	result, err = newSync(store, broken).Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &SyncResult{}, result)
}
