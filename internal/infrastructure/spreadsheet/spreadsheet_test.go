package spreadsheet

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

func sampleWorkbook() *Workbook {
	return &Workbook{
		Tickets: []TicketRow{
			{TicketID: 1, StableID: "abc", RowVersion: 3, Subject: "Printer", Status: "В работе", StatusCode: "assigned",
				Responsible: "ivan@example.com", Priority: "p2", Comment: "call back", UpdatedAt: "2025-01-06 10:00:00"},
			{TicketID: 2, RowVersion: 1, Subject: "Late", Status: "Просрочка SLA", StatusCode: "overdue", Overdue: true},
		},
		KPI:          []KPIRow{{Name: "Всего заявок", Value: 2}},
		Conflicts:    []ConflictRow{{TicketID: 2, Field: "row_version", ExcelValue: "1", DBValue: "2", Resolution: "skip"}},
		StatusHelp:   []StatusHint{{Label: "Новое", Hint: "Только что пришло"}},
		StatusLabels: []string{"Новое", "В работе", "Просрочка SLA"},
		Priorities:   []string{"p1", "p2", "p3", "p4"},
	}
}

func newTestWriter(cfg WriterConfig) *Writer {
	return NewWriter(cfg, logger.NewNopLogger())
}

func TestRender_Sheets(t *testing.T) {
	data, err := Render(sampleWorkbook())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetTickets, SheetOverdue, SheetKPI, SheetConflicts, SheetStatusHelp}, f.GetSheetList())

	rows, err := f.GetRows(SheetTickets)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers(), rows[0])

	overdue, err := f.GetRows(SheetOverdue)
	require.NoError(t, err)
	require.Len(t, overdue, 2)
	assert.Equal(t, "2", overdue[1][0])
	assert.Equal(t, "Да", overdue[1][columnIndex(HeaderOverdue)])

	visible, err := f.GetColVisible(SheetTickets, "A")
	require.NoError(t, err)
	assert.False(t, visible)

	conflicts, err := f.GetRows(SheetConflicts)
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "row_version", "1", "2", "skip"}, conflicts[1])
}

func TestWriter_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tickets.xlsx")
	w := newTestWriter(WriterConfig{})

	res, err := w.Write(context.Background(), path, sampleWorkbook())
	require.NoError(t, err)
	assert.False(t, res.Pending)
	assert.Equal(t, path, res.Path)

	edits, err := ReadEdits(path)
	require.NoError(t, err)
	require.Len(t, edits, 2)

	e := edits[0]
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, "1", e.TicketID)
	assert.Equal(t, "3", e.RowVersion)
	assert.Equal(t, "В работе", e.Status)
	assert.Equal(t, "ivan@example.com", e.Responsible)
	require.NotNil(t, e.Priority)
	assert.Equal(t, "p2", *e.Priority)
	require.NotNil(t, e.Comment)
	assert.Equal(t, "call back", *e.Comment)
	assert.Equal(t, "2025-01-06 10:00:00", e.UpdatedAt)
}

func TestWriter_Backups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickets.xlsx")
	backupDir := filepath.Join(dir, "backups")
	w := newTestWriter(WriterConfig{BackupDir: backupDir})
	w.now = func() time.Time { return time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC) }

	_, err := w.Write(context.Background(), path, sampleWorkbook())
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "tickets.bak"))
	assert.True(t, os.IsNotExist(err), "first export has nothing to back up")

	_, err = w.Write(context.Background(), path, sampleWorkbook())
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "tickets.bak"))
	assert.FileExists(t, filepath.Join(backupDir, "tickets_20250106T100000.xlsx"))
}

func TestWriter_LockedTargetWritesPending(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tickets.xlsx")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$tickets.xlsx"), []byte("owner"), 0o644))

	w := newTestWriter(WriterConfig{})
	res, err := w.Write(context.Background(), path, sampleWorkbook())
	require.NoError(t, err)
	assert.True(t, res.Pending)
	assert.Equal(t, filepath.Join(dir, "tickets_pending.xlsx"), res.Path)
	assert.FileExists(t, res.Path)
	assert.NoFileExists(t, path)
}

func TestPendingPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "tickets_pending.xlsx"), PendingPath(filepath.Join("data", "tickets.xlsx")))
}

func TestReadEdits_MissingHeaders(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ticket_id", "Тема"}))
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := ReadEdits(path)
	assert.ErrorIs(t, err, ErrMissingHeaders)
}

func TestReadEdits_LegacyHeadersAndOptionalColumns(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ticket_id", "row_version", "ö‘'ø‘'‘?‘?", "Ответственный"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{7, 2, "Закрыто", ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{8, 1, "Новое", "olga"}))
	path := filepath.Join(t.TempDir(), "legacy.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	edits, err := ReadEdits(path)
	require.NoError(t, err)
	require.Len(t, edits, 2)
	assert.Equal(t, "Закрыто", edits[0].Status)
	assert.Nil(t, edits[0].Priority)
	assert.Nil(t, edits[0].Comment)
	assert.Equal(t, 4, edits[1].Line)
}

func TestReadAnswers(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"ticket_id", "Вопрос", "Ответ"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{5, "Как сбросить пароль?", "Через личный кабинет."}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"", "Без ответа", ""}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]any{"", "Где счёт?", "В разделе документы."}))
	path := filepath.Join(t.TempDir(), "answers.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := ReadAnswers(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].TicketID)
	assert.Equal(t, uint(5), *rows[0].TicketID)
	assert.Nil(t, rows[1].TicketID)
	assert.Equal(t, "В разделе документы.", rows[1].Answer)
}
