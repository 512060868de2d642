package spreadsheet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"github.com/slatrack/slatrack/internal/shared/logger"
)

const defaultPassword = "naos"

// ErrLocked reports that the target workbook is open in another program.
var ErrLocked = errors.New("workbook is locked")

// WriteResult tells where the workbook ended up.
type WriteResult struct {
	Path    string
	Pending bool
}

type WriterConfig struct {
	BackupDir   string
	LockTimeout time.Duration
}

// Writer renders workbooks and replaces the target file atomically.
type Writer struct {
	cfg        WriterConfig
	logger     logger.Interface
	now        func() time.Time
	newBackOff func() backoff.BackOff
}

func NewWriter(cfg WriterConfig, log logger.Interface) *Writer {
	return &Writer{
		cfg:    cfg,
		logger: log.With("component", "spreadsheet.writer"),
		now:    time.Now,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			b.Reset()
			return b
		},
	}
}

// Write renders wb to path. When the target stays locked past the lock timeout
// the workbook is saved next to it as <stem>_pending<ext> and Pending is set.
func (w *Writer) Write(ctx context.Context, path string, wb *Workbook) (*WriteResult, error) {
	data, err := Render(wb)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create workbook directory: %w", err)
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(w.newBackOff())}
	if w.cfg.LockTimeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(w.cfg.LockTimeout))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	backedUp := false
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		if IsLocked(path) {
			return struct{}{}, ErrLocked
		}
		if !backedUp {
			w.backup(path)
			backedUp = true
		}
		if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return struct{}{}, fmt.Errorf("%w: %v", ErrLocked, err)
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}, opts...)

	if err == nil {
		w.logger.Infow("workbook exported", "path", path, "rows", len(wb.Tickets))
		return &WriteResult{Path: path}, nil
	}
	if !errors.Is(err, ErrLocked) {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	pending := PendingPath(path)
	if werr := atomic.WriteFile(pending, bytes.NewReader(data)); werr != nil {
		return nil, fmt.Errorf("workbook %s is locked and pending save failed: %w", path, werr)
	}
	w.logger.Errorw("workbook is locked, saved pending copy", "path", path, "pending", pending)
	return &WriteResult{Path: pending, Pending: true}, nil
}

func (w *Writer) backup(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warnw("backup failed", "path", path, "error", err)
		}
		return
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	if err := atomic.WriteFile(stem+".bak", bytes.NewReader(src)); err != nil {
		w.logger.Warnw("backup failed", "path", path, "error", err)
	}

	if w.cfg.BackupDir == "" {
		return
	}
	if err := os.MkdirAll(w.cfg.BackupDir, 0o755); err != nil {
		w.logger.Warnw("backup dir unavailable", "dir", w.cfg.BackupDir, "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s%s", filepath.Base(stem), w.now().UTC().Format("20060102T150405"), ext)
	if err := atomic.WriteFile(filepath.Join(w.cfg.BackupDir, name), bytes.NewReader(src)); err != nil {
		w.logger.Warnw("timestamped backup failed", "dir", w.cfg.BackupDir, "error", err)
	}
}

// IsLocked reports whether an Office owner file exists for path.
func IsLocked(path string) bool {
	owner := filepath.Join(filepath.Dir(path), "~$"+filepath.Base(path))
	_, err := os.Stat(owner)
	return err == nil
}

// PendingPath is where a workbook goes while the target is locked.
func PendingPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_pending" + ext
}

// Render builds the workbook in memory and returns the xlsx bytes.
func Render(wb *Workbook) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	r := &renderer{f: f, styles: map[styleKey]int{}}
	if err := r.render(wb); err != nil {
		return nil, err
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

type styleKey struct {
	fill     string
	wrap     bool
	editable bool
	header   bool
}

type renderer struct {
	f      *excelize.File
	styles map[styleKey]int
}

func (r *renderer) render(wb *Workbook) error {
	if err := r.f.SetSheetName("Sheet1", SheetTickets); err != nil {
		return err
	}
	for _, name := range []string{SheetOverdue, SheetKPI, SheetConflicts, SheetStatusHelp} {
		if _, err := r.f.NewSheet(name); err != nil {
			return err
		}
	}

	password := wb.Password
	if password == "" {
		password = defaultPassword
	}
	if err := r.ticketSheet(SheetTickets, wb.Tickets, wb, password); err != nil {
		return err
	}
	if err := r.ticketSheet(SheetOverdue, wb.Overdue(), wb, password); err != nil {
		return err
	}

	kpi := make([][]any, 0, len(wb.KPI))
	for _, k := range wb.KPI {
		kpi = append(kpi, []any{k.Name, k.Value})
	}
	if err := r.summarySheet(SheetKPI, []string{"Показатель", "Значение"}, kpi, true); err != nil {
		return err
	}

	conflicts := make([][]any, 0, len(wb.Conflicts))
	for _, c := range wb.Conflicts {
		conflicts = append(conflicts, []any{c.TicketID, c.Field, c.ExcelValue, c.DBValue, c.Resolution})
	}
	if err := r.summarySheet(SheetConflicts, []string{"ticket_id", "поле", "excel", "db", "решение"}, conflicts, false); err != nil {
		return err
	}

	hints := make([][]any, 0, len(wb.StatusHelp))
	for _, h := range wb.StatusHelp {
		hints = append(hints, []any{h.Label, h.Hint})
	}
	if err := r.summarySheet(SheetStatusHelp, []string{"Статус", "Подсказка"}, hints, false); err != nil {
		return err
	}

	r.f.SetActiveSheet(0)
	return nil
}

func (r *renderer) style(k styleKey) (int, error) {
	if id, ok := r.styles[k]; ok {
		return id, nil
	}
	s := &excelize.Style{
		Protection: &excelize.Protection{Locked: !k.editable},
	}
	if k.fill != "" {
		s.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{k.fill}}
	}
	switch {
	case k.header:
		s.Font = &excelize.Font{Bold: true}
		s.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true}
	case k.wrap:
		s.Alignment = &excelize.Alignment{Vertical: "top", WrapText: true}
	}
	id, err := r.f.NewStyle(s)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	r.styles[k] = id
	return id, nil
}

func (r *renderer) ticketSheet(sheet string, rows []TicketRow, wb *Workbook, password string) error {
	header := make([]any, len(ticketColumns))
	for i, c := range ticketColumns {
		header[i] = c.header
	}
	if err := r.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	headerStyle, err := r.style(styleKey{fill: ticketHeaderFill, header: true})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(ticketColumns))
	if err := r.f.SetCellStyle(sheet, "A1", lastCol+"1", headerStyle); err != nil {
		return err
	}

	for i, row := range rows {
		rowNum := i + 2
		values := row.values()
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := r.f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
		fill := statusColors[row.StatusCode]
		for j, c := range ticketColumns {
			id, err := r.style(styleKey{fill: fill, wrap: c.wrap, editable: c.editable})
			if err != nil {
				return err
			}
			ref, _ := excelize.CoordinatesToCellName(j+1, rowNum)
			if err := r.f.SetCellStyle(sheet, ref, ref, id); err != nil {
				return err
			}
		}
	}

	for i, c := range ticketColumns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		width := c.width
		if width == 0 {
			width = defaultColWidth
		}
		if err := r.f.SetColWidth(sheet, name, name, width); err != nil {
			return err
		}
		if c.hidden {
			if err := r.f.SetColVisible(sheet, name, false); err != nil {
				return err
			}
		}
	}

	if err := r.f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	lastRow := len(rows) + 1
	if err := r.f.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
		return err
	}

	if err := r.listValidation(sheet, HeaderStatus, wb.StatusLabels, "Неверный статус", "Выберите статус из выпадающего списка."); err != nil {
		return err
	}
	if err := r.listValidation(sheet, HeaderPriority, wb.Priorities, "Неверный приоритет", "Используйте p1/p2/p3/p4."); err != nil {
		return err
	}

	return r.f.ProtectSheet(sheet, &excelize.SheetProtectionOptions{
		Password:            password,
		AutoFilter:          true,
		Sort:                true,
		FormatColumns:       true,
		SelectLockedCells:   true,
		SelectUnlockedCells: true,
	})
}

func (r *renderer) listValidation(sheet, header string, items []string, title, msg string) error {
	idx := columnIndex(header)
	if idx < 0 || len(items) == 0 {
		return nil
	}
	col, _ := excelize.ColumnNumberToName(idx + 1)
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("%s2:%s%d", col, col, validationLastRow)
	if err := dv.SetDropList(items); err != nil {
		return fmt.Errorf("%s validation: %w", header, err)
	}
	dv.SetError(excelize.DataValidationErrorStyleStop, title, msg)
	return r.f.AddDataValidation(sheet, dv)
}

func (r *renderer) summarySheet(sheet string, header []string, rows [][]any, freeze bool) error {
	hdr := make([]any, len(header))
	widths := make([]int, len(header))
	for i, h := range header {
		hdr[i] = h
		widths[i] = len([]rune(h))
	}
	if err := r.f.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return err
	}
	id, err := r.style(styleKey{fill: summaryHeaderFill, header: true, editable: true})
	if err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(header))
	if err := r.f.SetCellStyle(sheet, "A1", lastCol+"1", id); err != nil {
		return err
	}

	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := r.f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		for j, v := range row {
			if j < len(widths) {
				if n := len([]rune(fmt.Sprint(v))); n > widths[j] {
					widths[j] = n
				}
			}
		}
	}

	for i, wdt := range widths {
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := r.f.SetColWidth(sheet, name, name, float64(min(wdt+4, maxAutoWidth))); err != nil {
			return err
		}
	}
	if freeze {
		return r.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}
	return nil
}
