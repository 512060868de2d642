package excelsync

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/spreadsheet"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/db"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const (
	conflictFieldVersion   = "row_version"
	conflictFieldUpdatedAt = "last_updated_at"

	resolutionSkip       = "skip"
	resolutionDBNewer    = "skip (db newer)"
	resolutionConcurrent = "skip (concurrent edit)"
)

type SyncResult struct {
	Updated      int
	Unchanged    int
	Conflicts    int
	Missing      int
	Skipped      int
	ConflictRows []spreadsheet.ConflictRow
}

// SyncUseCase applies operator edits from the workbook with optimistic
// version checks. Rows edited against a stale export are reported as
// conflicts and left alone.
type SyncUseCase struct {
	schema  ticket.SchemaEnsurer
	tickets ticket.TicketRepository
	events  ticket.EventRepository
	tx      db.Transactor
	path    string
	logger  logger.Interface
	now     func() time.Time
}

func NewSyncUseCase(
	schema ticket.SchemaEnsurer,
	tickets ticket.TicketRepository,
	events ticket.EventRepository,
	tx db.Transactor,
	path string,
	logger logger.Interface,
) *SyncUseCase {
	return &SyncUseCase{
		schema:  schema,
		tickets: tickets,
		events:  events,
		tx:      tx,
		path:    path,
		logger:  logger,
		now:     biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *SyncUseCase) WithClock(now func() time.Time) *SyncUseCase {
	uc.now = now
	return uc
}

func (uc *SyncUseCase) Execute(ctx context.Context) (*SyncResult, error) {
	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	result := &SyncResult{}
	if _, err := os.Stat(uc.path); errors.Is(err, fs.ErrNotExist) {
		uc.logger.Infow("workbook not found, skipping sync", "path", uc.path)
		return result, nil
	}
	rows, err := spreadsheet.ReadEdits(uc.path)
	if err != nil {
		// Malformed workbooks are reported, not returned.
		uc.logger.Errorw("failed to read workbook", "path", uc.path, "error", err)
		return result, nil
	}

	now := uc.now().UTC()
	err = uc.tx.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, row := range rows {
			if err := uc.applyRow(ctx, row, now, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("workbook sync failed, rolled back", "error", err)
		return nil, err
	}

	uc.logger.Infow("workbook sync summary",
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"conflicts", result.Conflicts,
		"missing", result.Missing,
		"skipped", result.Skipped,
	)
	return result, nil
}

func (uc *SyncUseCase) applyRow(ctx context.Context, row spreadsheet.EditRow, now time.Time, result *SyncResult) error {
	id, err1 := strconv.ParseUint(row.TicketID, 10, 64)
	version, err2 := strconv.Atoi(row.RowVersion)
	if err1 != nil || err2 != nil {
		result.Skipped++
		return nil
	}

	current, err := uc.tickets.GetByID(ctx, uint(id))
	if apperrors.IsNotFoundError(err) {
		result.Missing++
		return nil
	}
	if err != nil {
		return err
	}

	if current.RowVersion != version {
		return uc.conflict(ctx, current, now, result, spreadsheet.ConflictRow{
			TicketID:   current.ID,
			Field:      conflictFieldVersion,
			ExcelValue: row.RowVersion,
			DBValue:    strconv.Itoa(current.RowVersion),
			Resolution: resolutionSkip,
		}, "row_version mismatch")
	}
	if current.LastUpdatedAt != nil && row.UpdatedAt != "" {
		if edited, err := biztime.ParseDisplayTime(row.UpdatedAt); err == nil && current.LastUpdatedAt.Truncate(time.Second).After(edited) {
			return uc.conflict(ctx, current, now, result, spreadsheet.ConflictRow{
				TicketID:   current.ID,
				Field:      conflictFieldUpdatedAt,
				ExcelValue: row.UpdatedAt,
				DBValue:    displayTime(current.LastUpdatedAt),
				Resolution: resolutionDBNewer,
			}, "db newer")
		}
	}

	edit := editFromRow(row)
	if !changes(current, edit) {
		result.Unchanged++
		return nil
	}

	before := current.Status
	updated := current.Clone()
	updated.ApplySpreadsheetEdit(edit, now)
	ok, err := uc.tickets.UpdateVersioned(ctx, updated, version)
	if err != nil {
		return err
	}
	if !ok {
		return uc.conflict(ctx, current, now, result, spreadsheet.ConflictRow{
			TicketID:   current.ID,
			Field:      conflictFieldVersion,
			ExcelValue: row.RowVersion,
			DBValue:    strconv.Itoa(current.RowVersion),
			Resolution: resolutionConcurrent,
		}, "concurrent edit")
	}

	ev := ticket.NewEvent(current.ID, ticket.EventExcelSync, ticket.SourceExcel, now).
		WithStatus(before, updated.Status).
		WithDetails(map[string]any{"line": row.Line, "changes": edit.Changes()})
	if err := uc.events.Log(ctx, ev); err != nil {
		return err
	}
	result.Updated++
	return nil
}

func (uc *SyncUseCase) conflict(ctx context.Context, t *ticket.Ticket, now time.Time, result *SyncResult, c spreadsheet.ConflictRow, raw string) error {
	result.Conflicts++
	result.ConflictRows = append(result.ConflictRows, c)
	uc.logger.Warnw("workbook edit conflict",
		"ticket_id", c.TicketID,
		"field", c.Field,
		"excel", c.ExcelValue,
		"db", c.DBValue,
	)
	ev := ticket.NewEvent(t.ID, ticket.EventExcelConflict, ticket.SourceExcel, now).
		WithStatus(t.Status, t.Status).
		WithRaw(raw).
		WithDetails(map[string]any{
			"field":      c.Field,
			"excel":      c.ExcelValue,
			"db":         c.DBValue,
			"resolution": c.Resolution,
		})
	return uc.events.Log(ctx, ev)
}

// editFromRow turns the editable cells into an edit. Status text is matched
// against labels and synonyms; unknown text leaves the status alone. A blank
// priority clears it, an invalid one is ignored.
func editFromRow(row spreadsheet.EditRow) ticket.Edit {
	var edit ticket.Edit
	if s, ok := vo.ParseStatusText(row.Status); ok {
		edit.Status = &s
	}
	responsible := strings.TrimSpace(row.Responsible)
	edit.Responsible = &responsible
	if row.Priority != nil {
		text := strings.TrimSpace(*row.Priority)
		if text == "" {
			empty := vo.Priority("")
			edit.Priority = &empty
		} else if p, ok := vo.ParsePriority(text); ok {
			edit.Priority = &p
		}
	}
	if row.Comment != nil {
		comment := strings.TrimSpace(*row.Comment)
		edit.Comment = &comment
	}
	return edit
}

// changes reports whether applying edit would alter t.
func changes(t *ticket.Ticket, e ticket.Edit) bool {
	switch {
	case e.Status != nil && e.Status.Normalize() != t.Status.Normalize():
		return true
	case e.Responsible != nil && *e.Responsible != t.Responsible:
		return true
	case e.Priority != nil && *e.Priority != t.Priority:
		return true
	case e.Comment != nil && *e.Comment != t.Comment:
		return true
	}
	return false
}
