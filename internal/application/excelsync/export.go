// Package excelsync exports tickets to the operator workbook and reads the
// operators' edits back.
package excelsync

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/spreadsheet"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const (
	unassignedLabel = "<не задан>"
	topResponsible  = 5
)

// WorkbookWriter persists a rendered workbook.
type WorkbookWriter interface {
	Write(ctx context.Context, path string, wb *spreadsheet.Workbook) (*spreadsheet.WriteResult, error)
}

type ExportCommand struct {
	// TodayOnly limits the export to tickets received on the current business day.
	TodayOnly bool
	// Conflicts fills the conflict sheet, usually from the preceding sync.
	Conflicts []spreadsheet.ConflictRow
}

type ExportResult struct {
	Path    string
	Pending bool
	Rows    int
}

type ExportConfig struct {
	Path          string
	Password      string
	Thresholds    vo.ThresholdTable
	StatusCatalog []vo.Status
	StatusHints   map[string]string
}

type ExportUseCase struct {
	schema  ticket.SchemaEnsurer
	tickets ticket.TicketRepository
	writer  WorkbookWriter
	cfg     ExportConfig
	logger  logger.Interface
	now     func() time.Time
}

func NewExportUseCase(
	schema ticket.SchemaEnsurer,
	tickets ticket.TicketRepository,
	writer WorkbookWriter,
	cfg ExportConfig,
	logger logger.Interface,
) *ExportUseCase {
	return &ExportUseCase{
		schema:  schema,
		tickets: tickets,
		writer:  writer,
		cfg:     cfg,
		logger:  logger,
		now:     biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (uc *ExportUseCase) WithClock(now func() time.Time) *ExportUseCase {
	uc.now = now
	return uc
}

func (uc *ExportUseCase) Execute(ctx context.Context, cmd ExportCommand) (*ExportResult, error) {
	if err := uc.schema.EnsureSchema(ctx); err != nil {
		return nil, err
	}

	var filter ticket.TicketFilter
	if cmd.TodayOnly {
		now := uc.now()
		since, until := biztime.StartOfDayUTC(now), biztime.EndOfDayUTC(now)
		filter.ReceivedSince, filter.ReceivedUntil = &since, &until
	}
	tickets, err := uc.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	wb := uc.buildWorkbook(tickets, cmd.Conflicts)
	written, err := uc.writer.Write(ctx, uc.cfg.Path, wb)
	if err != nil {
		uc.logger.Errorw("failed to export workbook", "path", uc.cfg.Path, "error", err)
		return nil, err
	}

	uc.logger.Infow("export summary", "path", written.Path, "rows", len(wb.Tickets), "pending", written.Pending)
	return &ExportResult{Path: written.Path, Pending: written.Pending, Rows: len(wb.Tickets)}, nil
}

func (uc *ExportUseCase) buildWorkbook(tickets []*ticket.Ticket, conflicts []spreadsheet.ConflictRow) *spreadsheet.Workbook {
	wb := &spreadsheet.Workbook{
		Tickets:    make([]spreadsheet.TicketRow, 0, len(tickets)),
		Conflicts:  conflicts,
		Priorities: make([]string, 0, len(vo.AllPriorities)),
		Password:   uc.cfg.Password,
	}
	for _, t := range tickets {
		wb.Tickets = append(wb.Tickets, uc.row(t))
	}
	for _, p := range vo.AllPriorities {
		wb.Priorities = append(wb.Priorities, p.String())
	}
	for _, s := range uc.catalog() {
		wb.StatusLabels = append(wb.StatusLabels, s.Label())
		wb.StatusHelp = append(wb.StatusHelp, spreadsheet.StatusHint{Label: s.Label(), Hint: uc.cfg.StatusHints[s.String()]})
	}
	wb.KPI = buildKPI(wb.Tickets)
	return wb
}

func (uc *ExportUseCase) catalog() []vo.Status {
	if len(uc.cfg.StatusCatalog) > 0 {
		return uc.cfg.StatusCatalog
	}
	return vo.AllStatuses
}

func (uc *ExportUseCase) row(t *ticket.Ticket) spreadsheet.TicketRow {
	row := spreadsheet.TicketRow{
		TicketID:          t.ID,
		RowVersion:        t.RowVersion,
		Received:          displayTime(&t.FirstReceived),
		Subject:           t.Subject,
		Sender:            t.Sender,
		CustomerEmail:     t.CustomerEmail,
		Body:              t.Body,
		Status:            t.Status.Label(),
		StatusCode:        t.Status.Normalize().String(),
		Responsible:       t.Responsible,
		FirstReply:        displayTime(t.FirstReply),
		FirstReplyBody:    t.FirstReplyBody,
		ForwardTo:         t.FirstForwardTo,
		SLADue:            displayTime(t.SLADue(uc.cfg.Thresholds)),
		Overdue:           t.Overdue,
		Comment:           t.Comment,
		RecommendedAnswer: t.RecommendedAnswer,
		RepeatHint:        t.RepeatHint,
		Priority:          t.Priority.String(),
		Topic:             t.Topic,
		UpdatedAt:         displayTime(t.LastUpdatedAt),
		UpdatedBy:         t.LastUpdatedBy,
		Source:            t.DataSource,
	}
	if t.StableID != nil {
		row.StableID = *t.StableID
	}
	return row
}

func displayTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return biztime.FormatInBizTimezone(*t, biztime.DisplayLayout)
}

// buildKPI summarises the exported rows: totals, overdue share, per-status
// counts in order of first appearance and the busiest owners.
func buildKPI(rows []spreadsheet.TicketRow) []spreadsheet.KPIRow {
	total := len(rows)
	overdue := 0
	var statusOrder []string
	byStatus := map[string]int{}
	byOwner := map[string]int{}
	for _, r := range rows {
		if r.Overdue {
			overdue++
		}
		if _, seen := byStatus[r.Status]; !seen {
			statusOrder = append(statusOrder, r.Status)
		}
		byStatus[r.Status]++
		byOwner[r.Responsible]++
	}

	kpi := []spreadsheet.KPIRow{
		{Name: "Всего заявок", Value: total},
		{Name: "Просрочка", Value: overdue},
	}
	if total > 0 {
		share := float64(overdue) / float64(total) * 100
		kpi = append(kpi, spreadsheet.KPIRow{Name: "Доля просрочек", Value: strconv.FormatFloat(share, 'f', 1, 64) + "%"})
	}
	for _, s := range statusOrder {
		kpi = append(kpi, spreadsheet.KPIRow{Name: "Статус " + s, Value: byStatus[s]})
	}

	owners := make([]string, 0, len(byOwner))
	for o := range byOwner {
		owners = append(owners, o)
	}
	sort.Slice(owners, func(i, j int) bool {
		if byOwner[owners[i]] != byOwner[owners[j]] {
			return byOwner[owners[i]] > byOwner[owners[j]]
		}
		return owners[i] < owners[j]
	})
	for i, o := range owners {
		if i == topResponsible {
			break
		}
		label := o
		if label == "" {
			label = unassignedLabel
		}
		kpi = append(kpi, spreadsheet.KPIRow{Name: fmt.Sprintf("Топ ответственное лицо: %s", label), Value: byOwner[o]})
	}
	return kpi
}
