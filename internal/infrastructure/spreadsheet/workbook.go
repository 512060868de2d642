package spreadsheet

import "strconv"

// TicketRow is one rendered ticket. Values are display-ready.
type TicketRow struct {
	TicketID          uint
	StableID          string
	RowVersion        int
	Received          string
	Subject           string
	Sender            string
	CustomerEmail     string
	Body              string
	Status            string
	StatusCode        string
	Responsible       string
	FirstReply        string
	FirstReplyBody    string
	ForwardTo         string
	SLADue            string
	Overdue           bool
	Comment           string
	RecommendedAnswer string
	RepeatHint        string
	Priority          string
	Topic             string
	UpdatedAt         string
	UpdatedBy         string
	Source            string
}

// values returns the row in ticketColumns order.
func (r TicketRow) values() []any {
	overdue := "Нет"
	if r.Overdue {
		overdue = "Да"
	}
	return []any{
		r.TicketID,
		r.StableID,
		r.RowVersion,
		strconv.FormatUint(uint64(r.TicketID), 10),
		r.Received,
		r.Subject,
		r.Sender,
		r.CustomerEmail,
		r.Body,
		r.Status,
		r.Responsible,
		r.FirstReply,
		r.FirstReplyBody,
		r.ForwardTo,
		r.SLADue,
		overdue,
		r.Comment,
		r.RecommendedAnswer,
		r.RepeatHint,
		r.Priority,
		r.Topic,
		r.UpdatedAt,
		r.UpdatedBy,
		r.Source,
	}
}

// KPIRow is one indicator of the KPI sheet.
type KPIRow struct {
	Name  string
	Value any
}

// ConflictRow reports an edit that was not applied.
type ConflictRow struct {
	TicketID   uint
	Field      string
	ExcelValue string
	DBValue    string
	Resolution string
}

// StatusHint is one line of the status reference sheet.
type StatusHint struct {
	Label string
	Hint  string
}

// Workbook is everything one export renders.
type Workbook struct {
	Tickets    []TicketRow
	KPI        []KPIRow
	Conflicts  []ConflictRow
	StatusHelp []StatusHint
	// StatusLabels feeds the status drop-down list.
	StatusLabels []string
	Priorities   []string
	Password     string
}

// Overdue returns the rows flagged overdue.
func (w *Workbook) Overdue() []TicketRow {
	var out []TicketRow
	for _, r := range w.Tickets {
		if r.Overdue {
			out = append(out, r)
		}
	}
	return out
}
