package ticket

import (
	"fmt"
	"strings"
	"time"

	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
)

// Data sources and editors recorded in last_updated_by / data_source.
const (
	SourceIngest   = "ingest"
	SourceOutlook  = "outlook"
	SourceExcel    = "excel"
	SourceMail     = "mail"
	SourceRecalc   = "recalc"
	SourceTest     = "test"
	SourceTestSeed = "test-all"
)

// Ticket is one customer email thread tracked against SLA deadlines.
// Fields are exported; the store, the spreadsheet and the SLA sweep all
// read and write most of them directly.
type Ticket struct {
	ID                uint
	StableID          *string
	ConvID            string
	ThreadKey         string
	EntryID           string
	FirstReceived     time.Time
	Sender            string
	CustomerEmail     string
	Subject           string
	Body              string
	FirstForward      *time.Time
	FirstForwardTo    string
	FirstReply        *time.Time
	FirstReplyBody    string
	Responsible       string
	Status            vo.Status
	LastStatusChange  time.Time
	DaysWithoutUpdate int
	Overdue           bool
	NotInteresting    bool
	IsRepeat          bool
	RepeatHint        string
	RecommendedAnswer string
	MatchScore        *float64
	Topic             string
	LastReminder      *time.Time
	Priority          vo.Priority
	LastUpdatedAt     *time.Time
	LastUpdatedBy     string
	DataSource        string
	Comment           string
	RowVersion        int
}

// Validate checks the fields the store's constraints depend on.
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.ThreadKey) == "" {
		return fmt.Errorf("thread key is required")
	}
	if t.FirstReceived.IsZero() {
		return fmt.Errorf("first received time is required")
	}
	if !t.Status.Normalize().IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	return nil
}

func (t *Ticket) HasReply() bool {
	return t.FirstReply != nil
}

func (t *Ticket) HasForward() bool {
	return t.FirstForward != nil
}

// HasOwner reports whether a responsible person is set.
func (t *Ticket) HasOwner() bool {
	return strings.TrimSpace(t.Responsible) != ""
}

// SLADue is the resolution deadline. Tickets without a priority have none.
func (t *Ticket) SLADue(table vo.ThresholdTable) *time.Time {
	if t.Priority == "" {
		return nil
	}
	th := table.For(t.Priority)
	due := t.FirstReceived.Add(time.Duration(th.ResolutionHours * float64(time.Hour)))
	return &due
}

// Touch records who changed the ticket and when.
func (t *Ticket) Touch(by, source string, now time.Time) {
	at := now.UTC()
	t.LastUpdatedAt = &at
	t.LastUpdatedBy = by
	if source != "" {
		t.DataSource = source
	}
}

// Clone returns a deep copy.
func (t *Ticket) Clone() *Ticket {
	c := *t
	c.StableID = clonePtr(t.StableID)
	c.FirstForward = clonePtr(t.FirstForward)
	c.FirstReply = clonePtr(t.FirstReply)
	c.MatchScore = clonePtr(t.MatchScore)
	c.LastReminder = clonePtr(t.LastReminder)
	c.LastUpdatedAt = clonePtr(t.LastUpdatedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Edit is a partial change coming from a mail response or a spreadsheet row.
// Nil fields are left untouched.
type Edit struct {
	Status      *vo.Status
	Responsible *string
	Priority    *vo.Priority
	Comment     *string
}

// IsEmpty reports whether the edit carries a status, owner or priority.
// A comment alone does not count as an update.
func (e Edit) IsEmpty() bool {
	return e.Status == nil && e.Responsible == nil && e.Priority == nil
}

// Changes lists the applied fields as key=value pairs for confirmations.
func (e Edit) Changes() []string {
	var out []string
	if e.Status != nil {
		out = append(out, "status="+e.Status.String())
	}
	if e.Responsible != nil {
		out = append(out, "owner="+*e.Responsible)
	}
	if e.Priority != nil {
		out = append(out, "prio="+e.Priority.String())
	}
	if e.Comment != nil {
		out = append(out, "comment="+*e.Comment)
	}
	return out
}

// ApplyResponse folds an operator's mail response into the ticket. A status
// change resets the idle counter and the overdue flag; any change moves
// LastStatusChange. Returns whether anything was applied.
func (t *Ticket) ApplyResponse(e Edit, now time.Time) bool {
	if e.IsEmpty() {
		return false
	}
	if e.Status != nil {
		t.Status = e.Status.Normalize()
		t.DaysWithoutUpdate = 0
		t.Overdue = false
	}
	if e.Responsible != nil {
		t.Responsible = *e.Responsible
	}
	if e.Priority != nil {
		t.Priority = *e.Priority
	}
	if e.Comment != nil {
		t.Comment = *e.Comment
	}
	t.LastStatusChange = now.UTC()
	t.Touch(SourceMail, SourceMail, now)
	return true
}

// ApplySpreadsheetEdit copies operator-editable columns from a spreadsheet row.
// Terminal statuses clear the overdue flag.
func (t *Ticket) ApplySpreadsheetEdit(e Edit, now time.Time) {
	if e.Status != nil {
		t.Status = e.Status.Normalize()
	}
	if e.Responsible != nil {
		t.Responsible = *e.Responsible
	}
	if e.Priority != nil {
		t.Priority = *e.Priority
	}
	if e.Comment != nil {
		t.Comment = *e.Comment
	}
	if t.Status.IsTerminal() {
		t.Overdue = false
	}
	t.Touch(SourceExcel, SourceExcel, now)
}

// MarkReminded stamps the reminder time without touching the status.
func (t *Ticket) MarkReminded(at time.Time) {
	at = at.UTC()
	t.LastReminder = &at
}
