package valueobjects

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Status is the ASCII ticket status code. Russian labels are for display only.
type Status string

const (
	StatusNew             Status = "new"
	StatusAssigned        Status = "assigned"
	StatusResponded       Status = "responded"
	StatusResolved        Status = "resolved"
	StatusWaitingCustomer Status = "waiting_customer"
	StatusTable           Status = "table"
	StatusOTIP            Status = "otip"
	StatusOverdue         Status = "overdue"
	StatusNotInteresting  Status = "not_interesting"

	// StatusInTable is the historical spelling of StatusTable.
	StatusInTable Status = "in_table"
)

// AllStatuses lists the canonical codes in display order.
var AllStatuses = []Status{
	StatusNew,
	StatusAssigned,
	StatusResponded,
	StatusResolved,
	StatusWaitingCustomer,
	StatusTable,
	StatusOTIP,
	StatusOverdue,
	StatusNotInteresting,
}

var statusLabels = map[Status]string{
	StatusNew:             "Новое",
	StatusAssigned:        "В работе",
	StatusResponded:       "Дан ответ",
	StatusResolved:        "Закрыто",
	StatusWaitingCustomer: "Ждем клиента",
	StatusTable:           "Требует данных/таблица",
	StatusOTIP:            "OTIP",
	StatusOverdue:         "Просрочка SLA",
	StatusNotInteresting:  "Неинтересно/спам",
}

var statusAliases = map[Status]Status{
	StatusInTable: StatusTable,
}

var statusOrder = map[Status]int{
	StatusNew:             0,
	StatusTable:           1,
	StatusInTable:         1,
	StatusAssigned:        2,
	StatusWaitingCustomer: 2,
	StatusOTIP:            2,
	StatusResponded:       3,
	StatusOverdue:         4,
	StatusResolved:        5,
	StatusNotInteresting:  6,
}

// Lower-cased operator input (RU, EN, transliterated) mapped to canonical codes.
var statusSynonyms = map[string]Status{
	"новое":                  StatusNew,
	"new":                    StatusNew,
	"vhod":                   StatusNew,
	"вход":                   StatusNew,
	"входящее":               StatusNew,
	"in_table":               StatusTable,
	"table":                  StatusTable,
	"таблица":                StatusTable,
	"требует таблицы":        StatusTable,
	"требует данных":         StatusTable,
	"требует данных/таблица": StatusTable,
	"назначено":              StatusAssigned,
	"в работе":               StatusAssigned,
	"работа":                 StatusAssigned,
	"переслано":              StatusAssigned,
	"forwarded":              StatusAssigned,
	"forward":                StatusAssigned,
	"assigned":               StatusAssigned,
	"naznacheno":             StatusAssigned,
	"ответ":                  StatusResponded,
	"дан ответ":              StatusResponded,
	"responded":              StatusResponded,
	"ok":                     StatusResponded,
	"ок":                     StatusResponded,
	"закрыто":                StatusResolved,
	"закрыть":                StatusResolved,
	"resolved":               StatusResolved,
	"done":                   StatusResolved,
	"close":                  StatusResolved,
	"closed":                 StatusResolved,
	"неинтересно":            StatusNotInteresting,
	"неинтересно/спам":       StatusNotInteresting,
	"не наш":                 StatusNotInteresting,
	"спам":                   StatusNotInteresting,
	"not_interesting":        StatusNotInteresting,
	"просрочка":              StatusOverdue,
	"просрочка sla":          StatusOverdue,
	"overdue":                StatusOverdue,
	"waiting_customer":       StatusWaitingCustomer,
	"waiting":                StatusWaitingCustomer,
	"waiting customer":       StatusWaitingCustomer,
	"need more time":         StatusWaitingCustomer,
	"more time":              StatusWaitingCustomer,
	"нужно время":            StatusWaitingCustomer,
	"ждём клиента":           StatusWaitingCustomer,
	"ждем клиента":           StatusWaitingCustomer,
	"ожидаем клиента":        StatusWaitingCustomer,
	"ждём":                   StatusWaitingCustomer,
	"ждем":                   StatusWaitingCustomer,
	"ждём ответ":             StatusWaitingCustomer,
	"ждем ответ":             StatusWaitingCustomer,
	"otip":                   StatusOTIP,
	"отип":                   StatusOTIP,
}

// LegacyStatusMigration rewrites one stored code during schema ensure.
type LegacyStatusMigration struct {
	From string
	To   Status
}

// LegacyStatusMigrations repairs codes written by an old build with a broken
// codepage, then folds the in_table alias. Order matters.
var LegacyStatusMigrations = []LegacyStatusMigration{
	{From: "???‘<ü", To: StatusNew},
	{From: "' ‘?ø+?‘'ç ‘? ó?>>ç?", To: StatusInTable},
	{From: "' ‘'ø+>ñ‘Åç", To: StatusAssigned},
	{From: "ÿç‘?ç??", To: StatusResponded},
	{From: "-øó‘?‘<‘'?", To: StatusResolved},
	{From: "?‘??‘?‘??‘Øç??", To: StatusOverdue},
	{From: "?ç ñ?‘'ç‘?ç‘???", To: StatusNotInteresting},
	{From: string(StatusInTable), To: StatusTable},
}

var nonStatusCharRe = regexp.MustCompile(`[^a-zа-яё 0-9_]+`)

// FoldText applies NFC and Unicode case folding. A Caser is stateful, so one is built per call.
func FoldText(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

func (s Status) String() string {
	return string(s)
}

// IsValid reports whether s is a canonical code or a known alias.
func (s Status) IsValid() bool {
	if _, ok := statusLabels[s]; ok {
		return true
	}
	_, ok := statusAliases[s]
	return ok
}

// Normalize lowercases, trims and resolves aliases.
func (s Status) Normalize() Status {
	code := Status(strings.ToLower(strings.TrimSpace(string(s))))
	if alias, ok := statusAliases[code]; ok {
		return alias
	}
	return code
}

// Label returns the display label; unknown codes render as themselves.
func (s Status) Label() string {
	if label, ok := statusLabels[s.Normalize()]; ok {
		return label
	}
	return string(s)
}

// Order ranks statuses for Raise. Unknown codes rank below everything.
func (s Status) Order() int {
	if o, ok := statusOrder[s.Normalize()]; ok {
		return o
	}
	return -1
}

// IsTerminal reports whether a spreadsheet edit to s clears the overdue flag.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusResolved, StatusTable, StatusInTable, StatusNotInteresting:
		return true
	}
	return false
}

// ExcludedFromRecalc reports whether the SLA sweep skips tickets in s.
func (s Status) ExcludedFromRecalc() bool {
	return s.IsTerminal()
}

// NormalizeStatus is Status(code).Normalize().
func NormalizeStatus(code string) Status {
	return Status(code).Normalize()
}

// StatusLabel returns the display label for a raw code.
func StatusLabel(code string) string {
	return Status(code).Label()
}

// Raise returns candidate only when it ranks strictly above current.
func Raise(current, candidate Status) Status {
	if candidate.Order() > current.Order() {
		return candidate
	}
	return current
}

// ParseStatusText maps free-form operator input or a display label to a code.
func ParseStatusText(text string) (Status, bool) {
	t := FoldText(strings.TrimSpace(text))
	if t == "" {
		return "", false
	}
	if code, ok := statusSynonyms[t]; ok {
		return code, true
	}
	if code := Status(t); code.IsValid() {
		return code.Normalize(), true
	}
	for code, label := range statusLabels {
		if FoldText(label) == t {
			return code, true
		}
	}
	cleaned := strings.TrimSpace(nonStatusCharRe.ReplaceAllString(t, ""))
	if code, ok := statusSynonyms[cleaned]; ok {
		return code, true
	}
	if code, ok := statusSynonyms[strings.ReplaceAll(cleaned, " ", "_")]; ok {
		return code, true
	}
	return "", false
}

// DeriveBaseStatus picks the initial status of an ingested thread.
// A thread with no reply and no forward still counts as assigned so it never lingers as new.
func DeriveBaseStatus(hasForward, hasReply, requiresTable, uninteresting bool) Status {
	switch {
	case uninteresting:
		return StatusNotInteresting
	case requiresTable:
		return StatusTable
	case hasReply:
		return StatusResponded
	case hasForward:
		return StatusAssigned
	default:
		return StatusAssigned
	}
}

// StatusLabels returns the labels of AllStatuses in order.
func StatusLabels() []string {
	labels := make([]string, 0, len(AllStatuses))
	for _, s := range AllStatuses {
		labels = append(labels, s.Label())
	}
	return labels
}
