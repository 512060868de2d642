// Package spreadsheet renders the ticket workbook and reads manual edits back.
package spreadsheet

const (
	SheetTickets    = "Заявки"
	SheetOverdue    = "Просрочки"
	SheetKPI        = "KPI"
	SheetConflicts  = "Конфликты"
	SheetStatusHelp = "Статусы и подсказки"

	legacySheetTickets = "Tickets"
)

// Header names that the reader and the writer share.
const (
	HeaderTicketID    = "ticket_id"
	HeaderStableID    = "stable_id"
	HeaderRowVersion  = "row_version"
	HeaderStatus      = "Статус"
	HeaderResponsible = "Ответственный"
	HeaderComment     = "Комментарий"
	HeaderPriority    = "Приоритет"
	HeaderUpdatedAt   = "Обновлено"
	HeaderOverdue     = "Просрочка"
	HeaderBody        = "Текст заявки"
)

const (
	defaultColWidth = 18
	// validationLastRow bounds the list validation range.
	validationLastRow = 1000
	maxAutoWidth      = 60
)

type column struct {
	header   string
	width    float64
	wrap     bool
	editable bool
	hidden   bool
}

var ticketColumns = []column{
	{header: HeaderTicketID, width: 10, hidden: true},
	{header: HeaderStableID, width: 12, hidden: true},
	{header: HeaderRowVersion, width: 10, hidden: true},
	{header: "ID заявки", width: 12},
	{header: "Получено", width: 18},
	{header: "Тема", width: 40, wrap: true},
	{header: "Отправитель (SMTP)", width: 28},
	{header: "Email клиента", width: 28},
	{header: HeaderBody, width: 42, wrap: true},
	{header: HeaderStatus, width: 18, editable: true},
	{header: HeaderResponsible, width: 24, editable: true},
	{header: "Первый ответ", width: 18},
	{header: "Текст ответа", width: 28, wrap: true},
	{header: "Переслано кому", width: 22},
	{header: "SLA дедлайн", width: 18},
	{header: HeaderOverdue, width: 12},
	{header: HeaderComment, width: 40, wrap: true, editable: true},
	{header: "Рекомендованный ответ", width: 40, wrap: true},
	{header: "Повторы (30д)", width: 24, wrap: true},
	{header: HeaderPriority, width: 12, editable: true},
	{header: "Тема/группа", width: 24, wrap: true},
	{header: HeaderUpdatedAt, width: 18},
	{header: "Кем обновлено", width: 18},
	{header: "Источник", width: 14},
}

// Headers returns the ticket sheet header row in display order.
func Headers() []string {
	out := make([]string, len(ticketColumns))
	for i, c := range ticketColumns {
		out[i] = c.header
	}
	return out
}

func columnIndex(header string) int {
	for i, c := range ticketColumns {
		if c.header == header {
			return i
		}
	}
	return -1
}

// legacyHeaderAliases are header spellings produced by older exports with a
// broken encoding. They are still accepted on import.
var legacyHeaderAliases = map[string][]string{
	HeaderStatus:      {"ö‘'ø‘'‘?‘?", "ÿ?ö'ÿ‚øö'ö?ö?"},
	HeaderResponsible: {"?‘'?ç‘'‘?‘'?ç??‘<ü", "ÿ?ö'ÿ?ÿ‘Øö'ö?ö'ÿ?ÿ‘Øÿ?ÿ?ö<ÿ¢\"-"},
	HeaderComment:     {"????ç?‘'ø‘?ñü", "ÿ?ÿ?ÿ?ÿ?ÿ‘Øÿ?ö'ÿ‚øö?ÿ‘'ÿ¢\"-"},
	HeaderPriority:    {"?‘?ñ?‘?ñ‘'ç‘'", "ÿ?ö?ÿ‘'ÿ?ö?ÿ‘'ö'ÿ‘Øö'"},
	HeaderBody: {
		"÷çó‘?‘' ?+‘?ø‘%ç?ñ‘?",
		"ÿ‘?ÿ‚çÿ‘\"ö'ö?ö' ÿ‘ÿ‚+ö'ÿ‚øö¢?øÿ‚çÿ:ÿ‘'ö?",
		"ÿÅÿ‘ÿ‘-ö'ÿ‘ö?",
	},
}

// statusColors fills ticket rows by status code.
var statusColors = map[string]string{
	"resolved":         "C6EFCE",
	"responded":        "C6EFCE",
	"assigned":         "FFF2CC",
	"new":              "FFF2CC",
	"overdue":          "F8CBAD",
	"not_interesting":  "D9D9D9",
	"waiting_customer": "D9E1F2",
	"table":            "D9E1F2",
	"otip":             "FCE4D6",
}

const (
	ticketHeaderFill  = "D9E1F2"
	summaryHeaderFill = "E2EFDA"
)
