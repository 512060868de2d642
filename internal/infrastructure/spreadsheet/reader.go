package spreadsheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrMissingHeaders means the ticket sheet lacks a column the import needs.
var ErrMissingHeaders = errors.New("workbook is missing required columns")

// EditRow is one ticket row as typed by a user. Optional columns absent from
// the sheet stay nil so the import leaves those fields untouched.
type EditRow struct {
	Line        int
	TicketID    string
	RowVersion  string
	Status      string
	Responsible string
	Priority    *string
	Comment     *string
	UpdatedAt   string
}

// ReadEdits loads the editable columns of the ticket sheet.
func ReadEdits(path string) ([]EditRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := ticketSheetName(f.GetSheetList())
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, ErrMissingHeaders
	}

	idx := indexHeaders(rows[0])
	required := []string{HeaderTicketID, HeaderRowVersion, HeaderStatus, HeaderResponsible}
	var missing []string
	for _, h := range required {
		if _, ok := idx[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingHeaders, strings.Join(missing, ", "))
	}

	out := make([]EditRow, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		er := EditRow{
			Line:        i + 2,
			TicketID:    cellAt(row, idx, HeaderTicketID),
			RowVersion:  cellAt(row, idx, HeaderRowVersion),
			Status:      cellAt(row, idx, HeaderStatus),
			Responsible: cellAt(row, idx, HeaderResponsible),
			UpdatedAt:   cellAt(row, idx, HeaderUpdatedAt),
		}
		if _, ok := idx[HeaderPriority]; ok {
			v := cellAt(row, idx, HeaderPriority)
			er.Priority = &v
		}
		if _, ok := idx[HeaderComment]; ok {
			v := cellAt(row, idx, HeaderComment)
			er.Comment = &v
		}
		out = append(out, er)
	}
	return out, nil
}

func ticketSheetName(sheets []string) string {
	for _, want := range []string{SheetTickets, legacySheetTickets} {
		for _, s := range sheets {
			if s == want {
				return s
			}
		}
	}
	if len(sheets) > 0 {
		return sheets[0]
	}
	return ""
}

// indexHeaders maps canonical header names to column positions, accepting
// legacy spellings.
func indexHeaders(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	for canonical, aliases := range legacyHeaderAliases {
		if _, ok := idx[canonical]; ok {
			continue
		}
		for _, a := range aliases {
			if i, ok := idx[a]; ok {
				idx[canonical] = i
				break
			}
		}
	}
	return idx
}

func cellAt(row []string, idx map[string]int, header string) string {
	i, ok := idx[header]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
