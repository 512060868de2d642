package spreadsheet

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// AnswerRow is one question/answer pair of the answers corpus.
type AnswerRow struct {
	TicketID *uint
	Question string
	Answer   string
}

var (
	questionHeaders = []string{"question", "вопрос", "текст заявки", "тема"}
	answerHeaders   = []string{"answer", "ответ", "текст ответа", "рекомендованный ответ"}
)

// ReadAnswers loads question/answer pairs from the first sheet of path. Rows
// without both a question and an answer are dropped.
func ReadAnswers(path string) ([]AnswerRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open answers workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("answers workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read answers sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	qCol, aCol, idCol := -1, -1, -1
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		switch {
		case qCol < 0 && slices.Contains(questionHeaders, h):
			qCol = i
		case aCol < 0 && slices.Contains(answerHeaders, h):
			aCol = i
		case idCol < 0 && h == HeaderTicketID:
			idCol = i
		}
	}
	if qCol < 0 || aCol < 0 {
		return nil, fmt.Errorf("%w: question, answer", ErrMissingHeaders)
	}

	var out []AnswerRow
	for _, row := range rows[1:] {
		q, a := cell(row, qCol), cell(row, aCol)
		if q == "" || a == "" {
			continue
		}
		ar := AnswerRow{Question: q, Answer: a}
		if id, err := strconv.ParseUint(cell(row, idCol), 10, 64); err == nil {
			v := uint(id)
			ar.TicketID = &v
		}
		out = append(out, ar)
	}
	return out, nil
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
