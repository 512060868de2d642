package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	"github.com/slatrack/slatrack/internal/shared/services/markdown"
)

// VotingOptions are the buttons offered on reminders. Responses map back to
// statuses through the status synonym table.
var VotingOptions = []string{"OK", "Нужно время", "Закрыть", "Не наш"}

// DefaultReminderTemplate is the markdown body of an overdue reminder.
const DefaultReminderTemplate = `**Просрочка SLA #{{.ID}}: {{.PriorityTag}}**

{{.Subject}}

### Что сделать сейчас

1. Нажмите Voting: **OK / Нужно время / Закрыть / Не наш**
2. Или ответьте командами: ` + "`/status`, `/prio`, `/owner`, `/comment`" + `

### Ссылки и гайд

{{if .GuideURL}}[Гайд/шпаргалка]({{.GuideURL}}){{else}}Гайд в SharePoint{{end}}
Excel: {{.ExcelPath}}

### Данные обращения

ID: **{{.ID}}**
Тема: {{.Subject}}
Приоритет: {{.PriorityTag}}
Сформировано: {{.Generated}}
`

type ComposerConfig struct {
	DocsURL       string
	SharepointURL string
	ExcelPath     string
	// ReminderTemplate overrides DefaultReminderTemplate when set.
	ReminderTemplate string
}

// Composer renders reminder, confirmation and test mail.
type Composer struct {
	md       markdown.MarkdownService
	reminder *template.Template
	cfg      ComposerConfig
	now      func() time.Time
}

func NewComposer(md markdown.MarkdownService, cfg ComposerConfig) (*Composer, error) {
	src := cfg.ReminderTemplate
	if strings.TrimSpace(src) == "" {
		src = DefaultReminderTemplate
	}
	tmpl, err := template.New("reminder").Parse(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse reminder template: %w", err)
	}
	return &Composer{
		md:       md,
		reminder: tmpl,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// WithClock replaces the clock, for tests.
func (c *Composer) WithClock(now func() time.Time) *Composer {
	c.now = now
	return c
}

type reminderData struct {
	ID          uint
	Subject     string
	PriorityTag string
	GuideURL    string
	ExcelPath   string
	Generated   string
}

// OverdueSubject renders "[SLA][P1] Просрочка #<id>: <subject>"; the
// priority tag is omitted when the ticket has none.
func OverdueSubject(t *ticket.Ticket) string {
	tag := ""
	if t.Priority != "" {
		tag = "[" + t.Priority.Tag() + "]"
	}
	return fmt.Sprintf("[SLA]%s Просрочка #%d: %s", tag, t.ID, t.Subject)
}

// Overdue builds the reminder for t. Recipients are left to the caller.
func (c *Composer) Overdue(t *ticket.Ticket) (mailbox.OutgoingMail, error) {
	generated := c.now().UTC().Format("2006-01-02T15:04:05") + "Z"
	prio := "n/a"
	if t.Priority != "" {
		prio = t.Priority.Tag()
	}

	var plain strings.Builder
	plain.WriteString("Просрочка SLA.\n\n")
	fmt.Fprintf(&plain, "ID: %d\n", t.ID)
	fmt.Fprintf(&plain, "Тема: %s\n", t.Subject)
	fmt.Fprintf(&plain, "Приоритет: %s\n", prio)
	fmt.Fprintf(&plain, "Время: %s\n", generated)
	plain.WriteString("Ответьте голосованием (OK / Нужно время / Закрыть / Не наш)\n")
	plain.WriteString("или командами /status /prio /owner /comment.\n")

	guide := c.cfg.DocsURL
	if guide == "" {
		guide = c.cfg.SharepointURL
	}
	var md bytes.Buffer
	if err := c.reminder.Execute(&md, reminderData{
		ID:          t.ID,
		Subject:     t.Subject,
		PriorityTag: prio,
		GuideURL:    guide,
		ExcelPath:   c.cfg.ExcelPath,
		Generated:   generated,
	}); err != nil {
		return mailbox.OutgoingMail{}, fmt.Errorf("failed to render reminder: %w", err)
	}
	html, err := c.md.ToHTMLSanitized(md.String())
	if err != nil {
		return mailbox.OutgoingMail{}, err
	}

	return mailbox.OutgoingMail{
		Subject:       OverdueSubject(t),
		Body:          plain.String(),
		HTMLBody:      html,
		VotingOptions: append([]string(nil), VotingOptions...),
	}, nil
}

// Confirmation is the reply body acknowledging applied changes.
func (c *Composer) Confirmation(changes []string) string {
	return "Принято. Обновлено: " + strings.Join(changes, "; ")
}

// Test builds a test message with the reminder voting buttons.
func (c *Composer) Test(subject, body string) (mailbox.OutgoingMail, error) {
	html, err := c.md.ToHTMLSanitized(body)
	if err != nil {
		return mailbox.OutgoingMail{}, err
	}
	return mailbox.OutgoingMail{
		Subject:       subject,
		Body:          body,
		HTMLBody:      html,
		VotingOptions: append([]string(nil), VotingOptions...),
	}, nil
}
