package app

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/slatrack/slatrack/internal/application/notify"
	"github.com/slatrack/slatrack/internal/application/recommend"
	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/domain/ticket"
	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	"github.com/slatrack/slatrack/internal/infrastructure/email"
	"github.com/slatrack/slatrack/internal/infrastructure/mailbox/maildir"
	"github.com/slatrack/slatrack/internal/infrastructure/mailbox/memory"
	"github.com/slatrack/slatrack/internal/infrastructure/repository"
	"github.com/slatrack/slatrack/internal/infrastructure/spreadsheet"
	"github.com/slatrack/slatrack/internal/infrastructure/template"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/services/markdown"
)

// repositories holds the store repositories. Types match the domain contracts.
type repositories struct {
	tickets ticket.TicketRepository
	events  ticket.EventRepository
	answers ticket.AnswerRepository
}

func newRepositories(db *gorm.DB) *repositories {
	return &repositories{
		tickets: repository.NewTicketRepository(db),
		events:  repository.NewEventRepository(db),
		answers: repository.NewAnswerRepository(db),
	}
}

func (c *Container) newMailFactory() mailbox.Factory {
	mc := c.cfg.Mailbox
	if mc.Driver == memory.Name {
		return memory.New().Factory()
	}
	transport := email.NewSMTPEmailService(email.SMTPConfig{
		Host:        mc.SMTPHost,
		Port:        mc.SMTPPort,
		Username:    mc.SMTPUser,
		Password:    mc.SMTPPassword,
		FromAddress: mc.FromAddress,
		FromName:    "SLA tracker",
	})
	return maildir.NewFactory(maildir.Config{
		InboxDir:     mc.InboxDir,
		SentDir:      mc.SentDir,
		OutboxDir:    mc.OutboxDir,
		Mailbox:      mc.FromAddress,
		Retries:      mc.Retries,
		ForcePreview: c.cfg.Notify.SafeMode,
	}, transport, c.log)
}

func (c *Container) dataSource() string {
	if c.cfg.Mailbox.Driver == memory.Name {
		return memory.Name
	}
	return ticket.SourceOutlook
}

func (c *Container) senderFilter() mailbox.SenderFilter {
	return mailbox.SenderFilter{Mode: c.cfg.Ingest.SenderFilterMode, Value: c.cfg.Ingest.SenderFilterValue}
}

func (c *Container) calendar() biztime.Calendar {
	return biztime.NewCalendar(c.cfg.SLA.BusinessHoursStart, c.cfg.SLA.BusinessHoursEnd, c.cfg.SLA.Holidays)
}

func (c *Container) statusCatalog() []vo.Status {
	out := make([]vo.Status, 0, len(c.cfg.Status.Catalog))
	for _, code := range c.cfg.Status.Catalog {
		out = append(out, vo.NormalizeStatus(code))
	}
	return out
}

func (c *Container) escalationMatrix() map[vo.Priority][]string {
	out := make(map[vo.Priority][]string, len(c.cfg.Notify.EscalationMatrix))
	for key, recipients := range c.cfg.Notify.EscalationMatrix {
		if p, ok := vo.ParsePriority(key); ok {
			out[p] = recipients
		}
	}
	return out
}

func (c *Container) recipientPolicy() notify.RecipientPolicy {
	n := c.cfg.Notify
	return notify.NewRecipientPolicy(n.SendAllowDomains, n.SendAllowlist, n.TestAllowlist)
}

// composer renders mail with the custom reminder template when the
// templates directory carries one.
func (c *Container) composer() (*notify.Composer, error) {
	loader := template.NewMailTemplateLoader(c.cfg.Paths.TemplatesDir, c.log)
	if err := loader.Load(); err != nil {
		return nil, err
	}
	reminder, _ := loader.Get(template.KindReminder)
	return notify.NewComposer(markdown.NewMarkdownService(), notify.ComposerConfig{
		DocsURL:          c.cfg.Notify.DocsURL,
		SharepointURL:    c.cfg.Notify.SharepointURL,
		ExcelPath:        c.cfg.Paths.Excel,
		ReminderTemplate: reminder,
	})
}

// recommender is nil when recommendations are disabled.
func (c *Container) recommender() recommend.Recommender {
	if !c.cfg.Recommend.Enabled {
		return nil
	}
	return recommend.NewTFIDF(c.repos.tickets, c.repos.answers, c.tx, recommend.Config{
		SimilarityDays: c.cfg.Recommend.SimilarityDays,
		Threshold:      c.cfg.Recommend.Threshold,
	}, c.log.Named("recommend"))
}

func (c *Container) workbookWriter() *spreadsheet.Writer {
	return spreadsheet.NewWriter(spreadsheet.WriterConfig{
		BackupDir:   c.cfg.Paths.BackupDir,
		LockTimeout: time.Duration(c.cfg.Excel.LockTimeoutSec) * time.Second,
	}, c.log)
}

func internalDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}
