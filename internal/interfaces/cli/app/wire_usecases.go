package app

import (
	"time"

	"github.com/slatrack/slatrack/internal/application/diagnose"
	"github.com/slatrack/slatrack/internal/application/excelsync"
	"github.com/slatrack/slatrack/internal/application/ingest"
	"github.com/slatrack/slatrack/internal/application/notify"
	"github.com/slatrack/slatrack/internal/application/pipeline"
	"github.com/slatrack/slatrack/internal/application/recommend"
	"github.com/slatrack/slatrack/internal/application/responses"
	"github.com/slatrack/slatrack/internal/application/seed"
	"github.com/slatrack/slatrack/internal/application/sla"
)

func (c *Container) Ingest() *ingest.UseCase {
	return ingest.NewUseCase(c.schema, c.repos.tickets, c.repos.events, c.tx, c.mail, ingest.Config{
		SenderFilter:    c.senderFilter(),
		InternalDomains: internalDomains(c.cfg.Customer.InternalDomains),
		DataSource:      c.dataSource(),
	}, c.log.Named("ingest"))
}

func (c *Container) Recalc() *sla.RecalcUseCase {
	return sla.NewRecalcUseCase(c.schema, c.repos.tickets, c.tx, c.recommender(), sla.RecalcConfig{
		Thresholds: c.cfg.Thresholds(),
		Calendar:   c.calendar(),
	}, c.log.Named("recalc"))
}

func (c *Container) Export() *excelsync.ExportUseCase {
	return excelsync.NewExportUseCase(c.schema, c.repos.tickets, c.workbookWriter(), excelsync.ExportConfig{
		Path:          c.cfg.Paths.Excel,
		Password:      c.cfg.Excel.Password,
		Thresholds:    c.cfg.Thresholds(),
		StatusCatalog: c.statusCatalog(),
		StatusHints:   c.cfg.Status.Hints,
	}, c.log.Named("export"))
}

func (c *Container) Sync() *excelsync.SyncUseCase {
	return excelsync.NewSyncUseCase(c.schema, c.repos.tickets, c.repos.events, c.tx, c.cfg.Paths.Excel, c.log.Named("sync"))
}

func (c *Container) Responses() (*responses.UseCase, error) {
	composer, err := c.composer()
	if err != nil {
		return nil, err
	}
	return responses.NewUseCase(c.schema, c.repos.tickets, c.repos.events, c.tx, c.mail, composer, responses.Config{
		Confirm: c.cfg.Notify.ConfirmResponses,
		Preview: c.cfg.Notify.SafeMode || !c.cfg.Notify.AllowSend,
	}, c.log.Named("responses")), nil
}

func (c *Container) Plan() *sla.PlanUseCase {
	return sla.NewPlanUseCase(c.repos.tickets, sla.PlanConfig{
		ReminderInterval: time.Duration(c.cfg.Notify.ReminderIntervalHours) * time.Hour,
		QuietHoursStart:  c.cfg.Notify.QuietHoursStart,
		QuietHoursEnd:    c.cfg.Notify.QuietHoursEnd,
	}, c.log.Named("plan"))
}

func (c *Container) SendOverdue() (*sla.SendOverdueUseCase, error) {
	composer, err := c.composer()
	if err != nil {
		return nil, err
	}
	n := c.cfg.Notify
	return sla.NewSendOverdueUseCase(c.Recalc(), c.Plan(), composer, c.recipientPolicy(), c.mail,
		c.repos.tickets, c.repos.events, c.tx, sla.SendOverdueConfig{
			EscalationMatrix: c.escalationMatrix(),
			SafeMode:         n.SafeMode,
			AllowSend:        n.AllowSend,
			QuietHoursStart:  n.QuietHoursStart,
			QuietHoursEnd:    n.QuietHoursEnd,
		}, c.log.Named("send_overdue")), nil
}

func (c *Container) SendTest() (*notify.SendTestUseCase, error) {
	composer, err := c.composer()
	if err != nil {
		return nil, err
	}
	return notify.NewSendTestUseCase(c.mail, composer, c.recipientPolicy(), notify.SendTestConfig{
		TestAllowlist: c.cfg.Notify.TestAllowlist,
		SafeMode:      c.cfg.Notify.SafeMode,
	}, c.log.Named("send_test")), nil
}

// Pipeline is the sync-all runner, reporting into the console sink.
func (c *Container) Pipeline() *pipeline.Runner {
	return pipeline.NewRunner(pipeline.Steps{
		Sync:   c.Sync(),
		Ingest: c.Ingest(),
		Recalc: c.Recalc(),
		Export: c.Export(),
		Plan:   c.Plan(),
	}, c.sink, c.log.Named("pipeline"))
}

func (c *Container) ImportAnswers() *recommend.ImportAnswersUseCase {
	return recommend.NewImportAnswersUseCase(c.schema, c.repos.answers, c.tx, c.log.Named("answers"))
}

func (c *Container) Seed() *seed.UseCase {
	return seed.NewUseCase(c.schema, c.repos.tickets, c.repos.events, c.tx, c.log.Named("seed"))
}

func (c *Container) Diagnose() *diagnose.UseCase {
	return diagnose.NewUseCase(c.mail, diagnose.Config{
		Filter:        c.senderFilter(),
		ExcelPath:     c.cfg.Paths.Excel,
		DatabasePath:  c.cfg.Database.Path,
		LogDir:        c.cfg.Paths.LogDir,
		SafeMode:      c.cfg.Notify.SafeMode,
		AllowSend:     c.cfg.Notify.AllowSend,
		SendAllowlist: c.cfg.Notify.SendAllowlist,
		TestAllowlist: c.cfg.Notify.TestAllowlist,
		AllowDomains:  c.cfg.Notify.SendAllowDomains,
	}, c.log.Named("diagnose"))
}
