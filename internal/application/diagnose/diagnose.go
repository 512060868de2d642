// Package diagnose reports on the mailbox, the data files and the send
// policy so an operator can see why a pass found nothing.
package diagnose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/slatrack/slatrack/internal/domain/mailbox"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

const topSenders = 10

type Command struct {
	Days int
}

// PathStatus is one data file or directory the pipeline depends on.
type PathStatus struct {
	Name   string
	Path   string
	Exists bool
}

type Report struct {
	Since         time.Time
	Mailbox       *mailbox.Diagnostics
	MailboxError  string
	Paths         []PathStatus
	DataDir       string
	DataWritable  bool
	WriteError    string
	SafeMode      bool
	AllowSend     bool
	SendAllowlist []string
	TestAllowlist []string
	AllowDomains  []string
	Warnings      []string
}

type Config struct {
	Filter        mailbox.SenderFilter
	ExcelPath     string
	DatabasePath  string
	LogDir        string
	SafeMode      bool
	AllowSend     bool
	SendAllowlist []string
	TestAllowlist []string
	AllowDomains  []string
}

type UseCase struct {
	mail   mailbox.Factory
	cfg    Config
	logger logger.Interface
	now    func() time.Time
}

func NewUseCase(mail mailbox.Factory, cfg Config, logger logger.Interface) *UseCase {
	return &UseCase{mail: mail, cfg: cfg, logger: logger, now: biztime.NowUTC}
}

// WithClock replaces the clock, for tests.
func (uc *UseCase) WithClock(now func() time.Time) *UseCase {
	uc.now = now
	return uc
}

// Execute never fails on what it inspects; problems land in the report.
func (uc *UseCase) Execute(ctx context.Context, cmd Command) (*Report, error) {
	report := &Report{
		Since:         uc.now().UTC().AddDate(0, 0, -cmd.Days),
		SafeMode:      uc.cfg.SafeMode,
		AllowSend:     uc.cfg.AllowSend,
		SendAllowlist: uc.cfg.SendAllowlist,
		TestAllowlist: uc.cfg.TestAllowlist,
		AllowDomains:  uc.cfg.AllowDomains,
	}

	uc.diagnoseMailbox(ctx, report)

	report.Paths = []PathStatus{
		pathStatus("excel", uc.cfg.ExcelPath),
		pathStatus("database", uc.cfg.DatabasePath),
		pathStatus("log_dir", uc.cfg.LogDir),
	}
	report.DataDir = filepath.Dir(uc.cfg.DatabasePath)
	if err := checkWritable(report.DataDir); err != nil {
		report.WriteError = err.Error()
		report.Warnings = append(report.Warnings, "data directory is not writable")
	} else {
		report.DataWritable = true
	}

	if uc.cfg.SafeMode || !uc.cfg.AllowSend {
		report.Warnings = append(report.Warnings, "sending is disabled, reminders are previewed only")
	}

	uc.logger.Infow("diagnostics",
		"since", report.Since,
		"data_writable", report.DataWritable,
		"warnings", len(report.Warnings),
	)
	return report, nil
}

func (uc *UseCase) diagnoseMailbox(ctx context.Context, report *Report) {
	client, err := uc.mail(ctx)
	if err != nil {
		report.MailboxError = err.Error()
		report.Warnings = append(report.Warnings, "mailbox is unavailable")
		return
	}
	defer client.Close()

	d, err := client.Diagnose(ctx, report.Since, uc.cfg.Filter)
	if err != nil {
		uc.logger.Warnw("mailbox diagnostics failed", "error", err)
		report.MailboxError = err.Error()
		report.Warnings = append(report.Warnings, "mailbox is unavailable")
		return
	}
	if len(d.TopSenders) > topSenders {
		d.TopSenders = d.TopSenders[:topSenders]
	}
	report.Mailbox = d
	if d.FilterTooStrict {
		report.Warnings = append(report.Warnings, "sender filter matches none of the inbox messages")
	}
}

func pathStatus(name, path string) PathStatus {
	ps := PathStatus{Name: name, Path: path}
	if path == "" {
		return ps
	}
	_, err := os.Stat(path)
	ps.Exists = err == nil
	return ps
}

// checkWritable creates and removes a file in dir, creating dir if needed.
func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return err
	}
	name := f.Name()
	return errors.Join(f.Close(), os.Remove(name))
}

