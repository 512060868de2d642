// Package pipeline chains the sync steps into one sync-all pass.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/slatrack/slatrack/internal/application/excelsync"
	"github.com/slatrack/slatrack/internal/application/ingest"
	"github.com/slatrack/slatrack/internal/application/sla"
	"github.com/slatrack/slatrack/internal/shared/biztime"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

type Syncer interface {
	Execute(ctx context.Context) (*excelsync.SyncResult, error)
}

type Ingester interface {
	Execute(ctx context.Context, cmd ingest.Command) (*ingest.Result, error)
}

type Recalculator interface {
	Execute(ctx context.Context) (*sla.RecalcResult, error)
}

type Exporter interface {
	Execute(ctx context.Context, cmd excelsync.ExportCommand) (*excelsync.ExportResult, error)
}

type Planner interface {
	Execute(ctx context.Context, now time.Time) (*sla.Plan, error)
}

// Steps are the use cases of one pass, in execution order.
type Steps struct {
	Sync   Syncer
	Ingest Ingester
	Recalc Recalculator
	Export Exporter
	Plan   Planner
}

type Command struct {
	Days int
	// DryRun skips the workbook to store step.
	DryRun bool
}

// Report collects the outcome of every step that ran.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Sync     *excelsync.SyncResult
	Ingest   *ingest.Result
	Recalc   *sla.RecalcResult
	Export   *excelsync.ExportResult
	Plan     *sla.Plan
}

type Runner struct {
	steps  Steps
	logger logger.Interface
	now    func() time.Time
}

// NewRunner builds a runner that reports every step to sink as well as to
// log. sink may be nil.
func NewRunner(steps Steps, sink logger.Sink, log logger.Interface) *Runner {
	return &Runner{
		steps:  steps,
		logger: logger.WithSink(log, sink),
		now:    biztime.NowUTC,
	}
}

// WithClock replaces the clock, for tests.
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes one pass. The first failing step aborts the run; the report
// still carries the steps that completed.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Report, error) {
	report := &Report{RunID: uuid.NewString(), Started: r.now().UTC()}
	log := r.logger.With("run_id", report.RunID)
	log.Infow("sync-all started", "days", cmd.Days, "dry_run", cmd.DryRun)

	if cmd.DryRun {
		report.Sync = &excelsync.SyncResult{}
		log.Infow("step skipped", "step", "excel_to_db", "reason", "dry run")
	} else {
		res, err := r.steps.Sync.Execute(ctx)
		if err != nil {
			return report, r.fail(log, "excel_to_db", err)
		}
		report.Sync = res
		log.Infow("step done", "step", "excel_to_db",
			"updated", res.Updated, "conflicts", res.Conflicts, "missing", res.Missing)
	}

	since := report.Started.AddDate(0, 0, -cmd.Days)
	ing, err := r.steps.Ingest.Execute(ctx, ingest.Command{Since: since, Until: report.Started})
	if err != nil {
		return report, r.fail(log, "ingest", err)
	}
	report.Ingest = ing
	log.Infow("step done", "step", "ingest", "processed", ing.Processed, "days", cmd.Days)

	rec, err := r.steps.Recalc.Execute(ctx)
	if err != nil {
		return report, r.fail(log, "recalc", err)
	}
	report.Recalc = rec
	log.Infow("step done", "step", "recalc", "touched", rec.Touched, "escalated", rec.Escalated)

	exp, err := r.steps.Export.Execute(ctx, excelsync.ExportCommand{Conflicts: report.Sync.ConflictRows})
	if err != nil {
		return report, r.fail(log, "export", err)
	}
	report.Export = exp
	log.Infow("step done", "step", "export", "path", exp.Path, "rows", exp.Rows, "pending", exp.Pending)

	plan, err := r.steps.Plan.Execute(ctx, r.now().UTC())
	if err != nil {
		return report, r.fail(log, "plan", err)
	}
	report.Plan = plan
	for _, t := range plan.Tickets(sla.BucketSend) {
		log.Infow("overdue reminder planned", "ticket_id", t.ID, "subject", t.Subject, "responsible", t.Responsible)
	}
	for _, b := range sla.Buckets() {
		if ts := plan.Tickets(b); b != sla.BucketSend && len(ts) > 0 {
			ids := make([]uint, 0, len(ts))
			for _, t := range ts {
				ids = append(ids, t.ID)
			}
			log.Infow("reminders skipped", "bucket", b.String(), "ticket_ids", ids)
		}
	}

	report.Finished = r.now().UTC()
	log.Infow("sync-all finished", "duration", report.Finished.Sub(report.Started).String())
	return report, nil
}

func (r *Runner) fail(log logger.Interface, step string, err error) error {
	log.Errorw("step failed", "step", step, "error", err)
	return err
}
