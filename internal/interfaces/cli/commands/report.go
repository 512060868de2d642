package commands

import (
	"github.com/slatrack/slatrack/internal/application/pipeline"
	"github.com/slatrack/slatrack/internal/application/sla"
)

// planEntry is one ticket of a printed plan.
type planEntry struct {
	ID          uint   `yaml:"id"`
	Subject     string `yaml:"subject"`
	Responsible string `yaml:"responsible,omitempty"`
	Priority    string `yaml:"priority,omitempty"`
}

// planSummary lists every bucket, in display order, with its tickets.
type planSummary struct {
	GeneratedAt string                 `yaml:"generated_at"`
	Total       int                    `yaml:"total"`
	Buckets     map[string][]planEntry `yaml:"buckets"`
}

func summarizePlan(p *sla.Plan) *planSummary {
	if p == nil {
		return nil
	}
	s := &planSummary{
		GeneratedAt: p.GeneratedAt.UTC().Format("2006-01-02 15:04:05Z"),
		Total:       p.Total(),
		Buckets:     make(map[string][]planEntry, len(sla.Buckets())),
	}
	for _, b := range sla.Buckets() {
		entries := make([]planEntry, 0, len(p.Tickets(b)))
		for _, t := range p.Tickets(b) {
			entries = append(entries, planEntry{
				ID:          t.ID,
				Subject:     t.Subject,
				Responsible: t.Responsible,
				Priority:    t.Priority.String(),
			})
		}
		s.Buckets[b.String()] = entries
	}
	return s
}

type reportSummary struct {
	RunID    string       `yaml:"run_id"`
	Started  string       `yaml:"started"`
	Finished string       `yaml:"finished,omitempty"`
	Sync     any          `yaml:"excel_to_db,omitempty"`
	Ingest   any          `yaml:"ingest,omitempty"`
	Recalc   any          `yaml:"recalc,omitempty"`
	Export   any          `yaml:"export,omitempty"`
	Plan     *planSummary `yaml:"plan,omitempty"`
}

func summarizeReport(r *pipeline.Report) *reportSummary {
	s := &reportSummary{
		RunID:   r.RunID,
		Started: r.Started.Format("2006-01-02 15:04:05Z"),
		Plan:    summarizePlan(r.Plan),
	}
	if !r.Finished.IsZero() {
		s.Finished = r.Finished.Format("2006-01-02 15:04:05Z")
	}
	if r.Sync != nil {
		s.Sync = r.Sync
	}
	if r.Ingest != nil {
		s.Ingest = r.Ingest
	}
	if r.Recalc != nil {
		s.Recalc = r.Recalc
	}
	if r.Export != nil {
		s.Export = r.Export
	}
	return s
}

func pipelineCommand(days int, dryRun bool) pipeline.Command {
	return pipeline.Command{Days: days, DryRun: dryRun}
}
