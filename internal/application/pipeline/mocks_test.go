package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/slatrack/slatrack/internal/application/excelsync"
	"github.com/slatrack/slatrack/internal/application/ingest"
	"github.com/slatrack/slatrack/internal/application/sla"
	"github.com/slatrack/slatrack/internal/shared/logger"
)

type mockSyncer struct {
	ExecuteFunc func(ctx context.Context) (*excelsync.SyncResult, error)
	calls       int
}

func (m *mockSyncer) Execute(ctx context.Context) (*excelsync.SyncResult, error) {
	m.calls++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx)
	}
	return &excelsync.SyncResult{}, nil
}

type mockIngester struct {
	ExecuteFunc func(ctx context.Context, cmd ingest.Command) (*ingest.Result, error)
	commands    []ingest.Command
}

func (m *mockIngester) Execute(ctx context.Context, cmd ingest.Command) (*ingest.Result, error) {
	m.commands = append(m.commands, cmd)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, cmd)
	}
	return &ingest.Result{}, nil
}

type mockRecalculator struct {
	ExecuteFunc func(ctx context.Context) (*sla.RecalcResult, error)
	calls       int
}

func (m *mockRecalculator) Execute(ctx context.Context) (*sla.RecalcResult, error) {
	m.calls++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx)
	}
	return &sla.RecalcResult{}, nil
}

type mockExporter struct {
	ExecuteFunc func(ctx context.Context, cmd excelsync.ExportCommand) (*excelsync.ExportResult, error)
	commands    []excelsync.ExportCommand
}

func (m *mockExporter) Execute(ctx context.Context, cmd excelsync.ExportCommand) (*excelsync.ExportResult, error) {
	m.commands = append(m.commands, cmd)
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, cmd)
	}
	return &excelsync.ExportResult{Path: "tickets.xlsx"}, nil
}

type mockPlanner struct {
	ExecuteFunc func(ctx context.Context, now time.Time) (*sla.Plan, error)
	calls       int
}

func (m *mockPlanner) Execute(ctx context.Context, now time.Time) (*sla.Plan, error) {
	m.calls++
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, now)
	}
	return &sla.Plan{GeneratedAt: now}, nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []logger.Record
}

func (s *recordingSink) Emit(_ context.Context, r logger.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
}

func (s *recordingSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r.Message)
	}
	return out
}

func (s *recordingSink) steps(message string) []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []any
	for _, r := range s.records {
		if r.Message == message {
			out = append(out, r.Attr("step"))
		}
	}
	return out
}
