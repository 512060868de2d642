package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Europe/Moscow", cfg.App.Timezone)
	assert.Equal(t, 10, cfg.SLA.BusinessHoursStart)
	assert.Equal(t, 19, cfg.SLA.BusinessHoursEnd)
	assert.True(t, cfg.Notify.SafeMode)
	assert.False(t, cfg.Notify.AllowSend)
	assert.Equal(t, "naos", cfg.Excel.Password)
	assert.InDelta(t, 0.42, cfg.Recommend.Threshold, 1e-9)
	assert.Len(t, cfg.Status.Catalog, len(vo.AllStatuses))
	assert.Equal(t, "Ждём клиента", cfg.Status.Hints["waiting_customer"])
	assert.Empty(t, cfg.Notify.TestAllowlist)
}

func TestDefault_Thresholds(t *testing.T) {
	table := Default().Thresholds()
	assert.Equal(t, vo.Thresholds{FirstResponseHours: 4, ResolutionHours: 24}, table.For(vo.PriorityP1))
	assert.Equal(t, vo.Thresholds{FirstResponseHours: 16, ResolutionHours: 48}, table.For(""))
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
sla:
  business_hours_start: 9
  business_hours_end: 18
  holidays: ["2024-05-09"]
notify:
  allow_send: true
  send_allowlist: [boss@example.com]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.SLA.BusinessHoursStart)
	assert.Equal(t, []string{"2024-05-09"}, cfg.SLA.Holidays)
	assert.True(t, cfg.Notify.AllowSend)
	assert.Equal(t, []string{"boss@example.com"}, cfg.Notify.SendAllowlist)
	assert.Equal(t, 2, cfg.SLA.OverdueDays, "untouched keys keep their defaults")
	assert.Same(t, cfg, Get())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SLATRACK_EXCEL_PASSWORD", "s3cret")
	t.Setenv("SLATRACK_INGEST_DAYS", "3")

	cfg, err := Load(writeConfig(t, "app:\n  timezone: UTC\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Excel.Password)
	assert.Equal(t, 3, cfg.Ingest.Days)
	assert.Equal(t, "UTC", cfg.App.Timezone)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"end before start", "sla:\n  business_hours_start: 18\n  business_hours_end: 9\n"},
		{"bad filter mode", "ingest:\n  sender_filter_mode: regex\n"},
		{"bad holiday", "sla:\n  holidays: [\"09.05.2024\"]\n"},
		{"bad strategy", "database:\n  migration_strategy: flyway\n"},
		{"unknown status in catalog", "status:\n  catalog: [new, bogus]\n"},
		{"threshold out of range", "recommend:\n  threshold: 1.5\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.True(t, apperrors.IsConfigError(err))
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err))
}

func TestDump_OmitsSecrets(t *testing.T) {
	cfg := Default()
	cfg.Excel.Password = "topsecret"
	cfg.Mailbox.SMTPPassword = "hunter2"

	out, err := cfg.Dump()
	require.NoError(t, err)
	assert.Contains(t, out, "timezone: Europe/Moscow")
	assert.NotContains(t, out, "topsecret")
	assert.NotContains(t, out, "hunter2")
}
