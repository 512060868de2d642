package config

import (
	"path/filepath"
	"strconv"
	"strings"
)

type AppConfig struct {
	Timezone string `mapstructure:"timezone" yaml:"timezone" validate:"required"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format     string `mapstructure:"format" yaml:"format" validate:"oneof=console json"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
}

type DatabaseConfig struct {
	Path              string `mapstructure:"path" yaml:"path" validate:"required"`
	WALMode           bool   `mapstructure:"wal_mode" yaml:"wal_mode"`
	BusyTimeoutMS     int    `mapstructure:"busy_timeout_ms" yaml:"busy_timeout_ms" validate:"min=0"`
	MigrationStrategy string `mapstructure:"migration_strategy" yaml:"migration_strategy" validate:"oneof=schema goose"`
}

// DSN builds the sqlite connection string with pragmas applied per connection.
func (d *DatabaseConfig) DSN() string {
	if d.Path == ":memory:" {
		return "file::memory:?cache=shared&_foreign_keys=1"
	}
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(filepath.ToSlash(d.Path))
	b.WriteString("?_foreign_keys=1")
	if d.BusyTimeoutMS > 0 {
		b.WriteString("&_busy_timeout=")
		b.WriteString(strconv.Itoa(d.BusyTimeoutMS))
	}
	return b.String()
}

type PathsConfig struct {
	Excel        string `mapstructure:"excel" yaml:"excel" validate:"required"`
	LogDir       string `mapstructure:"log_dir" yaml:"log_dir"`
	BackupDir    string `mapstructure:"backup_dir" yaml:"backup_dir"`
	Answers      string `mapstructure:"answers" yaml:"answers"`
	TemplatesDir string `mapstructure:"templates_dir" yaml:"templates_dir"`
}

type MailboxConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver" validate:"oneof=maildir memory"`
	InboxDir     string `mapstructure:"inbox_dir" yaml:"inbox_dir"`
	SentDir      string `mapstructure:"sent_dir" yaml:"sent_dir"`
	OutboxDir    string `mapstructure:"outbox_dir" yaml:"outbox_dir"`
	SMTPHost     string `mapstructure:"smtp_host" yaml:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port" yaml:"smtp_port" validate:"min=0,max=65535"`
	SMTPUser     string `mapstructure:"smtp_user" yaml:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password" yaml:"-"`
	FromAddress  string `mapstructure:"from_address" yaml:"from_address"`
	Retries      int    `mapstructure:"retries" yaml:"retries" validate:"min=0,max=10"`
}

type IngestConfig struct {
	Days              int    `mapstructure:"days" yaml:"days" validate:"min=1"`
	LookbackDaysOpen  int    `mapstructure:"lookback_days_open" yaml:"lookback_days_open" validate:"min=1"`
	SenderFilterMode  string `mapstructure:"sender_filter_mode" yaml:"sender_filter_mode" validate:"oneof=off contains equals domain"`
	SenderFilterValue string `mapstructure:"sender_filter_value" yaml:"sender_filter_value"`
}

type ThresholdConfig struct {
	FirstResponseHours float64 `mapstructure:"first_response_hours" yaml:"first_response_hours" validate:"gt=0"`
	ResolutionHours    float64 `mapstructure:"resolution_hours" yaml:"resolution_hours" validate:"gt=0"`
}

type SLAConfig struct {
	OverdueDays        int                        `mapstructure:"overdue_days" yaml:"overdue_days" validate:"min=1"`
	BusinessHoursStart int                        `mapstructure:"business_hours_start" yaml:"business_hours_start" validate:"min=0,max=23"`
	BusinessHoursEnd   int                        `mapstructure:"business_hours_end" yaml:"business_hours_end" validate:"min=1,max=24,gtfield=BusinessHoursStart"`
	Holidays           []string                   `mapstructure:"holidays" yaml:"holidays" validate:"dive,datetime=2006-01-02"`
	ByPriority         map[string]ThresholdConfig `mapstructure:"by_priority" yaml:"by_priority" validate:"dive,keys,oneof=p1 p2 p3 p4,endkeys"`
}

type NotifyConfig struct {
	SafeMode              bool                `mapstructure:"safe_mode" yaml:"safe_mode"`
	AllowSend             bool                `mapstructure:"allow_send" yaml:"allow_send"`
	QuietHoursStart       int                 `mapstructure:"quiet_hours_start" yaml:"quiet_hours_start" validate:"min=0,max=23"`
	QuietHoursEnd         int                 `mapstructure:"quiet_hours_end" yaml:"quiet_hours_end" validate:"min=0,max=23"`
	ReminderIntervalHours int                 `mapstructure:"reminder_interval_hours" yaml:"reminder_interval_hours" validate:"min=0"`
	SendAllowDomains      []string            `mapstructure:"send_allow_domains" yaml:"send_allow_domains"`
	SendAllowlist         []string            `mapstructure:"send_allowlist" yaml:"send_allowlist"`
	TestAllowlist         []string            `mapstructure:"test_allowlist" yaml:"test_allowlist"`
	EscalationMatrix      map[string][]string `mapstructure:"escalation_matrix" yaml:"escalation_matrix"`
	DocsURL               string              `mapstructure:"docs_url" yaml:"docs_url"`
	SharepointURL         string              `mapstructure:"sharepoint_url" yaml:"sharepoint_url"`
	ConfirmResponses      bool                `mapstructure:"confirm_responses" yaml:"confirm_responses"`
}

type CustomerConfig struct {
	InternalDomains []string `mapstructure:"internal_domains" yaml:"internal_domains"`
}

type ExcelConfig struct {
	Password       string `mapstructure:"password" yaml:"-"`
	LockTimeoutSec int    `mapstructure:"lock_timeout_sec" yaml:"lock_timeout_sec" validate:"min=0"`
}

type StatusConfig struct {
	Catalog []string          `mapstructure:"catalog" yaml:"catalog" validate:"min=1"`
	Hints   map[string]string `mapstructure:"hints" yaml:"hints"`
}

type RecommendConfig struct {
	Enabled        bool    `mapstructure:"enabled" yaml:"enabled"`
	SimilarityDays int     `mapstructure:"similarity_days" yaml:"similarity_days" validate:"min=1"`
	Threshold      float64 `mapstructure:"threshold" yaml:"threshold" validate:"gte=0,lte=1"`
	MaxSuggestions int     `mapstructure:"max_suggestions" yaml:"max_suggestions" validate:"min=1"`
}

type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes" yaml:"interval_minutes" validate:"min=1"`
}
