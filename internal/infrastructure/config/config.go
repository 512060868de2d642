package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	vo "github.com/slatrack/slatrack/internal/domain/ticket/valueobjects"
	sharedConfig "github.com/slatrack/slatrack/internal/shared/config"
	apperrors "github.com/slatrack/slatrack/internal/shared/errors"
)

const (
	envPrefix         = "SLATRACK"
	excelPasswordEnv  = "SLATRACK_EXCEL_PASSWORD"
	defaultConfigName = "config"
)

type Config struct {
	App       sharedConfig.AppConfig       `mapstructure:"app" yaml:"app"`
	Logger    sharedConfig.LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Database  sharedConfig.DatabaseConfig  `mapstructure:"database" yaml:"database"`
	Paths     sharedConfig.PathsConfig     `mapstructure:"paths" yaml:"paths"`
	Mailbox   sharedConfig.MailboxConfig   `mapstructure:"mailbox" yaml:"mailbox"`
	Ingest    sharedConfig.IngestConfig    `mapstructure:"ingest" yaml:"ingest"`
	SLA       sharedConfig.SLAConfig       `mapstructure:"sla" yaml:"sla"`
	Notify    sharedConfig.NotifyConfig    `mapstructure:"notify" yaml:"notify"`
	Customer  sharedConfig.CustomerConfig  `mapstructure:"customer" yaml:"customer"`
	Excel     sharedConfig.ExcelConfig     `mapstructure:"excel" yaml:"excel"`
	Status    sharedConfig.StatusConfig    `mapstructure:"status" yaml:"status"`
	Recommend sharedConfig.RecommendConfig `mapstructure:"recommend" yaml:"recommend"`
	Scheduler sharedConfig.SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configuration from the file at path (or the default search
// locations when path is empty), applies environment overrides and validates
// the result once. A missing default file is not an error; a missing
// explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".slatrack"))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, apperrors.NewConfigError("failed to read config file", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to unmarshal config", err)
	}

	if pw := os.Getenv(excelPasswordEnv); pw != "" {
		cfg.Excel.Password = pw
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Default returns the configuration with every default applied and no file read.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

var validate = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	val.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return val
}

// Validate checks struct tags plus the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewConfigError("invalid configuration", err)
	}
	for _, code := range c.Status.Catalog {
		if !vo.Status(code).IsValid() {
			return apperrors.NewConfigError("invalid configuration",
				fmt.Errorf("status.catalog: unknown status %q", code))
		}
	}
	return nil
}

// Thresholds converts sla.by_priority into the domain lookup table.
func (c *Config) Thresholds() vo.ThresholdTable {
	table := vo.ThresholdTable{
		ByPriority:  make(map[vo.Priority]vo.Thresholds, len(c.SLA.ByPriority)),
		OverdueDays: c.SLA.OverdueDays,
	}
	for key, th := range c.SLA.ByPriority {
		table.ByPriority[vo.Priority(strings.ToLower(key))] = vo.Thresholds{
			FirstResponseHours: th.FirstResponseHours,
			ResolutionHours:    th.ResolutionHours,
		}
	}
	return table
}

// Dump renders the effective configuration as YAML. Secrets are omitted by their yaml tags.
func (c *Config) Dump() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.String(), nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Europe/Moscow")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Database defaults
	v.SetDefault("database.path", "data/slatrack.sqlite3")
	v.SetDefault("database.wal_mode", true)
	v.SetDefault("database.busy_timeout_ms", 10000)
	v.SetDefault("database.migration_strategy", "schema")

	v.SetDefault("paths.excel", "data/tickets.xlsx")
	v.SetDefault("paths.log_dir", "data/logs")
	v.SetDefault("paths.backup_dir", "data/backups")
	v.SetDefault("paths.answers", "")
	v.SetDefault("paths.templates_dir", "configs/templates")

	// Mailbox defaults
	v.SetDefault("mailbox.driver", "maildir")
	v.SetDefault("mailbox.inbox_dir", "data/mail/inbox")
	v.SetDefault("mailbox.sent_dir", "data/mail/sent")
	v.SetDefault("mailbox.outbox_dir", "data/mail/outbox")
	v.SetDefault("mailbox.smtp_host", "localhost")
	v.SetDefault("mailbox.smtp_port", 25)
	v.SetDefault("mailbox.smtp_user", "")
	v.SetDefault("mailbox.smtp_password", "")
	v.SetDefault("mailbox.from_address", "sla@localhost")
	v.SetDefault("mailbox.retries", 2)

	v.SetDefault("ingest.days", 7)
	v.SetDefault("ingest.lookback_days_open", 35)
	v.SetDefault("ingest.sender_filter_mode", "off")
	v.SetDefault("ingest.sender_filter_value", "")

	// SLA defaults
	v.SetDefault("sla.overdue_days", 2)
	v.SetDefault("sla.business_hours_start", 10)
	v.SetDefault("sla.business_hours_end", 19)
	v.SetDefault("sla.holidays", []string{})
	byPriority := make(map[string]any, len(vo.DefaultThresholds))
	for p, th := range vo.DefaultThresholds {
		byPriority[p.String()] = map[string]any{
			"first_response_hours": th.FirstResponseHours,
			"resolution_hours":     th.ResolutionHours,
		}
	}
	v.SetDefault("sla.by_priority", byPriority)

	// Notify defaults
	v.SetDefault("notify.safe_mode", true)
	v.SetDefault("notify.allow_send", false)
	v.SetDefault("notify.quiet_hours_start", 22)
	v.SetDefault("notify.quiet_hours_end", 8)
	v.SetDefault("notify.reminder_interval_hours", 24)
	v.SetDefault("notify.send_allow_domains", []string{"ru.naos.com", "naos.com"})
	v.SetDefault("notify.send_allowlist", []string{})
	v.SetDefault("notify.test_allowlist", []string{})
	v.SetDefault("notify.escalation_matrix", map[string]any{"p1": []string{}, "p2": []string{}, "p3": []string{}, "p4": []string{}})
	v.SetDefault("notify.docs_url", "")
	v.SetDefault("notify.sharepoint_url", "")
	v.SetDefault("notify.confirm_responses", false)

	v.SetDefault("customer.internal_domains", []string{"ru.naos.com", "naos.com"})

	v.SetDefault("excel.password", "naos")
	v.SetDefault("excel.lock_timeout_sec", 5)

	// Status catalog defaults
	catalog := make([]string, 0, len(vo.AllStatuses))
	for _, s := range vo.AllStatuses {
		catalog = append(catalog, s.String())
	}
	v.SetDefault("status.catalog", catalog)
	v.SetDefault("status.hints", map[string]string{
		"new":              "Новое обращение, ещё не разобрали",
		"assigned":         "Назначено/переслано",
		"responded":        "Дан ответ",
		"resolved":         "Закрыто/решено",
		"waiting_customer": "Ждём клиента",
		"table":            "Требуются данные врача/таблица",
		"otip":             "OTIP поток",
		"overdue":          "Просрочка SLA",
		"not_interesting":  "Неинтересно/спам/не наш",
	})

	v.SetDefault("recommend.enabled", true)
	v.SetDefault("recommend.similarity_days", 30)
	v.SetDefault("recommend.threshold", 0.42)
	v.SetDefault("recommend.max_suggestions", 3)

	v.SetDefault("scheduler.interval_minutes", 30)
}
