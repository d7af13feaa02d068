package config

import (
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultOutputDir         = "."
	DefaultReportName        = "energy_audit_report.md"
	DefaultDelimiter         = ","
	DefaultBaselineColumn    = "consumption_before"
	DefaultNewColumn         = "consumption_after"
	DefaultMetricsFile       = "energy_audit.prom"
	DefaultHTTPPort          = 8080
	DefaultRunTTL            = 24 * time.Hour
	DefaultBroadcastInterval = 5 * time.Second
	DefaultMaxUploadBytes    = 10 << 20
)

// Config is the top-level configuration for both the CLI and the server.
type Config struct {
	Audit  AuditConfig  `yaml:"audit"`
	Server ServerConfig `yaml:"server"`
}

// AuditConfig holds the pipeline settings shared by every run.
type AuditConfig struct {
	// OutputDir is where the report (and metrics file) is written.
	OutputDir string `yaml:"output_dir"`

	// ReportName is the file name of the Markdown report inside OutputDir.
	ReportName string `yaml:"report_name"`

	// Delimiter is the single-character field separator of the input table.
	Delimiter string `yaml:"delimiter"`

	// Columns names the two consumption columns.
	Columns Columns `yaml:"columns"`

	// FailOnEmpty turns a normalized table with zero rows into a fatal
	// EMPTY_RESULT error instead of a zero-valued report.
	FailOnEmpty bool `yaml:"fail_on_empty"`

	// Metrics configures the Prometheus textfile written next to the report.
	Metrics MetricsConfig `yaml:"metrics"`

	// Findings holds threshold rules evaluated against every run.
	Findings FindingsConfig `yaml:"findings"`
}

// Columns names the baseline and new consumption columns of the input.
type Columns struct {
	Baseline string `yaml:"baseline"`
	New      string `yaml:"new"`
}

// Comma returns the delimiter as a rune for encoding/csv. An empty
// delimiter means ','.
func (a AuditConfig) Comma() rune {
	if a.Delimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(a.Delimiter)
	return r
}

// MetricsConfig configures the optional textfile exposition.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// FindingsConfig holds finding rules and webhook delivery targets.
type FindingsConfig struct {
	Rules    []FindingRule   `yaml:"rules"`
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// FindingRule defines one threshold check against a run summary.
type FindingRule struct {
	// Name is the human-readable rule identifier, used as the deduplication key.
	Name string `yaml:"name"`

	// Condition is a simple expression: "savings_pct < 5", "rows_dropped > 0".
	Condition string `yaml:"condition"`

	// Severity is one of: critical | warning | info.
	Severity string `yaml:"severity"`

	// Cooldown suppresses re-fires for the same input in server watch mode.
	// Defaults to 15 minutes if zero.
	Cooldown time.Duration `yaml:"cooldown"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: teams | slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// ServerConfig holds the settings of energy-audit-server.
type ServerConfig struct {
	// HTTPPort is the port the REST API and WebSocket hub listen on.
	HTTPPort int `yaml:"http_port"`

	// Inputs are CSV files watched for changes; each write re-runs the audit.
	Inputs []string `yaml:"inputs"`

	// RunTTL is how long a finished run stays queryable.
	RunTTL time.Duration `yaml:"run_ttl"`

	// BroadcastInterval controls how often the runs snapshot is pushed to
	// WebSocket clients.
	BroadcastInterval time.Duration `yaml:"broadcast_interval"`

	// UIDir optionally serves static files at "/".
	UIDir string `yaml:"ui_dir"`

	// MaxUploadBytes caps the CSV body accepted by POST /api/v1/runs.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Auth configures how REST clients authenticate.
	Auth AuthConfig `yaml:"auth"`

	// Archive is an optional SQLite file that keeps runs and their reports
	// across restarts. Empty disables the archive.
	Archive string `yaml:"archive"`
}

// AuthConfig controls client authentication on the REST API.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// KeyEnv is the name of the environment variable that holds the expected
	// API key. Used when Mode == "apikey".
	KeyEnv string `yaml:"key_env"`

	// Header is the HTTP header to read the key from.
	// Defaults to "X-API-Key" if empty.
	Header string `yaml:"header"`
}

// Key returns the API key resolved from the environment.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns the configured header name, or "X-API-Key".
func (a AuthConfig) EffectiveHeader() string {
	if a.Header != "" {
		return a.Header
	}
	return "X-API-Key"
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config pre-populated with default values.
func Default() *Config {
	return &Config{
		Audit: AuditConfig{
			OutputDir:  DefaultOutputDir,
			ReportName: DefaultReportName,
			Delimiter:  DefaultDelimiter,
			Columns: Columns{
				Baseline: DefaultBaselineColumn,
				New:      DefaultNewColumn,
			},
			Metrics: MetricsConfig{
				File: DefaultMetricsFile,
			},
		},
		Server: ServerConfig{
			HTTPPort:          DefaultHTTPPort,
			RunTTL:            DefaultRunTTL,
			BroadcastInterval: DefaultBroadcastInterval,
			MaxUploadBytes:    DefaultMaxUploadBytes,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	a := cfg.Audit
	if a.ReportName == "" {
		return fmt.Errorf("audit.report_name is required")
	}
	if utf8.RuneCountInString(a.Delimiter) != 1 {
		return fmt.Errorf("audit.delimiter %q must be a single character", a.Delimiter)
	}
	switch a.Comma() {
	case '"', '\r', '\n', utf8.RuneError:
		return fmt.Errorf("audit.delimiter %q is not usable", a.Delimiter)
	}
	if a.Columns.Baseline == "" || a.Columns.New == "" {
		return fmt.Errorf("audit.columns.baseline and audit.columns.new are required")
	}
	if a.Columns.Baseline == a.Columns.New {
		return fmt.Errorf("audit.columns: baseline and new must differ (both %q)", a.Columns.New)
	}
	if a.Metrics.Enabled && a.Metrics.File == "" {
		return fmt.Errorf("audit.metrics.file is required when metrics are enabled")
	}
	for i, r := range a.Findings.Rules {
		if r.Name == "" {
			return fmt.Errorf("findings.rules[%d]: name is required", i)
		}
		if r.Condition == "" {
			return fmt.Errorf("findings.rules[%d] %q: condition is required", i, r.Name)
		}
		switch r.Severity {
		case "critical", "warning", "info", "":
		default:
			return fmt.Errorf("findings.rules[%d] %q: unknown severity %q", i, r.Name, r.Severity)
		}
	}
	for i, w := range a.Findings.Webhooks {
		switch w.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("findings.webhooks[%d]: unknown type %q", i, w.Type)
		}
	}

	s := cfg.Server
	if s.HTTPPort <= 0 || s.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", s.HTTPPort)
	}
	if s.RunTTL < 0 {
		return fmt.Errorf("server.run_ttl must not be negative")
	}
	if s.BroadcastInterval <= 0 {
		return fmt.Errorf("server.broadcast_interval must be positive")
	}
	if s.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive")
	}
	switch s.Auth.Mode {
	case "apikey", "none", "":
	default:
		return fmt.Errorf("server.auth.mode %q unknown: want apikey|none", s.Auth.Mode)
	}
	return nil
}
