package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Catalog   CatalogConfig   `toml:"catalog"`
	Transport TransportConfig `toml:"transport"`
	Sources   SourcesConfig   `toml:"sources"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type LoggingConfig struct {
	Level      string   `toml:"level" validate:"oneof=debug info warn error"` // "debug", "info", "warn", "error"
	Output     []string `toml:"output" validate:"dive,oneof=stdout console file"`
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
	File       string   `toml:"file"`        // Log file path; empty = logs/findata.log next to the executable
}

type StorageConfig struct {
	DataDir string `toml:"data_dir" validate:"required"` // Root of the per-target artifact files
}

type CatalogConfig struct {
	Dir       string `toml:"dir" validate:"required"` // Directory of company and *.links.* files
	StartFrom string `toml:"start_from"`              // Skip companies whose CVM code sorts before this
}

// TransportConfig durations are Go duration strings (e.g. "30s")
type TransportConfig struct {
	Timeout           string  `toml:"timeout"`
	MaxAttempts       int     `toml:"max_attempts" validate:"gte=1"`
	InitialBackoff    string  `toml:"initial_backoff"`
	MaxBackoff        string  `toml:"max_backoff"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"` // 0 disables rate limiting
	Burst             int     `toml:"burst" validate:"gte=1"`
	UserAgent         string  `toml:"user_agent"`
}

type SourcesConfig struct {
	Legacy    LegacySourceConfig    `toml:"legacy"`
	Regulator RegulatorSourceConfig `toml:"regulator"`
}

type LegacySourceConfig struct {
	BaseURL string `toml:"base_url" validate:"required,url"`
}

type RegulatorSourceConfig struct {
	BaseURL           string `toml:"base_url" validate:"required,url"`
	BootstrapBaseURL  string `toml:"bootstrap_base_url" validate:"required,url"`
	BootstrapSequence int    `toml:"bootstrap_sequence" validate:"gt=0"` // Document sequence of the page-management URL
}

type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Schedule string `toml:"schedule"` // Cron schedule with seconds field
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			DataDir: "./data",
		},
		Catalog: CatalogConfig{
			Dir: "./catalog",
		},
		Transport: TransportConfig{
			Timeout:           "60s",
			MaxAttempts:       3,
			InitialBackoff:    "1s",
			MaxBackoff:        "30s",
			RequestsPerSecond: 2,
			Burst:             2,
			UserAgent:         "findata/1.0",
		},
		Sources: SourcesConfig{
			Legacy: LegacySourceConfig{
				BaseURL: "http://www2.bmfbovespa.com.br",
			},
			Regulator: RegulatorSourceConfig{
				BaseURL:           "https://www.rad.cvm.gov.br",
				BootstrapBaseURL:  "http://www.rad.cvm.gov.br",
				BootstrapSequence: 65179,
			},
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 0 3 * * *", // Daily at 03:00
		},
	}
}

// LoadFromFiles loads defaults, merges each file in order (later files override earlier files)
// and applies environment overrides
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

func applyEnvOverrides(config *Config) {
	// Logging configuration
	if level := os.Getenv("FINDATA_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("FINDATA_LOG_OUTPUT"); output != "" {
		config.Logging.Output = splitString(output, ",")
	}
	if file := os.Getenv("FINDATA_LOG_FILE"); file != "" {
		config.Logging.File = file
	}

	// Storage and catalog configuration
	if dataDir := os.Getenv("FINDATA_DATA_DIR"); dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	if catalogDir := os.Getenv("FINDATA_CATALOG_DIR"); catalogDir != "" {
		config.Catalog.Dir = catalogDir
	}
	if startFrom := os.Getenv("FINDATA_START_FROM"); startFrom != "" {
		config.Catalog.StartFrom = startFrom
	}

	// Transport configuration
	if timeout := os.Getenv("FINDATA_TRANSPORT_TIMEOUT"); timeout != "" {
		config.Transport.Timeout = timeout
	}
	if attempts := os.Getenv("FINDATA_TRANSPORT_MAX_ATTEMPTS"); attempts != "" {
		if a, err := strconv.Atoi(attempts); err == nil {
			config.Transport.MaxAttempts = a
		}
	}
	if rps := os.Getenv("FINDATA_TRANSPORT_REQUESTS_PER_SECOND"); rps != "" {
		if r, err := strconv.ParseFloat(rps, 64); err == nil {
			config.Transport.RequestsPerSecond = r
		}
	}
	if userAgent := os.Getenv("FINDATA_TRANSPORT_USER_AGENT"); userAgent != "" {
		config.Transport.UserAgent = userAgent
	}

	// Sources configuration
	if baseURL := os.Getenv("FINDATA_LEGACY_BASE_URL"); baseURL != "" {
		config.Sources.Legacy.BaseURL = baseURL
	}
	if baseURL := os.Getenv("FINDATA_REGULATOR_BASE_URL"); baseURL != "" {
		config.Sources.Regulator.BaseURL = baseURL
	}
	if baseURL := os.Getenv("FINDATA_REGULATOR_BOOTSTRAP_BASE_URL"); baseURL != "" {
		config.Sources.Regulator.BootstrapBaseURL = baseURL
	}

	// Scheduler configuration
	if enabled := os.Getenv("FINDATA_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("FINDATA_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}
}

// ApplyFlagOverrides applies command-line flags, which have the highest priority
func ApplyFlagOverrides(config *Config, dataDir, catalogDir, startFrom string) {
	if dataDir != "" {
		config.Storage.DataDir = dataDir
	}
	if catalogDir != "" {
		config.Catalog.Dir = catalogDir
	}
	if startFrom != "" {
		config.Catalog.StartFrom = startFrom
	}
}

// Validate checks struct constraints, duration strings and the schedule
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, value := range map[string]string{
		"transport.timeout":         c.Transport.Timeout,
		"transport.initial_backoff": c.Transport.InitialBackoff,
		"transport.max_backoff":     c.Transport.MaxBackoff,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid configuration: %s: %w", name, err)
		}
	}

	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid configuration: scheduler.schedule: %w", err)
		}
	}

	return nil
}

// TimeoutDuration returns the per-request timeout
func (t TransportConfig) TimeoutDuration() time.Duration {
	return parseDurationOr(t.Timeout, 60*time.Second)
}

// InitialBackoffDuration returns the first retry delay
func (t TransportConfig) InitialBackoffDuration() time.Duration {
	return parseDurationOr(t.InitialBackoff, time.Second)
}

// MaxBackoffDuration returns the retry delay cap
func (t TransportConfig) MaxBackoffDuration() time.Duration {
	return parseDurationOr(t.MaxBackoff, 30*time.Second)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidateSchedule validates a cron expression with a seconds field. Runs more often than every
// five minutes are rejected, since one run crawls the whole catalog.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	first := sched.Next(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	second := sched.Next(first)
	if second.Sub(first) < 5*time.Minute {
		return fmt.Errorf("schedule interval must be at least 5 minutes, got %s", second.Sub(first))
	}

	return nil
}

// splitString splits a string by separator and trims whitespace
func splitString(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
