package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`

	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Backtest  BacktestConfig  `koanf:"backtest"`
	Live      LiveConfig      `koanf:"live"`
}

type LoggingConfig struct {
	Level string `koanf:"level" validate:"oneof=debug info warn error"`

	File FileLogConfig `koanf:"file"`
}

// FileLogConfig enables size-rotated file logging in addition to stdout.
type FileLogConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

type TelemetryConfig struct {
	Enabled       bool          `koanf:"enabled"`
	OTLPEndpoint  string        `koanf:"otlp_endpoint"`
	SamplingRate  float64       `koanf:"sampling_rate" validate:"gte=0,lte=1"`
	ExportTimeout time.Duration `koanf:"export_timeout"`
	BatchTimeout  time.Duration `koanf:"batch_timeout"`
}

type BacktestConfig struct {
	Runs []RunConfig `koanf:"runs" validate:"dive"`
}

// RunConfig defines one backtest run: the simulated span, byte-capped
// streaming batch size (zero means a single full-load pass), venues to
// install on the engine, and timer fixtures to pre-register on the clock.
type RunConfig struct {
	ID             string        `koanf:"id"`
	Start          time.Time     `koanf:"start" validate:"required"`
	Stop           time.Time     `koanf:"stop" validate:"required"`
	BatchSizeBytes int           `koanf:"batch_size_bytes" validate:"gte=0"`
	Venues         []VenueConfig `koanf:"venues" validate:"dive"`
	Timers         []TimerConfig `koanf:"timers" validate:"dive"`
}

type VenueConfig struct {
	Name             string   `koanf:"name" validate:"required"`
	OMSType          string   `koanf:"oms_type" validate:"omitempty,oneof=NETTING HEDGING"`
	AccountType      string   `koanf:"account_type" validate:"omitempty,oneof=CASH MARGIN"`
	BaseCurrency     string   `koanf:"base_currency" validate:"omitempty,len=3"`
	StartingBalances []string `koanf:"starting_balances" validate:"min=1,dive,required"`
}

// TimerConfig pre-registers an alert or timer on the run's clock. An alert
// names a single firing instant; a timer carries an interval schedule.
type TimerConfig struct {
	Label     string        `koanf:"label" validate:"required"`
	Type      string        `koanf:"type" validate:"oneof=alert timer"`
	AlertTime time.Time     `koanf:"alert_time"`
	Interval  time.Duration `koanf:"interval"`
	Start     time.Time     `koanf:"start"`
	Stop      time.Time     `koanf:"stop"`
	Repeating bool          `koanf:"repeating"`
}

type LiveConfig struct {
	MetricsAddr string          `koanf:"metrics_addr" validate:"required"`
	Sessions    []SessionConfig `koanf:"sessions" validate:"dive"`
	Throttle    ThrottleConfig  `koanf:"throttle"`
}

// SessionConfig schedules recurring session activations from a cron
// expression (standard 5-field format).
type SessionConfig struct {
	Name string `koanf:"name" validate:"required"`
	Cron string `koanf:"cron" validate:"required"`
}

type ThrottleConfig struct {
	Limit    int           `koanf:"limit" validate:"gt=0"`
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	defaults := &Config{
		Version:     "dev",
		Environment: "development",
		Logging: LoggingConfig{
			Level: "info",
			File: FileLogConfig{
				Path:       "logs/tradesim.log",
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 28,
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			OTLPEndpoint:  "localhost:4317",
			SamplingRate:  1.0,
			ExportTimeout: 30 * time.Second,
			BatchTimeout:  5 * time.Second,
		},
		Live: LiveConfig{
			MetricsAddr: ":9100",
			Throttle: ThrottleConfig{
				Limit:    100,
				Interval: time.Second,
			},
		},
	}

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	// Config file is optional unless a path was given explicitly.
	if path == "" {
		path = "configs/config.yaml"
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	// Override with environment variables
	if err := k.Load(env.Provider("TSK_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TSK_")), "_", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Assign run IDs the config omitted before validation runs.
	for i := range cfg.Backtest.Runs {
		if cfg.Backtest.Runs[i].ID == "" {
			cfg.Backtest.Runs[i].ID = uuid.NewString()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct tags plus the cross-field constraints the tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for _, run := range c.Backtest.Runs {
		if !run.Stop.After(run.Start) {
			return fmt.Errorf("run %s: stop %s must be after start %s",
				run.ID, run.Stop.Format(time.RFC3339), run.Start.Format(time.RFC3339))
		}
		for _, timer := range run.Timers {
			if err := timer.check(run.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t TimerConfig) check(runID string) error {
	switch t.Type {
	case "alert":
		if t.AlertTime.IsZero() {
			return fmt.Errorf("run %s: alert %q requires alert_time", runID, t.Label)
		}
	case "timer":
		if t.Start.IsZero() {
			return fmt.Errorf("run %s: timer %q requires start", runID, t.Label)
		}
		if t.Repeating && t.Stop.IsZero() {
			return fmt.Errorf("run %s: repeating timer %q requires stop", runID, t.Label)
		}
	}
	return nil
}
