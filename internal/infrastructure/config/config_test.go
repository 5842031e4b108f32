package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, ":9100", cfg.Live.MetricsAddr)
	assert.Equal(t, 100, cfg.Live.Throttle.Limit)
	assert.Equal(t, time.Second, cfg.Live.Throttle.Interval)
	assert.Empty(t, cfg.Backtest.Runs)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := writeConfig(t, `
environment: production
logging:
  level: warn
backtest:
  runs:
    - id: eurusd-jan
      start: 2024-01-02T00:00:00Z
      stop: 2024-01-31T00:00:00Z
      batch_size_bytes: 1048576
      venues:
        - name: SIM
          oms_type: NETTING
          account_type: MARGIN
          base_currency: USD
          starting_balances: ["1_000_000 USD"]
      timers:
        - label: bar_close
          type: timer
          interval: 1m
          start: 2024-01-02T00:00:00Z
          stop: 2024-01-31T00:00:00Z
          repeating: true
live:
  sessions:
    - name: london
      cron: "0 8 * * 1-5"
  throttle:
    limit: 50
    interval: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "warn", cfg.Logging.Level)

	require.Len(t, cfg.Backtest.Runs, 1)
	run := cfg.Backtest.Runs[0]
	assert.Equal(t, "eurusd-jan", run.ID)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), run.Start)
	assert.Equal(t, 1<<20, run.BatchSizeBytes)
	require.Len(t, run.Timers, 1)
	assert.Equal(t, time.Minute, run.Timers[0].Interval)

	require.Len(t, cfg.Live.Sessions, 1)
	assert.Equal(t, "london", cfg.Live.Sessions[0].Name)
	assert.Equal(t, 50, cfg.Live.Throttle.Limit)
	assert.Equal(t, 500*time.Millisecond, cfg.Live.Throttle.Interval)
}

func TestLoad_RunIDAssignedWhenOmitted(t *testing.T) {
	path := writeConfig(t, `
backtest:
  runs:
    - start: 2024-01-02T00:00:00Z
      stop: 2024-01-03T00:00:00Z
      venues:
        - name: SIM
          starting_balances: ["100 USD"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Backtest.Runs, 1)
	assert.NotEmpty(t, cfg.Backtest.Runs[0].ID)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "environment: staging\nlogging:\n  level: debug\n")
	t.Setenv("TSK_LOGGING_LEVEL", "error")
	t.Setenv("TSK_ENVIRONMENT", "production")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "production", cfg.Environment)
}

func TestLoad_InvalidLoggingLevel(t *testing.T) {
	_, err := Load(writeConfig(t, "logging:\n  level: loud\n"))
	assert.Error(t, err)
}

func TestLoad_StopBeforeStart(t *testing.T) {
	path := writeConfig(t, `
backtest:
  runs:
    - id: backwards
      start: 2024-01-31T00:00:00Z
      stop: 2024-01-02T00:00:00Z
      venues:
        - name: SIM
          starting_balances: ["100 USD"]
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_TimerFixtureValidation(t *testing.T) {
	tests := []struct {
		name  string
		timer string
	}{
		{
			name: "alert without alert_time",
			timer: `
        - label: on_open
          type: alert
`,
		},
		{
			name: "timer without start",
			timer: `
        - label: bar_close
          type: timer
          interval: 1m
`,
		},
		{
			name: "repeating timer without stop",
			timer: `
        - label: bar_close
          type: timer
          interval: 1m
          start: 2024-01-02T00:00:00Z
          repeating: true
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, `
backtest:
  runs:
    - id: fixture
      start: 2024-01-02T00:00:00Z
      stop: 2024-01-03T00:00:00Z
      venues:
        - name: SIM
          starting_balances: ["100 USD"]
      timers:`+tt.timer)
			_, err := Load(path)
			assert.Error(t, err, tt.name)
		})
	}
}
