package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"WORKER_URL", "SIGNAL_EMAIL", "SIGNAL_PASSWORD", "VIN_PREFIXES", "VIN_COLUMN",
	"SHEETS_EXPORT_URL", "SHEETS_API_KEY", "SHEETS_RANGE", "NTFY_ENABLED", "NTFY_URL",
	"NTFY_TOPIC", "NTFY_PRIORITY", "SERVER_ADDR", "EXPORT_PREFIX",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.WorkerURL)
	assert.Equal(t, "1,2,3,4,5", cfg.VINPrefixes)
	assert.Equal(t, "vin", cfg.VINColumn)
	assert.Equal(t, "https://docs.google.com", cfg.SheetsExportURL)
	assert.Equal(t, ":8080", cfg.ServerAddr)
	assert.Equal(t, "vin_appraisal", cfg.ExportPrefix)
	assert.False(t, cfg.NtfyEnabled)
	assert.False(t, cfg.HasCredentials())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WORKER_URL", "http://worker.internal:9000")
	t.Setenv("SIGNAL_EMAIL", "dealer@example.com")
	t.Setenv("SIGNAL_PASSWORD", "secret")
	t.Setenv("VIN_PREFIXES", "1,2")
	t.Setenv("NTFY_ENABLED", "true")
	t.Setenv("NTFY_TOPIC", "lot-42")
	t.Setenv("NTFY_PRIORITY", "high")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://worker.internal:9000", cfg.WorkerURL)
	assert.Equal(t, "1,2", cfg.VINPrefixes)
	assert.True(t, cfg.NtfyEnabled)
	assert.Equal(t, "lot-42", cfg.NtfyTopic)
	assert.True(t, cfg.HasCredentials())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"worker url", "WORKER_URL", "not a url", "WorkerURL"},
		{"export host", "SHEETS_EXPORT_URL", "docs", "SheetsExportURL"},
		{"priority", "NTFY_PRIORITY", "loud", "NtfyPriority"},
		{"export prefix with separator", "EXPORT_PREFIX", "out/run", "ExportPrefix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestDefaultResilienceConfig(t *testing.T) {
	assert.Greater(t, DefaultResilienceConfig.StopSignal.MaxRetries, 0)
	assert.NotZero(t, DefaultResilienceConfig.StopSignal.Timeout)
	assert.NotZero(t, DefaultResilienceConfig.Notify.Timeout)
	assert.Equal(t, "stop signal", DefaultResilienceConfig.StopSignal.Name)
}
