package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24, cfg.Session.TTLHours)
	assert.Equal(t, 0.7, cfg.Triage.ConfidenceThreshold)
	assert.Equal(t, 5000.0, cfg.Triage.AutoApprovalLimit)
	assert.Equal(t, 1, cfg.Triage.DateToleranceDays)
	assert.Equal(t, 20.0, cfg.Triage.AmountTolerancePct)
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claimflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
port = 9999

[triage]
auto_approval_limit = 2500.0
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, 2500.0, cfg.Triage.AutoApprovalLimit)
	// Untouched keys keep their defaults.
	assert.Equal(t, 0.7, cfg.Triage.ConfidenceThreshold)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("CLAIMFLOW_SERVER__PORT", "7777")
	t.Setenv("CLAIMFLOW_REDIS__URL", "redis://cache:6379/1")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
}

func TestThresholdsConversion(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	th := cfg.Thresholds()
	assert.Equal(t, 0.7, th.ConfidenceThreshold)
	assert.True(t, th.AutoApprovalLimit.Equal(decimal.NewFromInt(5000)))
	assert.Equal(t, 1, th.DateToleranceDays)
}

func TestValidate(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))

	cfg.Server.Port = -1
	assert.Error(t, Validate(cfg))

	cfg, _ = LoadConfig("")
	cfg.Triage.ConfidenceThreshold = 1.5
	assert.Error(t, Validate(cfg))
}

func TestInitConfigRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "claimflow.toml")
	require.NoError(t, InitConfig(path))
	assert.Error(t, InitConfig(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.NoError(t, Validate(cfg))
}
