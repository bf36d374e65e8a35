package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 6, cfg.Extranet.SkipRows)
	assert.Empty(t, cfg.Extranet.TempDir)
	assert.Equal(t, "CAT", cfg.Master.Sheet)
	assert.Equal(t, "CV", cfg.Registry.StatusValue)
	assert.InDelta(t, 15.0, cfg.Reconcile.WeightThresholdPct, 0.001)
	assert.Equal(t, []string{"Almendralejo", "Cariñena", "Requena"}, cfg.Reconcile.ExcludedZones)
	assert.Equal(t, ".", cfg.Output.Dir)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
extranet:
  skip_rows: 4
reconcile:
  weight_threshold_pct: 10
  excluded_zones:
    - Requena
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Extranet.SkipRows)
	assert.InDelta(t, 10.0, cfg.Reconcile.WeightThresholdPct, 0.001)
	assert.Equal(t, []string{"Requena"}, cfg.Reconcile.ExcludedZones)
	// Defaults still apply for unset values
	assert.Equal(t, "CV", cfg.Registry.StatusValue)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
registry:
  status_value: XX
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RECONCILE_REGISTRY_STATUS_VALUE", "CV")
	t.Setenv("RECONCILE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "CV", cfg.Registry.StatusValue)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RECONCILE_OUTPUT_DIR", "/tmp/reports")
	t.Setenv("RECONCILE_EXTRANET_SKIP_ROWS", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/reports", cfg.Output.Dir)
	assert.Equal(t, 3, cfg.Extranet.SkipRows)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Extranet.SkipRows = 6
	cfg.Master.Sheet = "CAT"
	cfg.Registry.StatusValue = "CV"
	cfg.Reconcile.WeightThresholdPct = 15
	return cfg
}

func TestValidate_AllModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"verify", "check", "match", "run"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidate_VerifyIgnoresRegistry(t *testing.T) {
	cfg := validDefaults()
	cfg.Registry.StatusValue = ""
	cfg.Master.Sheet = ""
	assert.NoError(t, cfg.Validate("verify"))
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Master.Sheet = ""
	cfg.Registry.StatusValue = ""
	cfg.Reconcile.WeightThresholdPct = -1

	err := cfg.Validate("check")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master.sheet is required")
	assert.Contains(t, err.Error(), "registry.status_value is required")
	assert.Contains(t, err.Error(), "weight_threshold_pct must be >= 0")
}

func TestValidate_NegativeSkipRows(t *testing.T) {
	cfg := validDefaults()
	cfg.Extranet.SkipRows = -1
	err := cfg.Validate("verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extranet.skip_rows must be >= 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
