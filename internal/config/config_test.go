package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	path := writeConfig(t, `
tickers: [aapl, " msft ", AAPL]
threshold_pct: 2.5
email: me@example.com
provider:
  timeout: 10s
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, cfg.Tickers)
	assert.Equal(t, 2.5, cfg.ThresholdPct)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "NYSE", cfg.Exchange)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 180, cfg.LookbackDays)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "0 30 16 * * 1-5", cfg.Schedule.AlertCron)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Tickers)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "tickers: [AAPL]\nthreshold_pct: 1\n")
	t.Setenv("TRACKER_TICKERS", "tsla,nvda")
	t.Setenv("TRACKER_THRESHOLD", "7.5")
	t.Setenv("EMAIL_USER", "bot@example.com")
	t.Setenv("EMAIL_PASS", "app-password")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "NVDA"}, cfg.Tickers)
	assert.Equal(t, 7.5, cfg.ThresholdPct)
	assert.Equal(t, "bot@example.com", cfg.SMTP.Username)
	assert.Equal(t, "app-password", cfg.SMTP.Password)
}

func TestLoad_BadEnvNumber(t *testing.T) {
	t.Setenv("TRACKER_THRESHOLD", "five")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "TRACKER_THRESHOLD")
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "tickers: [unclosed\n"))
	assert.ErrorContains(t, err, "parse config")
}

func TestValidateAlert(t *testing.T) {
	t.Setenv("EMAIL_USER", "")
	t.Setenv("EMAIL_PASS", "")
	cfg, err := Load(writeConfig(t, "tickers: [AAPL]\nthreshold_pct: 5\nemail: me@example.com\n"))
	require.NoError(t, err)

	assert.NoError(t, cfg.ValidateAlert(true))
	assert.ErrorContains(t, cfg.ValidateAlert(false), "smtp credentials")

	cfg.SMTP.Username, cfg.SMTP.Password = "u", "p"
	assert.NoError(t, cfg.ValidateAlert(false))

	for _, th := range []float64{0, -1, 500.01} {
		cfg.ThresholdPct = th
		assert.Error(t, cfg.ValidateAlert(true), "threshold %v", th)
	}
	cfg.ThresholdPct = 500
	assert.NoError(t, cfg.ValidateAlert(true))

	cfg.Email = "not an address"
	assert.ErrorContains(t, cfg.ValidateAlert(false), "invalid")

	cfg.Tickers = nil
	assert.ErrorContains(t, cfg.ValidateAlert(true), "tickers")
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	cfg.DataSource.BaseURL = "http://localhost:8080"
	assert.ErrorContains(t, cfg.Validate(), "api_key")
}
