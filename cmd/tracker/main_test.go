package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/config"
)

func execute(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(config), 0o644))

	a := &app{}
	root := newRootCmd(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append([]string{"--config", path, "--style", "notty"}, args...))
	err := root.Execute()
	a.close()
	return out.String(), err
}

func TestAnalyze_DaysOutOfRange(t *testing.T) {
	_, err := execute(t, "tickers: [AAPL]\nlookback_days: 180\n", "analyze", "--days", "1")
	assert.ErrorContains(t, err, "--days must be between 2 and 180")
}

func TestAlert_RequiresThreshold(t *testing.T) {
	_, err := execute(t, "tickers: [AAPL]\n", "alert", "--dry-run")
	assert.ErrorContains(t, err, "threshold_pct")
}

func TestFetch_BadDate(t *testing.T) {
	_, err := execute(t, "tickers: [AAPL]\n", "fetch", "--to", "2024-13-01")
	assert.ErrorContains(t, err, "--to")
}

func TestSymbols(t *testing.T) {
	a := &app{cfg: &config.Config{Tickers: []string{"AAPL"}}}

	got, err := a.symbols(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, got)

	got, err = a.symbols([]string{"msft", " msft "})
	require.NoError(t, err)
	assert.Equal(t, []string{"MSFT"}, got)

	a.cfg.Tickers = nil
	_, err = a.symbols(nil)
	assert.Error(t, err)
}

func TestSearchDays(t *testing.T) {
	assert.GreaterOrEqual(t, searchDays(180), 180*7/5)
	assert.Equal(t, 16, searchDays(2))
}
