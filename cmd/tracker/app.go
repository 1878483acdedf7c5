package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/cache"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/calendar"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/config"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/logging"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/recorder"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/report"
)

// errAllFailed is returned when every symbol of a command failed. The
// per-symbol reasons have already been printed.
var errAllFailed = errors.New("all symbols failed")

// app holds the components shared by every command.
type app struct {
	configPath string
	style      string

	cfg      *config.Config
	log      *zap.Logger
	cal      *calendar.Market
	fetcher  collector.Fetcher
	cache    *cache.Cache
	recorder recorder.Recorder
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	a.cfg = cfg

	a.log, err = logging.New(logging.Options{
		Level:      cfg.Log.Level,
		FilePath:   cfg.Log.FilePath,
		MaxSize:    cfg.Log.MaxSize,
		MaxAge:     cfg.Log.MaxAge,
		MaxBackups: cfg.Log.MaxBackups,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		return err
	}
	zap.ReplaceGlobals(a.log)

	if cfg.DataSource.BaseURL != "" {
		a.fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.Provider.Timeout)
	} else {
		a.fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.Provider.Timeout)
	}
	a.log.Debug("data source", zap.String("provider", a.fetcher.Name()))

	a.cal = calendar.New()
	a.cache = cache.New(cache.NewStore(cfg.DataDir), a.cal, a.fetcher, cfg.Exchange, a.log)

	a.recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, a.log)
		if err != nil {
			a.log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			a.recorder = sr
		}
	}
	return nil
}

func (a *app) close() {
	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// symbols returns the normalised command arguments, or the configured
// tickers when none were given.
func (a *app) symbols(args []string) ([]string, error) {
	syms := config.NormalizeSymbols(args)
	if len(syms) == 0 {
		syms = a.cfg.Tickers
	}
	if len(syms) == 0 {
		return nil, errors.New("no symbols given and no tickers configured")
	}
	return syms, nil
}

// print renders markdown on stdout.
func (a *app) print(cmd *cobra.Command, markdown string) {
	out, err := report.Render(markdown, a.style, 100)
	if err != nil {
		out = markdown
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
}

// finish records the run and reports whether every symbol failed.
func (a *app) finish(run *recorder.Run, s *batch.Summary) error {
	if err := recorder.RecordBatch(a.recorder, run, s); err != nil {
		a.log.Error("record run", zap.Error(err))
	}
	if s.AllFailed() {
		return errAllFailed
	}
	return nil
}

// lastCompleted returns the most recent session that has closed.
func (a *app) lastCompleted() (time.Time, error) {
	return a.cal.LatestCompleted(a.cfg.Exchange, time.Now())
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "tracker",
		Short:         "Cache, analyse and alert on daily stock prices",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
	}

	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfig, "path to the YAML config file")
	root.PersistentFlags().StringVar(&a.style, "style", "auto", "markdown style: auto, dark, light, notty")

	root.AddCommand(
		newFetchCmd(a),
		newLiveCmd(a),
		newAnalyzeCmd(a),
		newAlertCmd(a),
		newWatchCmd(a),
	)
	return root
}
