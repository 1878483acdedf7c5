package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/calculator"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/recorder"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/report"
)

// searchDays is a calendar span certain to hold n sessions.
func searchDays(n int) int { return n*7/5 + 14 }

func newAnalyzeCmd(a *app) *cobra.Command {
	var (
		days   int
		span   time.Duration
		invest float64
	)
	cmd := &cobra.Command{
		Use:   "analyze [SYMBOL...]",
		Short: "Summarise the last N trading sessions of each symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 2 || days > a.cfg.LookbackDays {
				return fmt.Errorf("--days must be between 2 and %d", a.cfg.LookbackDays)
			}
			symbols, err := a.symbols(args)
			if err != nil {
				return err
			}
			end, err := a.lastCompleted()
			if err != nil {
				return err
			}
			window := calculator.Sessions(days)
			if span > 0 {
				window = calculator.Duration(span).On(a.cal, a.cfg.Exchange)
			}

			run := recorder.NewRun("analyze")
			var mu sync.Mutex
			sections := make(map[string]string, len(symbols))
			s := batch.Run(cmd.Context(), symbols, a.cfg.Workers, func(ctx context.Context, sym string) error {
				bars, err := a.cache.EnsureLastSessions(ctx, sym, days, end, searchDays(days))
				if err != nil {
					return err
				}
				if len(bars) < days {
					return fmt.Errorf("%w: %s has %d of %d sessions", calculator.ErrInsufficientData, sym, len(bars), days)
				}
				summary, err := calculator.Summarize(sym, bars, invest)
				if err != nil {
					return err
				}
				if span > 0 {
					if _, err := a.cache.EnsureRange(ctx, sym, end.Add(-span), end); err != nil {
						return err
					}
				}
				ds, err := a.cache.Load(sym)
				if err != nil {
					return err
				}
				metrics, err := calculator.Analyze(ds, window)
				if err != nil {
					return err
				}
				mu.Lock()
				sections[sym] = report.Summary(summary) + "\n" + report.Metrics(metrics, window.String())
				mu.Unlock()
				return nil
			}, batch.WithLogger(a.log))

			var b strings.Builder
			for _, o := range s.Outcomes {
				if o.OK() {
					b.WriteString(sections[o.Symbol])
					b.WriteString("\n")
				}
			}
			if len(s.Failed()) > 0 {
				b.WriteString(report.Run("Failures", s))
			}
			a.print(cmd, b.String())
			return a.finish(run, s)
		},
	}
	cmd.Flags().IntVarP(&days, "days", "n", 30, "number of trading sessions to summarise")
	cmd.Flags().DurationVar(&span, "span", 0, "rolling metrics over a calendar duration (e.g. 720h) instead of --days sessions")
	cmd.Flags().Float64Var(&invest, "invest", 0, "show the growth of a hypothetical investment of this amount")
	return cmd
}
