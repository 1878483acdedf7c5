package main

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/recorder"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/report"
)

func newLiveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "live [SYMBOL...]",
		Short: "Show the current price of each symbol",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := a.symbols(args)
			if err != nil {
				return err
			}

			run := recorder.NewRun("live")
			var mu sync.Mutex
			prices := make(map[string]float64, len(symbols))
			s := batch.Run(cmd.Context(), symbols, a.cfg.Workers, func(ctx context.Context, sym string) error {
				p, err := a.fetcher.FetchLive(ctx, sym)
				if err != nil {
					return err
				}
				mu.Lock()
				prices[sym] = p
				mu.Unlock()
				return nil
			}, batch.WithLogger(a.log))

			var quotes []report.Quote
			for _, o := range s.Outcomes {
				if o.OK() {
					quotes = append(quotes, report.Quote{Symbol: o.Symbol, Price: prices[o.Symbol]})
				}
			}
			md := report.Quotes(quotes)
			if len(s.Failed()) > 0 {
				md += "\n" + report.Run("Failures", s)
			}
			a.print(cmd, md)
			return a.finish(run, s)
		},
	}
}
