package main

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/recorder"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/report"
)

func newFetchCmd(a *app) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "fetch [SYMBOL...]",
		Short: "Bring the cached daily history of each symbol up to date",
		Long: "Fetch only the sessions missing from the local dataset of each symbol.\n" +
			"Without --to the range ends at the last completed session; without --from\n" +
			"it starts lookback_days calendar days earlier.",
		RunE: func(cmd *cobra.Command, args []string) error {
			symbols, err := a.symbols(args)
			if err != nil {
				return err
			}
			end, err := a.lastCompleted()
			if err != nil {
				return err
			}
			if to != "" {
				if end, err = model.ParseDate(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}
			start := end.AddDate(0, 0, -a.cfg.LookbackDays)
			if from != "" {
				if start, err = model.ParseDate(from); err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}

			run := recorder.NewRun("fetch")
			var mu sync.Mutex
			coverage := make(map[string]model.Coverage)
			s := batch.Run(cmd.Context(), symbols, a.cfg.Workers, func(ctx context.Context, sym string) error {
				ds, err := a.cache.EnsureRange(ctx, sym, start, end)
				if err != nil {
					return err
				}
				mu.Lock()
				coverage[sym] = ds.Coverage
				mu.Unlock()
				return nil
			}, batch.WithLogger(a.log))

			md := report.Run(fmt.Sprintf("Fetch %s to %s", start.Format(model.DateFormat), end.Format(model.DateFormat)), s)
			if len(coverage) > 0 {
				md += "\n| Symbol | Coverage |\n|---|---|\n"
				keys := make([]string, 0, len(coverage))
				for k := range coverage {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					md += fmt.Sprintf("| %s | %s |\n", k, coverage[k])
				}
			}
			a.print(cmd, md)
			return a.finish(run, s)
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	return cmd
}
