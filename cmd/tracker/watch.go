package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/scheduler"
)

func newWatchCmd(a *app) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the alert on the configured cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := a.alertJob(false)
			if err != nil {
				return err
			}
			loc, err := time.LoadLocation(a.cfg.Schedule.Timezone)
			if err != nil {
				return fmt.Errorf("schedule.timezone: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sched := scheduler.NewScheduler(ctx, job, loc, a.log)
			if err := sched.RegisterAll(a.cfg.Schedule.AlertCron); err != nil {
				return err
			}
			sched.Start()
			defer sched.Stop()

			if runNow {
				go sched.RunAlertNow()
			}

			a.log.Info("tracker is running, press Ctrl+C to stop",
				zap.String("cron", a.cfg.Schedule.AlertCron),
				zap.String("timezone", loc.String()))
			<-ctx.Done()
			a.log.Info("shutdown signal received, stopping")
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "also run the alert once at start")
	return cmd
}
