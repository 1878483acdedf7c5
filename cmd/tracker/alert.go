package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/alert"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/notifier"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/scheduler"
)

// alertJob wires the alert job from the configuration. A dry run logs the
// message instead of sending it.
func (a *app) alertJob(dryRun bool) (*scheduler.AlertJob, error) {
	if err := a.cfg.ValidateAlert(dryRun); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	cfg := a.cfg

	var sender notifier.Sender
	if dryRun {
		sender = &notifier.LogSender{Log: a.log}
	} else {
		var senders notifier.Multi
		if cfg.Email != "" {
			senders = append(senders, notifier.NewEmailNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From))
		}
		if cfg.Telegram.BotToken != "" {
			senders = append(senders, notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy))
		}
		sender = senders
	}

	return &scheduler.AlertJob{
		Evaluator:    alert.NewEvaluator(a.cache, a.fetcher, a.cal, cfg.LookbackDays, cfg.Workers, a.log),
		Sender:       sender,
		Recorder:     a.recorder,
		Tickers:      cfg.Tickers,
		ThresholdPct: cfg.ThresholdPct,
		Recipient:    cfg.Email,
		MaxRetries:   cfg.SMTP.MaxRetries,
		Log:          a.log,
	}, nil
}

func newAlertCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "alert",
		Short: "Evaluate the configured tickers once and send the daily alert",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			job, err := a.alertJob(dryRun)
			if err != nil {
				return err
			}
			d, err := job.Run(cmd.Context(), "alert")
			if d != nil {
				a.print(cmd, "# "+notifier.Subject(d)+"\n\n```\n"+notifier.FormatDaily(d)+"\n```\n")
			}
			if err != nil {
				return err
			}
			if d.Summary != nil && d.Summary.AllFailed() {
				a.log.Error("no ticker could be evaluated", zap.Any("reasons", d.Summary.Reasons()))
				return errAllFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log the message instead of sending it")
	return cmd
}
