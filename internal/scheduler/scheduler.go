package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/alert"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/notifier"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/recorder"
)

// AlertJob evaluates the configured tickers, delivers the daily message and
// records the outcome.
type AlertJob struct {
	Evaluator    *alert.Evaluator
	Sender       notifier.Sender
	Recorder     recorder.Recorder
	Tickers      []string
	ThresholdPct float64
	Recipient    string
	MaxRetries   int
	Log          *zap.Logger
}

// Run performs one alert run. The message is sent whatever the market
// status; a failure to deliver it is returned after the run is recorded.
func (j *AlertJob) Run(ctx context.Context, command string) (*alert.Daily, error) {
	run := recorder.NewRun(command)
	log := j.Log.With(zap.String("run_id", run.ID))
	log.Info("running alert job", zap.Strings("tickers", j.Tickers), zap.Float64("threshold_pct", j.ThresholdPct))

	d, err := j.Evaluator.RunDaily(ctx, j.Tickers, j.ThresholdPct)
	if err != nil {
		return nil, fmt.Errorf("evaluate alerts: %w", err)
	}

	for _, st := range d.States {
		if err := j.Recorder.RecordEvaluation(&recorder.Evaluation{RunID: run.ID, State: st}); err != nil {
			log.Error("record evaluation", zap.String("symbol", st.Symbol), zap.Error(err))
		}
	}
	if d.Summary != nil {
		if err := recorder.RecordBatch(j.Recorder, run, d.Summary); err != nil {
			log.Error("record run", zap.Error(err))
		}
	} else {
		run.FinishedAt = time.Now()
		if err := j.Recorder.RecordRun(run); err != nil {
			log.Error("record run", zap.Error(err))
		}
	}

	msg := notifier.NewDailyMessage(d, j.Recipient)
	if err := notifier.SendWithRetry(ctx, j.Sender, msg, j.MaxRetries, log); err != nil {
		return d, fmt.Errorf("send notification: %w", err)
	}
	log.Info("alert job finished", zap.Stringer("market", d.Status), zap.Int("evaluated", len(d.States)))
	return d, nil
}

// Scheduler manages the cron tasks of watch mode.
type Scheduler struct {
	Cron *cron.Cron
	Job  *AlertJob
	Log  *zap.Logger
	Ctx  context.Context
}

// NewScheduler creates a Scheduler whose cron expressions are read in loc.
func NewScheduler(ctx context.Context, job *AlertJob, loc *time.Location, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Job:  job,
		Log:  logger.Named("scheduler"),
		Ctx:  ctx,
	}
}

// RegisterAll registers the alert task.
func (s *Scheduler) RegisterAll(alertCron string) error {
	if _, err := s.Cron.AddFunc(alertCron, s.alertTask); err != nil {
		return fmt.Errorf("register alert task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	for _, e := range s.Cron.Entries() {
		s.Log.Info("scheduler started", zap.Time("next_run", e.Next))
	}
}

// Stop stops the cron scheduler and waits for a running task to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunAlertNow executes the alert task immediately.
func (s *Scheduler) RunAlertNow() {
	s.alertTask()
}

func (s *Scheduler) alertTask() {
	if _, err := s.Job.Run(s.Ctx, "watch"); err != nil {
		s.Log.Error("alert task failed", zap.Error(err))
	}
}
