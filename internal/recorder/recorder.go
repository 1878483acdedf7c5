package recorder

import (
	"time"

	"github.com/google/uuid"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// Run describes one CLI or scheduled invocation.
type Run struct {
	ID         string
	Command    string
	StartedAt  time.Time
	FinishedAt time.Time
	Symbols    int
	Failed     int
}

// NewRun starts a run with a fresh id.
func NewRun(command string) *Run {
	return &Run{ID: uuid.NewString(), Command: command, StartedAt: time.Now()}
}

// SymbolOutcome is the result of one symbol within a run.
type SymbolOutcome struct {
	RunID    string
	Symbol   string
	Reason   string // empty on success
	Error    string
	Duration time.Duration
}

// Evaluation is one alert decision within a run.
type Evaluation struct {
	RunID string
	State *model.AlertState
}

// Recorder persists run history for later inspection.
type Recorder interface {
	RecordRun(run *Run) error
	RecordOutcome(o *SymbolOutcome) error
	RecordEvaluation(e *Evaluation) error
	Close() error
}

// RecordBatch stores the per-symbol outcomes of s and closes the run.
func RecordBatch(r Recorder, run *Run, s *batch.Summary) error {
	run.FinishedAt = time.Now()
	run.Symbols = len(s.Outcomes)
	run.Failed = len(s.Failed())
	for _, o := range s.Outcomes {
		so := &SymbolOutcome{RunID: run.ID, Symbol: o.Symbol, Reason: o.Reason, Duration: o.Duration}
		if o.Err != nil {
			so.Error = o.Err.Error()
		}
		if err := r.RecordOutcome(so); err != nil {
			return err
		}
	}
	return r.RecordRun(run)
}

func unix(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}
