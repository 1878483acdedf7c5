package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db  *sql.DB
	mu  sync.Mutex
	log *zap.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *zap.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db, log: logger.Named("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info("sqlite recorder opened", zap.String("path", dbPath))
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			command     TEXT NOT NULL,
			started_at  INTEGER NOT NULL,
			finished_at INTEGER,
			symbols     INTEGER,
			failed      INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,

		`CREATE TABLE IF NOT EXISTS symbol_outcomes (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			symbol      TEXT NOT NULL,
			reason      TEXT,
			error       TEXT,
			duration_ms INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_outcomes_run ON symbol_outcomes(run_id)`,

		`CREATE TABLE IF NOT EXISTS alert_evaluations (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          TEXT NOT NULL,
			symbol          TEXT NOT NULL,
			reference_price REAL,
			reference_date  TEXT,
			live_price      REAL,
			change_pct      REAL,
			threshold       REAL,
			fired           INTEGER,
			phase           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol ON alert_evaluations(symbol)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun inserts or updates run.
func (r *SQLiteRecorder) RecordRun(run *Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.Unix()
	}
	_, err := r.db.Exec(`INSERT INTO runs (id, command, started_at, finished_at, symbols, failed)
		VALUES (?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			symbols     = excluded.symbols,
			failed      = excluded.failed`,
		run.ID, run.Command, run.StartedAt.Unix(), finished, run.Symbols, run.Failed,
	)
	return err
}

func (r *SQLiteRecorder) RecordOutcome(o *SymbolOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO symbol_outcomes
		(run_id, symbol, reason, error, duration_ms)
		VALUES (?,?,?,?,?)`,
		o.RunID, o.Symbol, o.Reason, o.Error, o.Duration.Milliseconds(),
	)
	return err
}

func (r *SQLiteRecorder) RecordEvaluation(e *Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := e.State
	var refDate any
	if !st.ReferenceDate.IsZero() {
		refDate = st.ReferenceDate.Format(model.DateFormat)
	}
	_, err := r.db.Exec(`INSERT INTO alert_evaluations
		(run_id, symbol, reference_price, reference_date, live_price, change_pct, threshold, fired, phase)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.RunID, st.Symbol, st.ReferencePrice, refDate, st.LivePrice,
		st.PercentChange, st.Threshold, st.Fired, string(st.Phase),
	)
	return err
}

// LastRun returns the most recently started run of command, nil if none.
func (r *SQLiteRecorder) LastRun(command string) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRow(`SELECT id, started_at, COALESCE(finished_at, 0), COALESCE(symbols, 0), COALESCE(failed, 0)
		FROM runs WHERE command = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`, command)
	run := &Run{Command: command}
	var started, finished int64
	if err := row.Scan(&run.ID, &started, &finished, &run.Symbols, &run.Failed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	run.StartedAt = unix(started)
	run.FinishedAt = unix(finished)
	return run, nil
}

func (r *SQLiteRecorder) Close() error {
	r.log.Info("closing sqlite recorder")
	return r.db.Close()
}
