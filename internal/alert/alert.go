// Package alert decides, per ticker, whether today's move from the last
// cached close crosses a percentage threshold.
package alert

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/batch"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/cache"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/calendar"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// ErrNoReferencePrice is returned when no cached close exists to compare against.
var ErrNoReferencePrice = errors.New("no reference price")

// Sessions is the part of the trading calendar the evaluator needs.
type Sessions interface {
	LocalDate(exchange string, now time.Time) (time.Time, error)
	PreviousSession(exchange string, day time.Time) (time.Time, error)
	MarketStatus(exchange string, now time.Time) (calendar.Status, error)
}

// Evaluator runs alert evaluations against the dataset cache and live prices.
type Evaluator struct {
	cache        *cache.Cache
	fetcher      collector.Fetcher
	sessions     Sessions
	lookbackDays int
	workers      int
	log          *zap.Logger

	// Now returns the current time. Replaced in tests.
	Now func() time.Time
}

// NewEvaluator creates an Evaluator. The reference history is refreshed over
// lookbackDays calendar days; EvaluateAll runs at most workers symbols at once.
func NewEvaluator(c *cache.Cache, f collector.Fetcher, s Sessions, lookbackDays, workers int, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		cache:        c,
		fetcher:      f,
		sessions:     s,
		lookbackDays: lookbackDays,
		workers:      workers,
		log:          logger.Named("alert"),
		Now:          time.Now,
	}
}

// Evaluate compares the live price of symbol with the close of the last
// session before today. The returned state is non-nil even on error and
// then carries PhaseAborted.
func (e *Evaluator) Evaluate(ctx context.Context, symbol string, thresholdPct float64) (*model.AlertState, error) {
	st := &model.AlertState{Symbol: symbol, Threshold: thresholdPct, Phase: model.PhaseIdle}
	abort := func(err error) (*model.AlertState, error) {
		st.Phase = model.PhaseAborted
		return st, err
	}

	st.Phase = model.PhaseRefreshing
	exchange := e.cache.Exchange()
	today, err := e.sessions.LocalDate(exchange, e.Now())
	if err != nil {
		return abort(err)
	}
	end, err := e.sessions.PreviousSession(exchange, today)
	if err != nil {
		return abort(err)
	}
	start := end.AddDate(0, 0, -e.lookbackDays)
	ds, err := e.cache.EnsureRange(ctx, symbol, start, end)
	if err != nil {
		return abort(err)
	}
	ref := ds.Between(start, end)
	if len(ref) == 0 {
		return abort(fmt.Errorf("%w: %s has no close up to %s", ErrNoReferencePrice, symbol, end.Format(model.DateFormat)))
	}
	last := ref[len(ref)-1]
	st.ReferencePrice = last.Close
	st.ReferenceDate = last.Date

	st.Phase = model.PhasePricingLive
	live, err := e.fetcher.FetchLive(ctx, symbol)
	if err != nil {
		return abort(fmt.Errorf("live price %s: %w", symbol, err))
	}
	if live <= 0 || math.IsNaN(live) || math.IsInf(live, 0) {
		return abort(fmt.Errorf("live price %s: %w: got %v", symbol, collector.ErrProviderUnavailable, live))
	}
	st.LivePrice = live

	st.PercentChange, st.Fired = Decide(st.ReferencePrice, st.LivePrice, thresholdPct)
	st.Phase = model.PhaseDecided
	e.log.Info("alert evaluated",
		zap.String("symbol", symbol),
		zap.Float64("reference", st.ReferencePrice),
		zap.Float64("live", st.LivePrice),
		zap.Float64("change_pct", st.PercentChange),
		zap.Bool("fired", st.Fired))
	return st, nil
}

// Decide returns the percent change from ref to live and whether its
// magnitude reaches threshold. The comparison is exact in decimal, so a move
// equal to the threshold fires.
func Decide(ref, live, threshold float64) (changePct float64, fired bool) {
	r := decimal.NewFromFloat(ref)
	if r.IsZero() {
		return 0, false
	}
	pct := decimal.NewFromFloat(live).Sub(r).Div(r).Mul(decimal.NewFromInt(100))
	fired = pct.Abs().Cmp(decimal.NewFromFloat(threshold)) >= 0
	return pct.InexactFloat64(), fired
}

// EvaluateAll evaluates every symbol. States are returned in input order;
// failed symbols carry PhaseAborted and are reported in the summary.
func (e *Evaluator) EvaluateAll(ctx context.Context, symbols []string, thresholdPct float64) ([]*model.AlertState, *batch.Summary) {
	states := make(map[string]*model.AlertState, len(symbols))
	results := make(chan *model.AlertState, len(symbols))

	summary := batch.Run(ctx, symbols, e.workers, func(ctx context.Context, sym string) error {
		st, err := e.Evaluate(ctx, sym, thresholdPct)
		results <- st
		return err
	}, batch.WithClassifier(classify), batch.WithLogger(e.log))
	close(results)

	for st := range results {
		states[st.Symbol] = st
	}
	out := make([]*model.AlertState, 0, len(summary.Outcomes))
	for _, o := range summary.Outcomes {
		st, ok := states[o.Symbol]
		if !ok {
			st = &model.AlertState{Symbol: o.Symbol, Threshold: thresholdPct, Phase: model.PhaseAborted}
		}
		out = append(out, st)
	}
	return out, summary
}

func classify(err error) (string, bool) {
	if errors.Is(err, ErrNoReferencePrice) {
		return "no reference price", true
	}
	return "", false
}

// Daily is the outcome of one scheduled alert run.
type Daily struct {
	Date    time.Time
	Status  calendar.Status
	States  []*model.AlertState
	Summary *batch.Summary
}

// RunDaily evaluates symbols once the market has closed for the day. Before the
// close, or on a day without a session, only the market status is reported.
func (e *Evaluator) RunDaily(ctx context.Context, symbols []string, thresholdPct float64) (*Daily, error) {
	now := e.Now()
	exchange := e.cache.Exchange()
	status, err := e.sessions.MarketStatus(exchange, now)
	if err != nil {
		return nil, err
	}
	today, err := e.sessions.LocalDate(exchange, now)
	if err != nil {
		return nil, err
	}
	d := &Daily{Date: today, Status: status}
	if status != calendar.StatusAfterClose {
		e.log.Info("skipping evaluation", zap.Stringer("market", status))
		return d, nil
	}
	d.States, d.Summary = e.EvaluateAll(ctx, symbols, thresholdPct)
	return d, nil
}
