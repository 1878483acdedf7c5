// Package batch runs one operation per ticker symbol on a bounded worker pool
// and collects per-symbol outcomes. A failing symbol never blocks the others.
package batch

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/cache"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/calculator"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/calendar"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
)

// Func processes one symbol.
type Func func(ctx context.Context, symbol string) error

// Classifier maps an error to a short reason. ok is false when the error is
// not recognised.
type Classifier func(err error) (reason string, ok bool)

// Outcome is the result of one symbol.
type Outcome struct {
	Symbol   string
	Err      error
	Reason   string
	Duration time.Duration
}

// OK reports whether the symbol succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// Summary collects the outcomes of a run in input order.
type Summary struct {
	Outcomes []Outcome
}

// Failed returns the outcomes that carry an error.
func (s *Summary) Failed() []Outcome {
	var out []Outcome
	for _, o := range s.Outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}

// AllFailed reports whether every symbol failed. An empty run has not failed.
func (s *Summary) AllFailed() bool {
	return len(s.Outcomes) > 0 && len(s.Failed()) == len(s.Outcomes)
}

// Reasons counts failures by reason.
func (s *Summary) Reasons() map[string]int {
	m := make(map[string]int)
	for _, o := range s.Failed() {
		m[o.Reason]++
	}
	return m
}

type options struct {
	classifiers []Classifier
	log         *zap.Logger
}

// Option configures Run.
type Option func(*options)

// WithClassifier adds a classifier consulted before the built-in one.
func WithClassifier(c Classifier) Option {
	return func(o *options) { o.classifiers = append(o.classifiers, c) }
}

// WithLogger logs every failed symbol.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// Run calls fn for every symbol with at most workers calls in flight.
// Duplicate symbols are processed once. Cancelling ctx marks the symbols not
// yet started as failed.
func Run(ctx context.Context, symbols []string, workers int, fn Func, opts ...Option) *Summary {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if workers <= 0 {
		workers = 1
	}

	symbols = unique(symbols)
	outcomes := make([]Outcome, len(symbols))

	var g errgroup.Group
	g.SetLimit(workers)
	var mu sync.Mutex
	for i, sym := range symbols {
		i, sym := i, sym
		g.Go(func() error {
			began := time.Now()
			var err error
			if err = ctx.Err(); err == nil {
				err = fn(ctx, sym)
			}
			out := Outcome{Symbol: sym, Err: err, Duration: time.Since(began)}
			if err != nil {
				out.Reason = o.classify(err)
				o.log.Warn("symbol failed",
					zap.String("symbol", sym),
					zap.String("reason", out.Reason),
					zap.Error(err))
			}
			mu.Lock()
			outcomes[i] = out
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return &Summary{Outcomes: outcomes}
}

func (o *options) classify(err error) string {
	for _, c := range o.classifiers {
		if r, ok := c(err); ok {
			return r
		}
	}
	return Classify(err)
}

var reasons = []struct {
	target error
	reason string
}{
	{cache.ErrInvalidRange, "invalid range"},
	{collector.ErrUnknownSymbol, "unknown symbol"},
	{collector.ErrProviderUnavailable, "provider unavailable"},
	{cache.ErrPartialData, "partial data"},
	{cache.ErrCorruptDataset, "corrupt dataset"},
	{calculator.ErrInsufficientData, "insufficient data"},
	{calendar.ErrUnknownExchange, "unknown exchange"},
	{context.Canceled, "canceled"},
	{context.DeadlineExceeded, "timeout"},
}

// Classify returns the reason of a failure raised by the cache, provider,
// calendar or analysis layers. Unrecognised errors yield "error".
func Classify(err error) string {
	for _, r := range reasons {
		if errors.Is(err, r.target) {
			return r.reason
		}
	}
	return "error"
}

func unique(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// SortedReasons returns the reasons of s ordered by name, for stable output.
func (s *Summary) SortedReasons() []string {
	m := s.Reasons()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
