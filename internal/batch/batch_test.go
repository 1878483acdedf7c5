package batch

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/cache"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

func TestRun_IsolatesFailures(t *testing.T) {
	fn := func(_ context.Context, sym string) error {
		if sym == "BAD" {
			return fmt.Errorf("%s: %w", sym, collector.ErrUnknownSymbol)
		}
		return nil
	}

	s := Run(context.Background(), []string{"AAPL", "BAD", "MSFT"}, 2, fn)
	require.Len(t, s.Outcomes, 3)
	assert.Equal(t, "AAPL", s.Outcomes[0].Symbol)
	assert.True(t, s.Outcomes[0].OK())
	assert.Equal(t, "unknown symbol", s.Outcomes[1].Reason)
	assert.True(t, s.Outcomes[2].OK())
	assert.False(t, s.AllFailed())
	assert.Equal(t, map[string]int{"unknown symbol": 1}, s.Reasons())
}

func TestRun_AllFailed(t *testing.T) {
	fn := func(_ context.Context, sym string) error {
		return &cache.ProviderUnavailableError{Symbol: sym, Err: errors.New("connection refused")}
	}
	s := Run(context.Background(), []string{"A", "B"}, 4, fn)
	assert.True(t, s.AllFailed())
	assert.Equal(t, map[string]int{"provider unavailable": 2}, s.Reasons())

	empty := Run(context.Background(), nil, 4, fn)
	assert.False(t, empty.AllFailed())
}

func TestRun_BoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	fn := func(_ context.Context, _ string) error {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return nil
	}

	symbols := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	s := Run(context.Background(), symbols, 3, fn)
	assert.Len(t, s.Outcomes, len(symbols))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestRun_DeduplicatesSymbols(t *testing.T) {
	var calls int32
	s := Run(context.Background(), []string{"A", "A", "B"}, 2, func(context.Context, string) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	assert.Len(t, s.Outcomes, 2)
	assert.Equal(t, int32(2), calls)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := Run(ctx, []string{"A"}, 1, func(context.Context, string) error { return nil })
	assert.True(t, s.AllFailed())
	assert.Equal(t, "canceled", s.Outcomes[0].Reason)
}

func TestRun_CustomClassifier(t *testing.T) {
	errCustom := errors.New("custom")
	c := func(err error) (string, bool) {
		if errors.Is(err, errCustom) {
			return "custom reason", true
		}
		return "", false
	}
	s := Run(context.Background(), []string{"A", "B"}, 1, func(_ context.Context, sym string) error {
		if sym == "A" {
			return errCustom
		}
		return cache.ErrInvalidRange
	}, WithClassifier(c))
	assert.Equal(t, "custom reason", s.Outcomes[0].Reason)
	assert.Equal(t, "invalid range", s.Outcomes[1].Reason)
	assert.Equal(t, []string{"custom reason", "invalid range"}, s.SortedReasons())
}

func TestClassify(t *testing.T) {
	partial := &cache.PartialDataError{Symbol: "X", Start: model.MustDate("2024-01-02"), End: model.MustDate("2024-01-03")}
	assert.Equal(t, "partial data", Classify(partial))
	assert.Equal(t, "error", Classify(errors.New("boom")))
}
