package collector

import (
	"context"
	"errors"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

var (
	// ErrProviderUnavailable covers network, timeout, HTTP and decoding failures.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrUnknownSymbol is returned when the provider reports the ticker does not exist.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Fetcher defines the interface for fetching market data.
//
// FetchHistory returns daily bars dated within [start, end]. The result may
// hold fewer sessions than the range spans, but never a date outside it.
type Fetcher interface {
	FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error)
	FetchLive(ctx context.Context, symbol string) (float64, error)
	Name() string
}

// clip drops bars dated outside [start, end].
func clip(bars []model.Bar, start, end time.Time) []model.Bar {
	out := bars[:0]
	for _, b := range bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}
