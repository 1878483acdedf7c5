package collector

import (
	"context"
	"sync"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// HistoryCall records one FetchHistory invocation on a MockFetcher.
type HistoryCall struct {
	Symbol     string
	Start, End time.Time
}

// MockFetcher returns controllable fixed data for development and testing.
// Bars are served per symbol, clipped to the requested range.
type MockFetcher struct {
	mu sync.Mutex

	Bars       map[string][]model.Bar
	Prices     map[string]float64
	HistoryErr map[string]error // per-symbol error for FetchHistory
	LiveErr    map[string]error
	// FailAfter makes FetchHistory fail with ErrProviderUnavailable once this
	// many calls have succeeded. Zero disables it.
	FailAfter int

	Calls []HistoryCall
}

// NewMockFetcher creates an empty MockFetcher.
func NewMockFetcher() *MockFetcher {
	return &MockFetcher{
		Bars:       make(map[string][]model.Bar),
		Prices:     make(map[string]float64),
		HistoryErr: make(map[string]error),
		LiveErr:    make(map[string]error),
	}
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(_ context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailAfter > 0 && len(m.Calls) >= m.FailAfter {
		return nil, ErrProviderUnavailable
	}
	m.Calls = append(m.Calls, HistoryCall{Symbol: symbol, Start: start, End: end})
	if err := m.HistoryErr[symbol]; err != nil {
		return nil, err
	}
	var out []model.Bar
	for _, b := range m.Bars[symbol] {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (m *MockFetcher) FetchLive(_ context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.LiveErr[symbol]; err != nil {
		return 0, err
	}
	p, ok := m.Prices[symbol]
	if !ok {
		return 0, ErrUnknownSymbol
	}
	return p, nil
}

// CallCount returns the number of successful FetchHistory calls so far.
func (m *MockFetcher) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// GenerateBars builds one bar per day in days with a gently rising close,
// mirroring the shape of real daily data.
func GenerateBars(basePrice float64, days []time.Time) []model.Bar {
	bars := make([]model.Bar, len(days))
	for i, d := range days {
		p := basePrice * (1 + float64(i)*0.001)
		bars[i] = model.Bar{
			Date:   d,
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
