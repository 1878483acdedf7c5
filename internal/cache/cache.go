// Package cache keeps a gap-free on-disk daily history per ticker and extends
// it incrementally from a data provider.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/calendar"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// Cache owns the per-ticker datasets.
type Cache struct {
	store    *Store
	cal      calendar.Calendar
	fetcher  collector.Fetcher
	exchange string
	log      *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Cache. Sessions are taken from cal for the given exchange.
func New(store *Store, cal calendar.Calendar, fetcher collector.Fetcher, exchange string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:    store,
		cal:      cal,
		fetcher:  fetcher,
		exchange: exchange,
		log:      logger.Named("cache"),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Exchange returns the exchange whose calendar validates sessions.
func (c *Cache) Exchange() string { return c.exchange }

func (c *Cache) lock(symbol string) func() {
	c.mu.Lock()
	l, ok := c.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		c.locks[symbol] = l
	}
	c.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Load returns the persisted dataset of symbol without contacting the provider.
func (c *Cache) Load(symbol string) (*model.Dataset, error) {
	unlock := c.lock(symbol)
	defer unlock()
	return c.load(symbol)
}

func (c *Cache) load(symbol string) (*model.Dataset, error) {
	bars, err := c.store.Load(symbol)
	if err != nil {
		return nil, err
	}
	ds := &model.Dataset{Symbol: symbol, Bars: bars}
	if len(bars) == 0 {
		return ds, nil
	}
	sessions, err := c.cal.TradingSessions(c.exchange, bars[0].Date, bars[len(bars)-1].Date)
	if err != nil {
		return nil, err
	}
	ds.Coverage = coverage(sessions, dates(bars), bars[len(bars)-1].Date)
	return ds, nil
}

// EnsureRange guarantees that every trading session in [start, end] the
// provider has data for is present in the persisted dataset, fetching only
// what is missing. On error the file on disk is left untouched.
func (c *Cache) EnsureRange(ctx context.Context, symbol string, start, end time.Time) (*model.Dataset, error) {
	start, end = model.Day(start), model.Day(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s after %s", ErrInvalidRange,
			start.Format(model.DateFormat), end.Format(model.DateFormat))
	}

	unlock := c.lock(symbol)
	defer unlock()

	ds, err := c.load(symbol)
	if err != nil {
		return nil, err
	}

	requested, err := c.cal.TradingSessions(c.exchange, start, end)
	if err != nil {
		return nil, err
	}
	if len(requested) == 0 {
		return ds, nil
	}

	// The fetched span is widened to touch the existing coverage so the
	// dataset stays contiguous when the request lies entirely beyond it.
	lo, hi := start, end
	if len(ds.Bars) > 0 {
		if first := ds.Bars[0].Date; first.Before(lo) {
			lo = first
		}
		if last := ds.Bars[len(ds.Bars)-1].Date; last.After(hi) {
			hi = last
		}
	}
	sessions, err := c.cal.TradingSessions(c.exchange, lo, hi)
	if err != nil {
		return nil, err
	}
	present := dates(ds.Bars)
	gaps := missingRanges(sessions, present)
	if len(gaps) == 0 {
		return ds, nil
	}

	isSession := make(map[time.Time]bool, len(sessions))
	for _, s := range sessions {
		isSession[s] = true
	}

	fetched := make(map[time.Time]model.Bar)
	var latestFetched time.Time
	for _, g := range gaps {
		bars, err := c.fetch(ctx, symbol, g, isSession)
		if err != nil {
			return nil, err
		}
		for _, b := range bars {
			if present[b.Date] {
				continue // persisted bars are immutable
			}
			if _, dup := fetched[b.Date]; dup {
				continue
			}
			fetched[b.Date] = b
			if b.Date.After(latestFetched) {
				latestFetched = b.Date
			}
		}
	}
	if len(fetched) == 0 {
		c.log.Info("provider returned no new sessions", zap.String("symbol", symbol))
		return ds, nil
	}

	// Only the contiguous run anchored on the existing data (or, for a new
	// dataset, on the most recent fetched session) is accepted.
	anchor := latestFetched
	if last, ok := ds.Latest(); ok {
		anchor = last.Date
	}
	all := make(map[time.Time]bool, len(present)+len(fetched))
	for d := range present {
		all[d] = true
	}
	for d := range fetched {
		all[d] = true
	}
	run := runAround(sessions, all, anchor)
	if last, ok := ds.Latest(); ok && !run.Contains(last.Date) {
		run = model.Coverage{}
	}

	accepted := make([]model.Bar, 0, len(fetched))
	dropped := 0
	for d, b := range fetched {
		if run.Contains(d) {
			accepted = append(accepted, b)
		} else {
			dropped++
		}
	}
	if dropped > 0 {
		c.log.Warn("dropping bars beyond a hole in provider data",
			zap.String("symbol", symbol), zap.Int("dropped", dropped))
	}
	if len(accepted) == 0 {
		return ds, nil
	}

	merged := Merge(ds.Bars, accepted)
	if err := c.store.Save(symbol, merged); err != nil {
		return nil, err
	}
	c.log.Info("dataset extended",
		zap.String("symbol", symbol),
		zap.Int("added", len(merged)-len(ds.Bars)),
		zap.Stringer("coverage", run))

	return &model.Dataset{
		Symbol:   symbol,
		Bars:     merged,
		Coverage: coverage(sessions, dates(merged), run.Latest),
	}, nil
}

// fetch retrieves one missing range and discards malformed or misdated bars.
func (c *Cache) fetch(ctx context.Context, symbol string, g model.Coverage, isSession map[time.Time]bool) ([]model.Bar, error) {
	c.log.Debug("fetching missing range",
		zap.String("symbol", symbol),
		zap.String("provider", c.fetcher.Name()),
		zap.Stringer("range", g))

	bars, err := c.fetcher.FetchHistory(ctx, symbol, g.Earliest, g.Latest)
	if err != nil {
		if errors.Is(err, collector.ErrUnknownSymbol) {
			return nil, fmt.Errorf("%s: %w", symbol, err)
		}
		return nil, &ProviderUnavailableError{Symbol: symbol, Start: g.Earliest, End: g.Latest, Err: err}
	}

	valid := make([]model.Bar, 0, len(bars))
	malformed := 0
	for _, b := range bars {
		b.Date = model.Day(b.Date)
		switch {
		case !b.Valid():
			malformed++
			c.log.Warn("excluding malformed bar",
				zap.String("symbol", symbol),
				zap.Time("date", b.Date),
				zap.Float64("open", b.Open), zap.Float64("high", b.High),
				zap.Float64("low", b.Low), zap.Float64("close", b.Close),
				zap.Float64("volume", b.Volume))
		case !g.Contains(b.Date) || !isSession[b.Date]:
			c.log.Warn("excluding bar outside requested sessions",
				zap.String("symbol", symbol), zap.Time("date", b.Date))
		default:
			valid = append(valid, b)
		}
	}
	if malformed > 0 && len(valid) == 0 {
		return nil, &PartialDataError{Symbol: symbol, Start: g.Earliest, End: g.Latest, Rejected: malformed}
	}
	return valid, nil
}

// EnsureLastSessions makes sure the last n sessions up to and including end
// are cached and returns them. Sessions are searched for within lookbackDays
// calendar days before end; fewer than n bars are returned when the window
// or the provider holds less.
func (c *Cache) EnsureLastSessions(ctx context.Context, symbol string, n int, end time.Time, lookbackDays int) ([]model.Bar, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: session count %d", ErrInvalidRange, n)
	}
	end = model.Day(end)
	sessions, err := c.cal.TradingSessions(c.exchange, end.AddDate(0, 0, -lookbackDays), end)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	if len(sessions) > n {
		sessions = sessions[len(sessions)-n:]
	}
	ds, err := c.EnsureRange(ctx, symbol, sessions[0], end)
	if err != nil {
		return nil, err
	}
	return ds.Between(sessions[0], end), nil
}

// Merge combines existing and incoming bars sorted by date. A date already in
// existing is never overwritten.
func Merge(existing, incoming []model.Bar) []model.Bar {
	out := make([]model.Bar, 0, len(existing)+len(incoming))
	seen := make(map[time.Time]bool, len(existing)+len(incoming))
	for _, b := range existing {
		if !seen[b.Date] {
			seen[b.Date] = true
			out = append(out, b)
		}
	}
	for _, b := range incoming {
		if !seen[b.Date] {
			seen[b.Date] = true
			out = append(out, b)
		}
	}
	sortBars(out)
	return out
}

func dates(bars []model.Bar) map[time.Time]bool {
	m := make(map[time.Time]bool, len(bars))
	for _, b := range bars {
		m[b.Date] = true
	}
	return m
}

// missingRanges groups sessions absent from present into contiguous runs.
func missingRanges(sessions []time.Time, present map[time.Time]bool) []model.Coverage {
	var out []model.Coverage
	open := false
	for _, s := range sessions {
		if present[s] {
			open = false
			continue
		}
		if !open {
			out = append(out, model.Coverage{Earliest: s, Latest: s})
			open = true
			continue
		}
		out[len(out)-1].Latest = s
	}
	return out
}

// runAround returns the maximal run of consecutive sessions, all present,
// that contains anchor. It is empty when anchor is not present.
func runAround(sessions []time.Time, present map[time.Time]bool, anchor time.Time) model.Coverage {
	idx := -1
	for i, s := range sessions {
		if s.Equal(anchor) {
			idx = i
			break
		}
	}
	if idx < 0 || !present[anchor] {
		return model.Coverage{}
	}
	lo, hi := idx, idx
	for lo > 0 && present[sessions[lo-1]] {
		lo--
	}
	for hi < len(sessions)-1 && present[sessions[hi+1]] {
		hi++
	}
	return model.Coverage{Earliest: sessions[lo], Latest: sessions[hi]}
}

// coverage is the gap-free run around the latest bar.
func coverage(sessions []time.Time, present map[time.Time]bool, latest time.Time) model.Coverage {
	return runAround(sessions, present, latest)
}
