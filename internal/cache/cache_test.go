package cache

import (
	"context"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/calendar"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

var d = model.MustDate

type fixture struct {
	cal     *calendar.Market
	fetcher *collector.MockFetcher
	store   *Store
	cache   *Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cal:     calendar.New(),
		fetcher: collector.NewMockFetcher(),
		store:   NewStore(t.TempDir()),
	}
	f.cache = New(f.store, f.cal, f.fetcher, "NYSE", zap.NewNop())
	return f
}

// serve makes the provider hold one bar per NYSE session in [from, to].
func (f *fixture) serve(t *testing.T, symbol, from, to string) {
	t.Helper()
	days, err := f.cal.TradingSessions("NYSE", d(from), d(to))
	require.NoError(t, err)
	f.fetcher.Bars[symbol] = collector.GenerateBars(100, days)
}

// seed persists one bar per NYSE session in [from, to] without the provider.
func (f *fixture) seed(t *testing.T, symbol, from, to string) {
	t.Helper()
	days, err := f.cal.TradingSessions("NYSE", d(from), d(to))
	require.NoError(t, err)
	require.NoError(t, f.store.Save(symbol, collector.GenerateBars(50, days)))
}

func (f *fixture) file(t *testing.T, symbol string) []byte {
	t.Helper()
	b, err := os.ReadFile(f.store.Path(symbol))
	require.NoError(t, err)
	return b
}

// assertNoGaps checks every session within the coverage has a bar.
func assertNoGaps(t *testing.T, cal calendar.Calendar, ds *model.Dataset) {
	t.Helper()
	if ds.Coverage.Empty() {
		return
	}
	sessions, err := cal.TradingSessions("NYSE", ds.Coverage.Earliest, ds.Coverage.Latest)
	require.NoError(t, err)
	have := dates(ds.Bars)
	for _, s := range sessions {
		assert.True(t, have[s], "missing session %s", s.Format(model.DateFormat))
	}
	for i := 1; i < len(ds.Bars); i++ {
		assert.True(t, ds.Bars[i-1].Date.Before(ds.Bars[i].Date), "bars not strictly increasing")
	}
}

func TestEnsureRange_EmptyDataset(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "AAPL", "2024-01-02", "2024-01-05")

	ds, err := f.cache.EnsureRange(context.Background(), "AAPL", d("2024-01-02"), d("2024-01-05"))
	require.NoError(t, err)
	assert.Len(t, ds.Bars, 4)
	assert.Equal(t, model.Coverage{Earliest: d("2024-01-02"), Latest: d("2024-01-05")}, ds.Coverage)
	assert.Equal(t, 1, f.fetcher.CallCount())

	reloaded, err := f.cache.Load("AAPL")
	require.NoError(t, err)
	assert.Equal(t, ds.Bars, reloaded.Bars)
	assert.Equal(t, ds.Coverage, reloaded.Coverage)
}

func TestEnsureRange_AlreadyCovered(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "MSFT", "2024-01-02", "2024-01-10")
	before := f.file(t, "MSFT")

	ds, err := f.cache.EnsureRange(context.Background(), "MSFT", d("2024-01-05"), d("2024-01-08"))
	require.NoError(t, err)
	assert.Zero(t, f.fetcher.CallCount())
	assert.Len(t, ds.Bars, 7)
	assert.Equal(t, before, f.file(t, "MSFT"))
}

func TestEnsureRange_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "AAPL", "2023-12-01", "2024-02-01")
	ctx := context.Background()

	_, err := f.cache.EnsureRange(ctx, "AAPL", d("2024-01-02"), d("2024-01-31"))
	require.NoError(t, err)
	first := f.file(t, "AAPL")

	ds, err := f.cache.EnsureRange(ctx, "AAPL", d("2024-01-02"), d("2024-01-31"))
	require.NoError(t, err)
	assert.Equal(t, first, f.file(t, "AAPL"))
	assert.Equal(t, 1, f.fetcher.CallCount())
	assertNoGaps(t, f.cal, ds)
}

func TestEnsureRange_Delisted(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "GONE", "2024-01-02", "2024-01-03")

	ds, err := f.cache.EnsureRange(context.Background(), "GONE", d("2024-01-02"), d("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, ds.Bars, 2)
	assert.Equal(t, model.Coverage{Earliest: d("2024-01-02"), Latest: d("2024-01-03")}, ds.Coverage)

	// Re-running asks for the tail again but changes nothing.
	before := f.file(t, "GONE")
	_, err = f.cache.EnsureRange(context.Background(), "GONE", d("2024-01-02"), d("2024-01-05"))
	require.NoError(t, err)
	assert.Equal(t, before, f.file(t, "GONE"))
}

func TestEnsureRange_LeadingAndTrailing(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "IBM", "2024-01-08", "2024-01-10")
	f.serve(t, "IBM", "2023-12-01", "2024-02-01")

	ds, err := f.cache.EnsureRange(context.Background(), "IBM", d("2024-01-02"), d("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, f.fetcher.Calls, 2)
	assert.Equal(t, d("2024-01-02"), f.fetcher.Calls[0].Start)
	assert.Equal(t, d("2024-01-05"), f.fetcher.Calls[0].End)
	assert.Equal(t, d("2024-01-11"), f.fetcher.Calls[1].Start)
	assert.Equal(t, d("2024-01-12"), f.fetcher.Calls[1].End)
	assert.Equal(t, model.Coverage{Earliest: d("2024-01-02"), Latest: d("2024-01-12")}, ds.Coverage)
	assertNoGaps(t, f.cal, ds)

	// Seeded bars were priced at 50 and must survive.
	for _, b := range ds.Between(d("2024-01-08"), d("2024-01-10")) {
		assert.Less(t, b.Close, 60.0)
	}
}

func TestEnsureRange_DisjointRequestBridgesGap(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "KO", "2024-01-02", "2024-01-03")
	f.serve(t, "KO", "2024-01-01", "2024-01-31")

	ds, err := f.cache.EnsureRange(context.Background(), "KO", d("2024-01-10"), d("2024-01-12"))
	require.NoError(t, err)
	require.Len(t, f.fetcher.Calls, 1)
	assert.Equal(t, d("2024-01-04"), f.fetcher.Calls[0].Start)
	assert.Equal(t, model.Coverage{Earliest: d("2024-01-02"), Latest: d("2024-01-12")}, ds.Coverage)
	assertNoGaps(t, f.cal, ds)
}

func TestEnsureRange_AtomicOnFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "IBM", "2024-01-08", "2024-01-10")
	f.serve(t, "IBM", "2023-12-01", "2024-02-01")
	f.fetcher.FailAfter = 1
	before := f.file(t, "IBM")

	_, err := f.cache.EnsureRange(context.Background(), "IBM", d("2024-01-02"), d("2024-01-12"))
	require.Error(t, err)
	assert.ErrorIs(t, err, collector.ErrProviderUnavailable)

	var pu *ProviderUnavailableError
	require.True(t, errors.As(err, &pu))
	assert.Equal(t, "IBM", pu.Symbol)
	assert.Equal(t, d("2024-01-11"), pu.Start)
	assert.Equal(t, d("2024-01-12"), pu.End)

	assert.Equal(t, before, f.file(t, "IBM"))
}

func TestEnsureRange_InvalidRange(t *testing.T) {
	f := newFixture(t)
	_, err := f.cache.EnsureRange(context.Background(), "AAPL", d("2024-01-05"), d("2024-01-02"))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestEnsureRange_WeekendOnly(t *testing.T) {
	f := newFixture(t)
	ds, err := f.cache.EnsureRange(context.Background(), "AAPL", d("2024-01-06"), d("2024-01-07"))
	require.NoError(t, err)
	assert.Empty(t, ds.Bars)
	assert.True(t, ds.Coverage.Empty())
	assert.Zero(t, f.fetcher.CallCount())
	_, err = os.Stat(f.store.Path("AAPL"))
	assert.True(t, os.IsNotExist(err))
}

func TestEnsureRange_MalformedBars(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "AAPL", "2024-01-02", "2024-01-05")
	f.fetcher.Bars["AAPL"][3].Close = math.NaN()

	ds, err := f.cache.EnsureRange(context.Background(), "AAPL", d("2024-01-02"), d("2024-01-05"))
	require.NoError(t, err)
	assert.Len(t, ds.Bars, 3)
	assert.Equal(t, d("2024-01-04"), ds.Coverage.Latest)
}

func TestEnsureRange_AllMalformed(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "AAPL", "2024-01-02", "2024-01-05")
	for i := range f.fetcher.Bars["AAPL"] {
		f.fetcher.Bars["AAPL"][i].Low = -1
	}

	_, err := f.cache.EnsureRange(context.Background(), "AAPL", d("2024-01-02"), d("2024-01-05"))
	assert.ErrorIs(t, err, ErrPartialData)
	_, statErr := os.Stat(f.store.Path("AAPL"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestEnsureRange_UnknownSymbol(t *testing.T) {
	f := newFixture(t)
	f.fetcher.HistoryErr["ZZZZ"] = collector.ErrUnknownSymbol

	_, err := f.cache.EnsureRange(context.Background(), "ZZZZ", d("2024-01-02"), d("2024-01-05"))
	assert.ErrorIs(t, err, collector.ErrUnknownSymbol)
	assert.NotErrorIs(t, err, collector.ErrProviderUnavailable)
}

func TestEnsureRange_ConcurrentSameSymbol(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "AAPL", "2024-01-01", "2024-03-01")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			end := d("2024-01-31").AddDate(0, 0, i)
			_, err := f.cache.EnsureRange(context.Background(), "AAPL", d("2024-01-02"), end)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	ds, err := f.cache.Load("AAPL")
	require.NoError(t, err)
	assertNoGaps(t, f.cal, ds)
	assert.Equal(t, d("2024-01-02"), ds.Coverage.Earliest)
}

func TestEnsureLastSessions(t *testing.T) {
	f := newFixture(t)
	f.serve(t, "AAPL", "2023-12-01", "2024-01-31")

	bars, err := f.cache.EnsureLastSessions(context.Background(), "AAPL", 3, d("2024-01-10"), 180)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, d("2024-01-08"), bars[0].Date)
	assert.Equal(t, d("2024-01-10"), bars[2].Date)
}

func TestMerge_FirstWriteWins(t *testing.T) {
	existing := []model.Bar{{Date: d("2024-01-03"), Close: 1}, {Date: d("2024-01-04"), Close: 1}}
	incoming := []model.Bar{{Date: d("2024-01-04"), Close: 2}, {Date: d("2024-01-02"), Close: 2}}

	got := Merge(existing, incoming)
	require.Len(t, got, 3)
	assert.Equal(t, d("2024-01-02"), got[0].Date)
	assert.Equal(t, 1.0, got[2].Close)
}

func TestMissingRanges(t *testing.T) {
	sessions := []time.Time{d("2024-01-02"), d("2024-01-03"), d("2024-01-04"), d("2024-01-05"), d("2024-01-08")}
	present := map[time.Time]bool{d("2024-01-03"): true, d("2024-01-04"): true}

	got := missingRanges(sessions, present)
	require.Len(t, got, 2)
	assert.Equal(t, model.Coverage{Earliest: d("2024-01-02"), Latest: d("2024-01-02")}, got[0])
	assert.Equal(t, model.Coverage{Earliest: d("2024-01-05"), Latest: d("2024-01-08")}, got[1])
}
