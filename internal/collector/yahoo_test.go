package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// Timestamps are 09:30 America/New_York (14:30 UTC) on 2024-01-02..05;
// the 01-04 entry is a null bar.
const chartJSON = `{"chart":{"result":[{"meta":{"regularMarketPrice":187.5,"gmtoffset":-18000},
"timestamp":[1704205800,1704292200,1704378600,1704465000],
"indicators":{"quote":[{"open":[187.1,184.2,null,181.9],"high":[188.4,185.8,null,182.7],
"low":[183.8,183.4,null,180.1],"close":[185.6,184.2,null,181.2],
"volume":[82488700,58414500,null,62303300]}]}}],"error":null}}`

const notFoundJSON = `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

func newYahooServer(t *testing.T, status int, body string) *YahooFetcher {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	f := NewYahooFetcher("", 5*time.Second)
	f.BaseURL = srv.URL + "/"
	return f
}

func TestYahooFetchHistory(t *testing.T) {
	f := newYahooServer(t, http.StatusOK, chartJSON)
	bars, err := f.FetchHistory(context.Background(), "AAPL", model.MustDate("2024-01-02"), model.MustDate("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, model.MustDate("2024-01-02"), bars[0].Date)
	assert.Equal(t, model.MustDate("2024-01-03"), bars[1].Date)
	assert.Equal(t, model.MustDate("2024-01-05"), bars[2].Date)
	assert.InDelta(t, 185.6, bars[0].Close, 1e-9)
	assert.InDelta(t, 62303300, bars[2].Volume, 1e-9)
}

func TestYahooFetchHistory_ClipsToRange(t *testing.T) {
	f := newYahooServer(t, http.StatusOK, chartJSON)
	bars, err := f.FetchHistory(context.Background(), "AAPL", model.MustDate("2024-01-03"), model.MustDate("2024-01-03"))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, model.MustDate("2024-01-03"), bars[0].Date)
}

func TestYahooUnknownSymbol(t *testing.T) {
	f := newYahooServer(t, http.StatusNotFound, notFoundJSON)
	_, err := f.FetchHistory(context.Background(), "NOPE", model.MustDate("2024-01-02"), model.MustDate("2024-01-05"))
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestYahooServerError(t *testing.T) {
	f := newYahooServer(t, http.StatusInternalServerError, "boom")
	_, err := f.FetchLive(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestYahooTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()
	f := NewYahooFetcher("", 20*time.Millisecond)
	f.BaseURL = srv.URL + "/"
	_, err := f.FetchLive(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestYahooFetchLive(t *testing.T) {
	f := newYahooServer(t, http.StatusOK, chartJSON)
	p, err := f.FetchLive(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.InDelta(t, 187.5, p, 1e-9)
}

func TestRESTFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/bars/daily":
			_, _ = w.Write([]byte(`[{"date":"2024-01-03","open":2,"high":3,"low":1,"close":2.5,"volume":10},
				{"date":"2024-01-02","open":1,"high":2,"low":0.5,"close":1.5,"volume":5},
				{"date":"2024-01-09","open":1,"high":2,"low":0.5,"close":1.5,"volume":5}]`))
		case "/api/v1/quote":
			_, _ = w.Write([]byte(`{"price":3.25}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	f := NewRESTFetcher(srv.URL, "key", "", time.Second)
	bars, err := f.FetchHistory(context.Background(), "X", model.MustDate("2024-01-02"), model.MustDate("2024-01-05"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Date.Before(bars[1].Date))

	p, err := f.FetchLive(context.Background(), "X")
	require.NoError(t, err)
	assert.InDelta(t, 3.25, p, 1e-9)
}

func TestRESTFetchLive_MissingPrice(t *testing.T) {
	for _, body := range []string{`{}`, `{"price":0}`, `{"price":-1.5}`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		f := NewRESTFetcher(srv.URL, "", "", time.Second)
		p, err := f.FetchLive(context.Background(), "X")
		srv.Close()

		assert.ErrorIs(t, err, ErrProviderUnavailable, body)
		assert.Zero(t, p, body)
	}
}
