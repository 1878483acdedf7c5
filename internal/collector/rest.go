package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// RESTFetcher implements Fetcher against a plain JSON bar API:
//
//	GET {base}/api/v1/bars/daily?symbol=AAPL&from=2024-01-02&to=2024-01-05
//	GET {base}/api/v1/quote?symbol=AAPL
type RESTFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	return &RESTFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, timeout),
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of one daily bar.
type restBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (f *RESTFetcher) get(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return ErrUnknownSymbol
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d, body: %s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrProviderUnavailable, err)
	}
	return nil
}

func (f *RESTFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("from", start.Format(model.DateFormat))
	q.Set("to", end.Format(model.DateFormat))
	var raw []restBar
	if err := f.get(ctx, f.BaseURL+"/api/v1/bars/daily?"+q.Encode(), &raw); err != nil {
		return nil, fmt.Errorf("fetch bars %s: %w", symbol, err)
	}
	bars := make([]model.Bar, 0, len(raw))
	for _, rb := range raw {
		d, err := model.ParseDate(rb.Date)
		if err != nil {
			continue
		}
		bars = append(bars, model.Bar{
			Date:   d,
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		})
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return clip(bars, model.Day(start), model.Day(end)), nil
}

func (f *RESTFetcher) FetchLive(ctx context.Context, symbol string) (float64, error) {
	var result struct {
		Price *float64 `json:"price"`
	}
	if err := f.get(ctx, f.BaseURL+"/api/v1/quote?symbol="+url.QueryEscape(symbol), &result); err != nil {
		return 0, fmt.Errorf("fetch current price %s: %w", symbol, err)
	}
	p := result.Price
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) || *p <= 0 {
		return 0, fmt.Errorf("%w: rest: no price data for %s", ErrProviderUnavailable, symbol)
	}
	return *p, nil
}
