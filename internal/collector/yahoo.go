package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: yahooChartURL,
		Client:  newHTTPClient(proxyURL, timeout),
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{Timeout: timeout, Transport: transport}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice *float64 `json:"regularMarketPrice"`
				GMTOffset          int64    `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(v []*float64, i int) (float64, bool) {
	if i >= len(v) || v[i] == nil {
		return 0, false
	}
	return *v[i], true
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol string, query url.Values) (*yahooChart, error) {
	u := f.BaseURL + url.PathEscape(f.yahooSymbol(symbol)) + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo fetch: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo read body: %v", ErrProviderUnavailable, err)
	}

	var chart yahooChart
	decodeErr := json.Unmarshal(body, &chart)
	if decodeErr == nil && chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s: %s", ErrUnknownSymbol, symbol, chart.Chart.Error.Description)
		}
		return nil, fmt.Errorf("%w: yahoo api error: %s", ErrProviderUnavailable, chart.Chart.Error.Description)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: yahoo: status %d, body: %s", ErrProviderUnavailable, resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: yahoo decode: %v", ErrProviderUnavailable, decodeErr)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s: empty chart result", ErrUnknownSymbol, symbol)
	}
	return &chart, nil
}

// FetchHistory returns daily bars in [start, end].
func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol string, start, end time.Time) ([]model.Bar, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("period1", fmt.Sprint(start.Add(-24*time.Hour).Unix()))
	q.Set("period2", fmt.Sprint(end.Add(48*time.Hour).Unix()))
	chart, err := f.fetchChart(ctx, symbol, q)
	if err != nil {
		return nil, err
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []model.Bar{}, nil
	}
	quote := result.Indicators.Quote[0]
	bars := make([]model.Bar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, okO := at(quote.Open, i)
		h, okH := at(quote.High, i)
		l, okL := at(quote.Low, i)
		c, okC := at(quote.Close, i)
		if !okO && !okH && !okL && !okC {
			continue // skip null bars (holidays etc.)
		}
		v, _ := at(quote.Volume, i)
		bars = append(bars, model.Bar{
			Date:   model.Day(time.Unix(ts+result.Meta.GMTOffset, 0).UTC()),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: v,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return clip(bars, model.Day(start), model.Day(end)), nil
}

// FetchLive returns the regular market price.
func (f *YahooFetcher) FetchLive(ctx context.Context, symbol string) (float64, error) {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("range", "1d")
	chart, err := f.fetchChart(ctx, symbol, q)
	if err != nil {
		return 0, err
	}
	if p := chart.Chart.Result[0].Meta.RegularMarketPrice; p != nil && *p > 0 {
		return *p, nil
	}
	return 0, fmt.Errorf("%w: yahoo: no price data for %s", ErrProviderUnavailable, symbol)
}
