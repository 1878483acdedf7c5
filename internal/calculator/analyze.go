// Package calculator derives statistics and chart series from cached bars.
package calculator

import (
	"errors"
	"fmt"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// ErrInsufficientData is returned when the bars do not span the requested window.
var ErrInsufficientData = errors.New("insufficient data")

// MovingAveragePeriod is the rolling window of the moving-average series.
const MovingAveragePeriod = 5

// RSIPeriod is the Wilder RSI lookback used in summaries.
const RSIPeriod = 14

// Window is an analysis lookback, either a count of sessions or a calendar
// duration ending at the most recent bar.
type Window struct {
	sessions int
	span     time.Duration
	cal      SessionLister
	exchange string
}

// SessionLister lists the trading sessions of an exchange in [start, end].
type SessionLister interface {
	TradingSessions(exchange string, start, end time.Time) ([]time.Time, error)
}

// Sessions is a window of the last n trading sessions.
func Sessions(n int) Window { return Window{sessions: n} }

// Duration is a window of calendar time ending at the most recent bar.
func Duration(d time.Duration) Window { return Window{span: d} }

// On resolves the start of a duration window against the sessions of
// exchange, so a window opening on a holiday needs only the next session.
// Without a calendar only weekends are skipped.
func (w Window) On(cal SessionLister, exchange string) Window {
	w.cal, w.exchange = cal, exchange
	return w
}

func (w Window) String() string {
	if w.span > 0 {
		return w.span.String()
	}
	return fmt.Sprintf("%d sessions", w.sessions)
}

// Select returns the bars of ds inside the window. The dataset must reach
// back to the start of the window; it is never silently truncated.
func (w Window) Select(ds *model.Dataset) ([]model.Bar, error) {
	if w.sessions <= 0 && w.span <= 0 {
		return nil, fmt.Errorf("invalid window %s", w)
	}
	last, ok := ds.Latest()
	if !ok {
		return nil, fmt.Errorf("%w: %s has no bars", ErrInsufficientData, ds.Symbol)
	}
	if w.span > 0 {
		start := model.Day(last.Date.Add(-w.span))
		first, err := w.firstSession(start, last.Date)
		if err != nil {
			return nil, err
		}
		if ds.Bars[0].Date.After(first) {
			return nil, fmt.Errorf("%w: %s starts %s, window needs %s",
				ErrInsufficientData, ds.Symbol,
				ds.Bars[0].Date.Format(model.DateFormat), first.Format(model.DateFormat))
		}
		return ds.Between(start, last.Date), nil
	}
	if ds.Len() < w.sessions {
		return nil, fmt.Errorf("%w: %s has %d sessions, window needs %d",
			ErrInsufficientData, ds.Symbol, ds.Len(), w.sessions)
	}
	return ds.Tail(w.sessions), nil
}

// firstSession returns the first session on or after start, never later
// than end.
func (w Window) firstSession(start, end time.Time) (time.Time, error) {
	if w.cal == nil {
		for start.Before(end) && (start.Weekday() == time.Saturday || start.Weekday() == time.Sunday) {
			start = start.AddDate(0, 0, 1)
		}
		return start, nil
	}
	sessions, err := w.cal.TradingSessions(w.exchange, start, end)
	if err != nil {
		return time.Time{}, err
	}
	if len(sessions) == 0 {
		return end, nil
	}
	return sessions[0], nil
}

// Analyze computes the rolling metrics of ds over the window.
func Analyze(ds *model.Dataset, w Window) (*model.Metrics, error) {
	bars, err := w.Select(ds)
	if err != nil {
		return nil, err
	}
	closes := extractCloses(bars)
	sma, err := CalculateSMA(closes, len(closes))
	if err != nil {
		return nil, err
	}
	return &model.Metrics{
		Symbol:            ds.Symbol,
		Start:             bars[0].Date,
		End:               bars[len(bars)-1].Date,
		SMA:               sma,
		HighLow:           HighLowSpread(bars),
		CumulativeReturns: CumulativeReturns(bars),
		Dates:             barDates(bars),
	}, nil
}

// Summarize computes the headline statistics of bars, oldest first. At least
// two sessions are needed for the last-session change. capital seeds the
// investment growth series and may be zero to skip it.
func Summarize(symbol string, bars []model.Bar, capital float64) (*model.Summary, error) {
	if len(bars) < 2 {
		return nil, fmt.Errorf("%w: %s has %d sessions, need at least 2",
			ErrInsufficientData, symbol, len(bars))
	}
	high, low, err := CalculateRange(bars)
	if err != nil {
		return nil, err
	}

	first, prev, last := bars[0].Close, bars[len(bars)-2].Close, bars[len(bars)-1].Close
	var sumClose, sumVolume float64
	for _, b := range bars {
		sumClose += b.Close
		sumVolume += b.Volume
	}
	n := float64(len(bars))

	ma, err := RollingSMA(extractCloses(bars), MovingAveragePeriod)
	if err != nil {
		return nil, err
	}

	s := &model.Summary{
		Symbol:          symbol,
		Sessions:        len(bars),
		Start:           bars[0].Date,
		End:             bars[len(bars)-1].Date,
		LastChangePct:   (last - prev) / prev * 100,
		RangeHigh:       high,
		RangeLow:        low,
		AvgClose:        sumClose / n,
		AvgVolume:       sumVolume / n,
		RangeChangePct:  (last - first) / first * 100,
		Dates:           barDates(bars),
		MovingAverage:   ma,
		DailyChangesPct: DailyPercentChanges(bars),
	}
	if len(bars) > RSIPeriod {
		if s.RSI, err = CalculateRSI(bars, RSIPeriod); err != nil {
			return nil, err
		}
		s.RSIAvailable = true
	}
	if capital > 0 {
		s.InvestmentCapital = capital
		s.InvestmentGrowth = InvestmentGrowth(bars, capital)
	}
	return s, nil
}

func barDates(bars []model.Bar) []time.Time {
	out := make([]time.Time, len(bars))
	for i, b := range bars {
		out[i] = b.Date
	}
	return out
}
