package model

import (
	"math"
	"time"
)

// DateFormat is the on-disk and CLI representation of a trading date.
const DateFormat = "2006-01-02"

// Bar represents one trading session's record.
type Bar struct {
	Date   time.Time // session date, midnight UTC
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether all prices are finite and positive and the volume is
// finite and non-negative.
func (b Bar) Valid() bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(p) || math.IsInf(p, 0) || p <= 0 {
			return false
		}
	}
	return !math.IsNaN(b.Volume) && !math.IsInf(b.Volume, 0) && b.Volume >= 0
}

// Coverage is the closed date interval for which a dataset is gap-free.
type Coverage struct {
	Earliest time.Time
	Latest   time.Time
}

// Empty reports whether the coverage holds no session at all.
func (c Coverage) Empty() bool { return c.Earliest.IsZero() && c.Latest.IsZero() }

// Contains reports whether day lies within [Earliest, Latest].
func (c Coverage) Contains(day time.Time) bool {
	if c.Empty() {
		return false
	}
	return !day.Before(c.Earliest) && !day.After(c.Latest)
}

func (c Coverage) String() string {
	if c.Empty() {
		return "[]"
	}
	return "[" + c.Earliest.Format(DateFormat) + ", " + c.Latest.Format(DateFormat) + "]"
}

// Dataset is the cached price history of one ticker symbol.
// Bars are strictly increasing by date.
type Dataset struct {
	Symbol   string
	Bars     []Bar
	Coverage Coverage
}

// Len returns the number of sessions held.
func (d *Dataset) Len() int { return len(d.Bars) }

// Latest returns the most recent bar, false if the dataset is empty.
func (d *Dataset) Latest() (Bar, bool) {
	if len(d.Bars) == 0 {
		return Bar{}, false
	}
	return d.Bars[len(d.Bars)-1], true
}

// Between returns the bars dated within [start, end].
func (d *Dataset) Between(start, end time.Time) []Bar {
	var out []Bar
	for _, b := range d.Bars {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Tail returns the last n bars, or all of them if fewer are held.
func (d *Dataset) Tail(n int) []Bar {
	if n >= len(d.Bars) {
		return d.Bars
	}
	return d.Bars[len(d.Bars)-n:]
}

// Day truncates t to its calendar date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, dd := t.Date()
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// MustDate is like ParseDate but panics on error. Intended for tests.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err.Error())
	}
	return t
}
