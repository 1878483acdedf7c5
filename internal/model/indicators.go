package model

import "time"

// Metrics holds the rolling metrics computed over a lookback window.
type Metrics struct {
	Symbol string
	Start  time.Time
	End    time.Time

	SMA               float64   // simple moving average of close over the window
	HighLow           []float64 // per-session high - low
	CumulativeReturns []float64 // close[i]/close[0] - 1
	Dates             []time.Time
}

// Summary holds the headline statistics over the last N sessions.
type Summary struct {
	Symbol            string
	Sessions          int
	Start             time.Time
	End               time.Time
	LastChangePct     float64 // last session vs the one before
	RangeHigh         float64
	RangeLow          float64
	AvgClose          float64
	AvgVolume         float64
	RangeChangePct    float64 // first close -> last close
	RSI               float64
	RSIAvailable      bool
	Dates             []time.Time
	MovingAverage     []float64 // rolling 5-session SMA, NaN until filled
	DailyChangesPct   []float64
	InvestmentGrowth  []float64
	InvestmentCapital float64
}
