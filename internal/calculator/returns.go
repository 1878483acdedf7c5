package calculator

import (
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// CumulativeReturns returns close[i]/close[0] - 1 for every bar.
func CumulativeReturns(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	if len(bars) == 0 {
		return out
	}
	base := bars[0].Close
	for i, b := range bars {
		out[i] = b.Close/base - 1
	}
	return out
}

// DailyPercentChanges returns the close-to-close change of each bar versus
// the previous one, in percent. The first entry is zero.
func DailyPercentChanges(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		prev := bars[i-1].Close
		out[i] = (bars[i].Close - prev) / prev * 100
	}
	return out
}

// InvestmentGrowth compounds amount through the daily returns of bars and
// returns its value at the close of every session.
func InvestmentGrowth(bars []model.Bar, amount float64) []float64 {
	out := make([]float64, len(bars))
	value := amount
	for i := range bars {
		if i > 0 {
			value *= bars[i].Close / bars[i-1].Close
		}
		out[i] = value
	}
	return out
}
