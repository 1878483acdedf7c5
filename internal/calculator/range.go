package calculator

import (
	"errors"
	"math"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// CalculateRange scans bars and returns the highest high and the lowest low.
func CalculateRange(bars []model.Bar) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
	}
	return high, low, nil
}

// HighLowSpread returns high - low for every bar.
func HighLowSpread(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High - b.Low
	}
	return out
}
