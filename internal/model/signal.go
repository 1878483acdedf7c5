package model

import "time"

// AlertPhase is the per-symbol evaluation state.
type AlertPhase string

const (
	PhaseIdle        AlertPhase = "IDLE"
	PhaseRefreshing  AlertPhase = "REFRESHING"
	PhasePricingLive AlertPhase = "PRICING_LIVE"
	PhaseDecided     AlertPhase = "DECIDED"
	PhaseAborted     AlertPhase = "ABORTED"
)

// AlertState is the result of one alert evaluation. It is never persisted as
// part of a dataset.
type AlertState struct {
	Symbol         string
	ReferencePrice float64
	ReferenceDate  time.Time
	LivePrice      float64
	PercentChange  float64
	Threshold      float64
	Fired          bool
	Phase          AlertPhase
}

// Direction returns "rose" or "dropped" depending on the sign of the change.
func (a AlertState) Direction() string {
	if a.PercentChange < 0 {
		return "dropped"
	}
	return "rose"
}
