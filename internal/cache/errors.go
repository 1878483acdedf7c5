package cache

import (
	"errors"
	"fmt"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/collector"
	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

var (
	// ErrInvalidRange is returned when start is after end.
	ErrInvalidRange = errors.New("invalid range")
	// ErrPartialData matches any *PartialDataError.
	ErrPartialData = errors.New("partial data")
	// ErrCorruptDataset is returned when a persisted dataset cannot be parsed.
	ErrCorruptDataset = errors.New("corrupt dataset")
)

// ProviderUnavailableError reports the symbol and sub-range whose fetch failed.
// It matches collector.ErrProviderUnavailable with errors.Is.
type ProviderUnavailableError struct {
	Symbol string
	Start  time.Time
	End    time.Time
	Err    error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("provider unavailable for %s [%s, %s]: %v",
		e.Symbol, e.Start.Format(model.DateFormat), e.End.Format(model.DateFormat), e.Err)
}

func (e *ProviderUnavailableError) Unwrap() []error {
	return []error{collector.ErrProviderUnavailable, e.Err}
}

// PartialDataError is returned when every bar of a provider response was malformed.
type PartialDataError struct {
	Symbol   string
	Start    time.Time
	End      time.Time
	Rejected int
}

func (e *PartialDataError) Error() string {
	return fmt.Sprintf("partial data for %s [%s, %s]: all %d bars malformed",
		e.Symbol, e.Start.Format(model.DateFormat), e.End.Format(model.DateFormat), e.Rejected)
}

func (e *PartialDataError) Is(target error) bool { return target == ErrPartialData }
