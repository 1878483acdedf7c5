// Package calendar answers which dates were trading sessions on an exchange.
package calendar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Samad-M3/Stock-Price-Tracker/internal/model"
)

// ErrUnknownExchange is returned for an exchange with no registered schedule.
var ErrUnknownExchange = errors.New("unknown exchange")

// Calendar enumerates trading sessions. Bounds are inclusive and the result is
// ascending; an empty slice means no session fell in the range.
type Calendar interface {
	TradingSessions(exchange string, start, end time.Time) ([]time.Time, error)
}

// Schedule describes the regular trading hours and holiday rules of one exchange.
type Schedule struct {
	Name     string
	Location *time.Location
	OpenAt   time.Duration // offset from local midnight
	CloseAt  time.Duration
	Holidays func(year int) map[time.Time]string
}

// Market is a Calendar backed by a set of exchange schedules.
type Market struct {
	schedules map[string]*Schedule

	mu    sync.Mutex
	years map[string]map[int]map[time.Time]string
}

// New returns a Market knowing the US equity exchanges.
func New() *Market {
	m := &Market{
		schedules: make(map[string]*Schedule),
		years:     make(map[string]map[int]map[time.Time]string),
	}
	nyse := NYSE()
	for _, name := range []string{"NYSE", "XNYS", "NASDAQ", "XNAS"} {
		m.schedules[name] = nyse
	}
	return m
}

// Register adds or replaces the schedule for an exchange name.
func (m *Market) Register(exchange string, s *Schedule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToUpper(exchange)
	m.schedules[key] = s
	delete(m.years, s.Name)
}

func (m *Market) schedule(exchange string) (*Schedule, error) {
	s, ok := m.schedules[strings.ToUpper(exchange)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExchange, exchange)
	}
	return s, nil
}

func (m *Market) holiday(s *Schedule, day time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	byYear, ok := m.years[s.Name]
	if !ok {
		byYear = make(map[int]map[time.Time]string)
		m.years[s.Name] = byYear
	}
	h, ok := byYear[day.Year()]
	if !ok {
		h = s.Holidays(day.Year())
		byYear[day.Year()] = h
	}
	_, closed := h[day]
	return closed
}

func (m *Market) isSession(s *Schedule, day time.Time) bool {
	if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !m.holiday(s, day)
}

// TradingSessions implements Calendar.
func (m *Market) TradingSessions(exchange string, start, end time.Time) ([]time.Time, error) {
	s, err := m.schedule(exchange)
	if err != nil {
		return nil, err
	}
	start, end = model.Day(start), model.Day(end)
	sessions := []time.Time{}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if m.isSession(s, d) {
			sessions = append(sessions, d)
		}
	}
	return sessions, nil
}

// IsSession reports whether day is a trading session on exchange.
func (m *Market) IsSession(exchange string, day time.Time) (bool, error) {
	s, err := m.schedule(exchange)
	if err != nil {
		return false, err
	}
	return m.isSession(s, model.Day(day)), nil
}

// localDay returns the exchange-local calendar date of t, as midnight UTC.
func (s *Schedule) localDay(t time.Time) time.Time {
	y, mo, d := t.In(s.Location).Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// LocalDate returns the exchange-local calendar date of now, as midnight UTC.
func (m *Market) LocalDate(exchange string, now time.Time) (time.Time, error) {
	s, err := m.schedule(exchange)
	if err != nil {
		return time.Time{}, err
	}
	return s.localDay(now), nil
}

// LatestCompleted returns the most recent session whose close is at or before now.
func (m *Market) LatestCompleted(exchange string, now time.Time) (time.Time, error) {
	s, err := m.schedule(exchange)
	if err != nil {
		return time.Time{}, err
	}
	today := s.localDay(now)
	if m.isSession(s, today) && !now.Before(s.closeOn(today)) {
		return today, nil
	}
	return m.previous(s, today), nil
}

// PreviousSession returns the last session strictly before day.
func (m *Market) PreviousSession(exchange string, day time.Time) (time.Time, error) {
	s, err := m.schedule(exchange)
	if err != nil {
		return time.Time{}, err
	}
	return m.previous(s, model.Day(day)), nil
}

func (m *Market) previous(s *Schedule, day time.Time) time.Time {
	d := day.AddDate(0, 0, -1)
	// A run of closed days never exceeds a couple of weeks.
	for i := 0; i < 30 && !m.isSession(s, d); i++ {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func (s *Schedule) openOn(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.Location).Add(s.OpenAt)
}

func (s *Schedule) closeOn(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, s.Location).Add(s.CloseAt)
}

// Status is the market state at a point in time.
type Status int

const (
	StatusClosedToday Status = iota // weekend or holiday
	StatusPreOpen
	StatusOpen
	StatusAfterClose
)

func (s Status) String() string {
	switch s {
	case StatusClosedToday:
		return "closed"
	case StatusPreOpen:
		return "pre-open"
	case StatusOpen:
		return "open"
	case StatusAfterClose:
		return "after-close"
	default:
		return "unknown"
	}
}

// MarketStatus returns the state of exchange at now.
func (m *Market) MarketStatus(exchange string, now time.Time) (Status, error) {
	s, err := m.schedule(exchange)
	if err != nil {
		return StatusClosedToday, err
	}
	today := s.localDay(now)
	switch {
	case !m.isSession(s, today):
		return StatusClosedToday, nil
	case now.Before(s.openOn(today)):
		return StatusPreOpen, nil
	case now.Before(s.closeOn(today)):
		return StatusOpen, nil
	default:
		return StatusAfterClose, nil
	}
}
