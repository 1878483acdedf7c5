package calendar

import "time"

// newYork falls back to a fixed EST offset when the tz database is unavailable.
var newYork = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}()

// NYSE returns the New York Stock Exchange schedule (9:30-16:00 America/New_York).
func NYSE() *Schedule {
	return &Schedule{
		Name:     "NYSE",
		Location: newYork,
		OpenAt:   9*time.Hour + 30*time.Minute,
		CloseAt:  16 * time.Hour,
		Holidays: nyseHolidays,
	}
}

// Unscheduled full-day closures.
var nyseSpecialClosures = []struct {
	date time.Time
	name string
}{
	{date(2001, time.September, 11), "September 11"},
	{date(2001, time.September, 12), "September 11"},
	{date(2001, time.September, 13), "September 11"},
	{date(2001, time.September, 14), "September 11"},
	{date(2004, time.June, 11), "Reagan mourning"},
	{date(2007, time.January, 2), "Ford mourning"},
	{date(2012, time.October, 29), "Hurricane Sandy"},
	{date(2012, time.October, 30), "Hurricane Sandy"},
	{date(2018, time.December, 5), "Bush mourning"},
	{date(2025, time.January, 9), "Carter mourning"},
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func nyseHolidays(year int) map[time.Time]string {
	h := make(map[time.Time]string)

	// New Year's Day: a Saturday holiday is not moved back into December.
	if ny := date(year, time.January, 1); ny.Weekday() == time.Sunday {
		h[ny.AddDate(0, 0, 1)] = "New Year's Day"
	} else if ny.Weekday() != time.Saturday {
		h[ny] = "New Year's Day"
	}
	if year >= 1998 {
		h[nthWeekday(year, time.January, time.Monday, 3)] = "Martin Luther King Jr. Day"
	}
	h[nthWeekday(year, time.February, time.Monday, 3)] = "Washington's Birthday"
	h[easter(year).AddDate(0, 0, -2)] = "Good Friday"
	h[lastWeekday(year, time.May, time.Monday)] = "Memorial Day"
	if year >= 2022 {
		h[observed(date(year, time.June, 19))] = "Juneteenth"
	}
	h[observed(date(year, time.July, 4))] = "Independence Day"
	h[nthWeekday(year, time.September, time.Monday, 1)] = "Labor Day"
	h[nthWeekday(year, time.November, time.Thursday, 4)] = "Thanksgiving Day"
	h[observed(date(year, time.December, 25))] = "Christmas Day"

	for _, c := range nyseSpecialClosures {
		if c.date.Year() == year {
			h[c.date] = c.name
		}
	}
	return h
}

// observed moves a Saturday holiday to Friday and a Sunday holiday to Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	}
	return d
}

func nthWeekday(year int, m time.Month, wd time.Weekday, n int) time.Time {
	d := date(year, m, 1)
	offset := (int(wd) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+7*(n-1))
}

func lastWeekday(year int, m time.Month, wd time.Weekday) time.Time {
	d := date(year, m+1, 1).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(wd) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// easter returns Easter Sunday (anonymous Gregorian algorithm).
func easter(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return date(year, time.Month(month), day)
}
