package biztime

import "time"

// Calendar describes the working schedule used for SLA clocks.
type Calendar struct {
	StartHour int
	EndHour   int
	Holidays  map[string]struct{}
	// Location overrides the business timezone when set.
	Location *time.Location
}

// NewCalendar builds a calendar from hour bounds and YYYY-MM-DD holiday dates.
func NewCalendar(startHour, endHour int, holidays []string) Calendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h] = struct{}{}
	}
	return Calendar{StartHour: startHour, EndHour: endHour, Holidays: set}
}

func (c Calendar) location() *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return Location()
}

// IsBusinessDay reports whether t falls on a weekday that is not a holiday.
func (c Calendar) IsBusinessDay(t time.Time) bool {
	t = t.In(c.location())
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.Holidays[t.Format(DateLayout)]
	return !holiday
}

// HoursBetween returns the working hours elapsed between start and end, walking the
// calendar day by day from start's date to end's date inclusive.
func (c Calendar) HoursBetween(start, end time.Time) float64 {
	if !end.After(start) {
		return 0
	}
	loc := c.location()
	start, end = start.In(loc), end.In(loc)

	sh := min(max(c.StartHour, 0), 23)
	lastDay := civilDate(end)

	var total time.Duration
	cursor := start
	for !civilDate(cursor).After(lastDay) {
		y, m, d := cursor.Date()
		if c.IsBusinessDay(cursor) {
			dayStart := time.Date(y, m, d, sh, 0, 0, 0, loc)
			dayEnd := time.Date(y, m, d, max(sh, c.EndHour), 0, 0, 0, loc)
			if c.EndHour >= 24 {
				dayEnd = time.Date(y, m, d, 23, 59, 59, 0, loc)
			}
			from := laterOf(cursor, dayStart)
			to := earlierOf(end, dayEnd)
			if to.After(from) {
				total += to.Sub(from)
			}
		}
		cursor = time.Date(y, m, d+1, 0, 0, 0, 0, loc)
	}
	return total.Hours()
}

// BusinessHoursBetween is HoursBetween on an ad-hoc calendar.
func BusinessHoursBetween(start, end time.Time, startHour, endHour int, holidays []string) float64 {
	return NewCalendar(startHour, endHour, holidays).HoursBetween(start, end)
}

// InQuietHours reports whether the business-timezone hour of t is inside the
// [start, end) window. A window with start >= end wraps past midnight.
func InQuietHours(t time.Time, start, end int) bool {
	hour := t.In(Location()).Hour()
	if start < end {
		return start <= hour && hour < end
	}
	return hour >= start || hour < end
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
