// Package biztime provides utilities for business timezone calculations.
// All storage uses UTC. The business timezone decides calendar days, working hours,
// quiet hours and the timestamps shown to operators.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTimezone is the default business timezone.
	DefaultTimezone = "Europe/Moscow"

	// DateLayout is the day format used for holidays and date-only values.
	DateLayout = "2006-01-02"

	// DisplayLayout is how timestamps are rendered for operators.
	DisplayLayout = "2006-01-02 15:04:05"
)

var (
	bizLocation *time.Location
	locationMu  sync.RWMutex
)

// Init sets the business timezone. If tz is empty, defaults to Europe/Moscow.
func Init(tz string) error {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("failed to load business timezone %q: %w", tz, err)
	}
	locationMu.Lock()
	bizLocation = loc
	locationMu.Unlock()
	return nil
}

// SetLocation replaces the business timezone with an already loaded location.
func SetLocation(loc *time.Location) {
	locationMu.Lock()
	bizLocation = loc
	locationMu.Unlock()
}

// Location returns the business timezone location, initialising the default on first use.
func Location() *time.Location {
	locationMu.RLock()
	loc := bizLocation
	locationMu.RUnlock()
	if loc != nil {
		return loc
	}
	if err := Init(""); err != nil {
		panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
	}
	return Location()
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// StartOfDayUTC returns the start of the business day containing t, converted to UTC.
func StartOfDayUTC(t time.Time) time.Time {
	bizTime := t.In(Location())
	startOfDay := time.Date(bizTime.Year(), bizTime.Month(), bizTime.Day(), 0, 0, 0, 0, Location())
	return startOfDay.UTC()
}

// EndOfDayUTC returns the last instant of the business day containing t, converted to UTC.
func EndOfDayUTC(t time.Time) time.Time {
	bizTime := t.In(Location())
	endOfDay := time.Date(bizTime.Year(), bizTime.Month(), bizTime.Day(), 23, 59, 59, 999999999, Location())
	return endOfDay.UTC()
}

// DaysBetween counts calendar days in the business timezone from `from` to `to`.
// Negative spans return 0.
func DaysBetween(from, to time.Time) int {
	a := civilDate(from.In(Location()))
	b := civilDate(to.In(Location()))
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// civilDate drops the clock and zone, keeping the calendar date as UTC midnight.
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ToBizTimezone converts a UTC time to business timezone for display.
func ToBizTimezone(t time.Time) time.Time {
	return t.In(Location())
}

// ParseDateInBizTimezone parses a date string (YYYY-MM-DD) as business timezone midnight,
// then returns the UTC equivalent.
func ParseDateInBizTimezone(dateStr string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, dateStr, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format %q: %w", dateStr, err)
	}
	return t.UTC(), nil
}

// FormatInBizTimezone formats a UTC time as a string in business timezone.
func FormatInBizTimezone(t time.Time, layout string) string {
	return t.In(Location()).Format(layout)
}

// ParseDisplayTime parses a timestamp rendered with DisplayLayout, falling back to RFC3339.
func ParseDisplayTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(DisplayLayout, s, Location()); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}
