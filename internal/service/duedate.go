package service

import (
	"strings"
	"time"
)

// Clock returns the current time. Services take one so tests can pin "now".
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }

// ComputeNextDueDate adds frequencyDays calendar days to base in loc.
// A zero base means now. Calendar arithmetic keeps the wall-clock time
// across DST changes; the result is returned in UTC.
func ComputeNextDueDate(frequencyDays int, base time.Time, loc *time.Location) time.Time {
	if base.IsZero() {
		base = time.Now()
	}
	if loc == nil {
		loc = time.UTC
	}
	return base.In(loc).AddDate(0, 0, frequencyDays).UTC()
}

// LoadLocation resolves an IANA zone name, falling back to UTC. The
// boolean is false when the name was set but could not be loaded.
func LoadLocation(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return time.UTC, true
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC, false
	}
	return loc, true
}

// startOfDay truncates t to local midnight in loc.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// calendarDaysBetween counts midnights crossed from a to b in loc.
// Negative when b is on an earlier day than a.
func calendarDaysBetween(a, b time.Time, loc *time.Location) int {
	da := startOfDay(a, loc)
	db := startOfDay(b, loc)
	ay, am, ad := da.Date()
	by, bm, bd := db.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
