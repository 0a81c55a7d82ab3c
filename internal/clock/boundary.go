package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Schedule describes the fixed weekly reset instant: a weekday plus a
// time-of-day, evaluated in a fixed reference location. A Schedule is pure
// state; boundary computations on it have no side effects.
type Schedule struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
	Loc     *time.Location
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseSchedule builds a Schedule from configuration strings, e.g.
// ("Saturday", "00:00", "UTC"). Any malformed value is an error; callers
// treat that as fatal at startup.
func ParseSchedule(weekday, timeOfDay, tz string) (Schedule, error) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(weekday))]
	if !ok {
		return Schedule{}, fmt.Errorf("parse reset schedule: unknown weekday %q", weekday)
	}

	parts := strings.Split(strings.TrimSpace(timeOfDay), ":")
	if len(parts) != 2 {
		return Schedule{}, fmt.Errorf("parse reset schedule: time %q is not HH:MM", timeOfDay)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return Schedule{}, fmt.Errorf("parse reset schedule: bad hour in %q", timeOfDay)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return Schedule{}, fmt.Errorf("parse reset schedule: bad minute in %q", timeOfDay)
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Schedule{}, fmt.Errorf("parse reset schedule: load timezone %q: %w", tz, err)
	}

	return Schedule{Weekday: wd, Hour: hour, Minute: minute, Loc: loc}, nil
}

// NextBoundary returns the next occurrence of the schedule at or after now.
// The boundary is inclusive: when now is exactly the reset instant, now
// itself is returned rather than the instant seven days later.
func (s Schedule) NextBoundary(now time.Time) time.Time {
	local := now.In(s.Loc)

	days := (int(s.Weekday) - int(local.Weekday()) + 7) % 7
	candidate := time.Date(local.Year(), local.Month(), local.Day()+days,
		s.Hour, s.Minute, 0, 0, s.Loc)

	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// LastBoundary returns the most recent occurrence of the schedule at or
// before now. This is the instant the rollover check compares the marker
// against: one tick past the boundary, NextBoundary already points a week
// ahead, so the check needs the boundary just crossed.
func (s Schedule) LastBoundary(now time.Time) time.Time {
	next := s.NextBoundary(now)
	if next.Equal(now) {
		return next
	}
	return next.AddDate(0, 0, -7)
}
