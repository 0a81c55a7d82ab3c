package clock

import "time"

// Clock supplies the current time. The scheduler takes one so tests can
// step virtual time deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

// System is the wall-clock implementation used in production.
type System struct{}

func (System) Now() time.Time { return time.Now() }
