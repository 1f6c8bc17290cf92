package chrono

import (
	"time"
	_ "time/tzdata"
)

var warsaw *time.Location

func init() {
	var err error
	warsaw, err = time.LoadLocation("Europe/Warsaw")
	if err != nil {
		panic(err)
	}
}

// Warsaw returns a [*time.Location] for Europe/Warsaw, the timezone the
// portal reports appointment dates in.
func Warsaw() *time.Location {
	return warsaw
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now()
}

// FixedTime always returns the same instant.
type FixedTime time.Time

func (f FixedTime) Now() time.Time {
	return time.Time(f)
}

// MidnightUTC returns 00:00 UTC of t's calendar date in loc.
func MidnightUTC(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Day truncates t to midnight of its calendar date in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
