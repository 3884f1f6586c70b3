// Package weekkey computes the identifier of the current prize week.
//
// A prize week starts every Sunday at 20:00 in a fixed reference time zone and
// is identified by that boundary, formatted as "YYYY-MM-DD-20:00".
package weekkey

import (
	"fmt"
	"time"
)

const (
	// DefaultTimeZone is the zone the weekly prize schedule is defined in.
	DefaultTimeZone = "America/Chicago"
	// BoundaryHour is the local hour on Sunday at which a new prize week begins.
	BoundaryHour = 20
)

// Boundary returns the most recent Sunday BoundaryHour:00 at or before now, in loc.
func Boundary(now time.Time, loc *time.Location) time.Time {
	t := now.In(loc)
	b := time.Date(t.Year(), t.Month(), t.Day()-int(t.Weekday()), BoundaryHour, 0, 0, 0, loc)
	if t.Before(b) {
		b = time.Date(b.Year(), b.Month(), b.Day()-7, BoundaryHour, 0, 0, 0, loc)
	}
	return b
}

// For returns the week key for now in loc.
func For(now time.Time, loc *time.Location) string {
	b := Boundary(now, loc)
	return fmt.Sprintf("%s-%02d:00", b.Format("2006-01-02"), BoundaryHour)
}

// Clock produces week keys for the current wall-clock time in a fixed zone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock loads the named zone. An empty name selects DefaultTimeZone.
func NewClock(zone string) (*Clock, error) {
	if zone == "" {
		zone = DefaultTimeZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("failed to load prize time zone %q: %w", zone, err)
	}
	return &Clock{loc: loc, now: time.Now}, nil
}

// NewFixedClock returns a Clock whose time source is now. Used by tests and jobs
// that need a deterministic instant.
func NewFixedClock(loc *time.Location, now func() time.Time) *Clock {
	return &Clock{loc: loc, now: now}
}

// Current returns the key of the week containing the current instant.
func (c *Clock) Current() string {
	return For(c.now(), c.loc)
}

// Now returns the current instant of the clock's time source.
func (c *Clock) Now() time.Time {
	return c.now()
}

// Location returns the reference time zone.
func (c *Clock) Location() *time.Location {
	return c.loc
}
