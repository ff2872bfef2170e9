// Package system provides the real clock.
package system

import (
	"fmt"
	"time"
)

// Clock implements clock.Clock using time.Now in a fixed location.
type Clock struct {
	loc *time.Location
}

// New returns a Clock reporting times in loc. A nil loc means UTC.
func New(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc}
}

// InZone returns a Clock for the named IANA zone.
func InZone(name string) (*Clock, error) {
	if name == "" {
		return New(nil), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", name, err)
	}
	return New(loc), nil
}

// Now returns the current time.
func (c *Clock) Now() time.Time {
	return time.Now().In(c.loc)
}
