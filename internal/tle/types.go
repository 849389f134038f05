// Package tle imports real satellite orbits from NORAD two-line element sets.
// Lines are parsed here, initialised with SGP4 and turned into the osculating
// Keplerian elements at the TLE epoch.
package tle

import (
	"errors"
	"time"
)

// ErrNoEntries is returned when input holds no usable TLE for the request.
var ErrNoEntries = errors.New("no TLE entries found")

// Entry represents a single satellite's two-line element set.
type Entry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name,omitempty"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}
