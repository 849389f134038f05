package geodesy

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/solar"

	"github.com/star/orbitalator/internal/orbit"
)

// SunDirection returns the unit vector from Earth's centre towards the Sun
// in the inertial frame.
func SunDirection(at time.Time) orbit.Position {
	ra, dec := solar.ApparentEquatorial(julian.TimeToJD(at.UTC()))
	sinRA, cosRA := math.Sincos(ra.Rad())
	sinDec, cosDec := math.Sincos(dec.Rad())
	return orbit.Position{X: cosDec * cosRA, Y: cosDec * sinRA, Z: sinDec}
}

// Sunlit reports whether an inertial position is outside Earth's shadow,
// modelled as a cylinder of equatorial radius behind the Earth.
func Sunlit(p orbit.Position, at time.Time) bool {
	s := SunDirection(at)
	along := p.X*s.X + p.Y*s.Y + p.Z*s.Z
	if along >= 0 {
		return true
	}
	perp := orbit.Position{X: p.X - along*s.X, Y: p.Y - along*s.Y, Z: p.Z - along*s.Z}
	return perp.Norm() > wgs84A
}
