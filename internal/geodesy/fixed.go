// Package geodesy places the simulation's inertial positions on the rotating
// Earth: the Earth-fixed frame, geodetic sub-points, look angles from a
// ground observer and the Sun's shadow.
//
// The inertial frame is rotated into the Earth-fixed frame by Greenwich mean
// sidereal time alone. Polar motion and the equation of the equinoxes are
// ignored, which is tens of metres at most.
package geodesy

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"

	"github.com/star/orbitalator/internal/orbit"
)

// OmegaEarth is Earth's rotation rate in rad/s (IAU value).
const OmegaEarth = 7.292115146706979e-5

// GMST returns Greenwich mean sidereal time in radians for a UTC instant.
func GMST(at time.Time) float64 {
	return sidereal.Mean(julian.TimeToJD(at.UTC())).Angle().Rad()
}

// ToFixed rotates an inertial position into the Earth-fixed frame at the
// given instant: r_fixed = R3(θ) r_inertial.
func ToFixed(p orbit.Position, at time.Time) orbit.Position {
	return rotateZ(p, GMST(at))
}

// FromFixed is the inverse of ToFixed.
func FromFixed(p orbit.Position, at time.Time) orbit.Position {
	return rotateZ(p, -GMST(at))
}

// VelocityToFixed converts an inertial velocity at inertial position p to
// the Earth-fixed frame: v_fixed = R3(θ) v - ω × r_fixed.
func VelocityToFixed(v orbit.Velocity, p orbit.Position, at time.Time) orbit.Velocity {
	θ := GMST(at)
	r := rotateZ(p, θ)
	rv := rotateZ(orbit.Position(v), θ)
	return orbit.Velocity{
		X: rv.X + OmegaEarth*r.Y,
		Y: rv.Y - OmegaEarth*r.X,
		Z: rv.Z,
	}
}

func rotateZ(p orbit.Position, θ float64) orbit.Position {
	sin, cos := math.Sincos(θ)
	return orbit.Position{
		X: p.X*cos + p.Y*sin,
		Y: -p.X*sin + p.Y*cos,
		Z: p.Z,
	}
}

// Valid reports whether p is finite and at a plausible Earth-orbit radius.
func Valid(p orbit.Position) bool {
	for _, v := range []float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	const (
		minRadius = 6200e3
		maxRadius = 50000e3
	)
	r := p.Norm()
	return r >= minRadius && r <= maxRadius
}
