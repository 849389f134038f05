// Package orbit implements the analytic two-body Keplerian model: element sets,
// Kepler's equation, position at time and closed-path sampling.
//
// All functions are pure. Elements are passed by value, so a caller holding a
// snapshot gets reproducible results no matter what else edits the live set.
package orbit

import (
	"fmt"
	"math"
)

const (
	// G is the gravitational constant in m³/(kg·s²).
	G = 6.67430e-11
	// EarthMass in kg.
	EarthMass = 5.972e24
	// MU is Earth's standard gravitational parameter in m³/s².
	MU = G * EarthMass

	// SimulationDuration is the fixed simulated horizon in seconds (48 h).
	SimulationDuration = 172800.0

	// DefaultPathPoints is the number of path segments per period.
	DefaultPathPoints = 720

	twoPi = 2 * math.Pi
)

// Elements is a classical Keplerian element set. Distances are in metres,
// angles in radians.
//
// Eccentricity must be in [0, 1); open orbits are outside the model and are
// not rejected. A non-positive SemiMajorAxis is a degenerate orbit that
// collapses to the origin.
type Elements struct {
	SemiMajorAxis    float64 `json:"semi_major_axis" yaml:"semi_major_axis"`
	Eccentricity     float64 `json:"eccentricity" yaml:"eccentricity"`
	Inclination      float64 `json:"inclination" yaml:"inclination"`
	LonAscendingNode float64 `json:"lon_ascending_node" yaml:"lon_ascending_node"`
	ArgPerigee       float64 `json:"arg_perigee" yaml:"arg_perigee"`
	MeanAnomaly      float64 `json:"mean_anomaly" yaml:"mean_anomaly"`
}

// Degenerate reports whether the element set has no usable orbit.
func (el Elements) Degenerate() bool {
	return el.SemiMajorAxis <= 0
}

// MeanMotion returns n = sqrt(MU/a³) in rad/s, or 0 for a degenerate orbit.
func (el Elements) MeanMotion() float64 {
	if el.Degenerate() {
		return 0
	}
	return math.Sqrt(MU / math.Pow(el.SemiMajorAxis, 3))
}

// Period returns the orbital period in seconds, or 0 for a degenerate orbit.
func (el Elements) Period() float64 {
	if el.Degenerate() {
		return 0
	}
	return twoPi * math.Sqrt(math.Pow(el.SemiMajorAxis, 3)/MU)
}

// Apogee returns the apoapsis radius in metres.
func (el Elements) Apogee() float64 {
	return el.SemiMajorAxis * (1 + el.Eccentricity)
}

// Perigee returns the periapsis radius in metres.
func (el Elements) Perigee() float64 {
	return el.SemiMajorAxis * (1 - el.Eccentricity)
}

// Shape returns the phase-free part of the element set. Two element sets with
// equal shapes trace exactly the same path.
func (el Elements) Shape() Shape {
	return Shape{
		SemiMajorAxis:    el.SemiMajorAxis,
		Eccentricity:     el.Eccentricity,
		Inclination:      el.Inclination,
		LonAscendingNode: el.LonAscendingNode,
		ArgPerigee:       el.ArgPerigee,
	}
}

// NormalizedMeanAnomaly returns MeanAnomaly wrapped into [0, 2π).
func (el Elements) NormalizedMeanAnomaly() float64 {
	return WrapTwoPi(el.MeanAnomaly)
}

// String implements the stringer interface.
func (el Elements) String() string {
	return fmt.Sprintf("a=%.1fkm e=%.4f i=%.3f Ω=%.3f ω=%.3f M=%.3f",
		el.SemiMajorAxis/1000, el.Eccentricity, el.Inclination, el.LonAscendingNode, el.ArgPerigee, el.MeanAnomaly)
}

// Shape is the geometry-determining subset of Elements. It is comparable and
// is used as a cache key for sampled paths.
type Shape struct {
	SemiMajorAxis    float64
	Eccentricity     float64
	Inclination      float64
	LonAscendingNode float64
	ArgPerigee       float64
}

// Elements returns the shape as an element set with zero mean anomaly.
func (s Shape) Elements() Elements {
	return Elements{
		SemiMajorAxis:    s.SemiMajorAxis,
		Eccentricity:     s.Eccentricity,
		Inclination:      s.Inclination,
		LonAscendingNode: s.LonAscendingNode,
		ArgPerigee:       s.ArgPerigee,
	}
}

// WrapTwoPi wraps an angle into [0, 2π).
func WrapTwoPi(a float64) float64 {
	a = math.Mod(a, twoPi)
	if a < 0 {
		a += twoPi
	}
	return a
}
