package orbit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Newton-Raphson tuning for Kepler's equation. Highly eccentric orbits get a
// tighter tolerance and more room to converge.
const (
	highEccentricity = 0.8

	highEccMaxIter = 15
	highEccTol     = 1e-12
	lowEccMaxIter  = 8
	lowEccTol      = 1e-10
)

// SolveKepler solves M = E - e·sin(E) for the eccentric anomaly E by
// Newton-Raphson starting at E0 = M. It returns the final iterate and the
// number of iterations used. The iteration count is always capped; when the
// cap is reached the best available estimate is returned.
func SolveKepler(meanAnomaly, e float64) (E float64, iterations int) {
	maxIter, tol := lowEccMaxIter, lowEccTol
	if e > highEccentricity {
		maxIter, tol = highEccMaxIter, highEccTol
	}

	E = meanAnomaly
	for iterations < maxIter {
		sinE, cosE := math.Sincos(E)
		f := E - e*sinE - meanAnomaly
		df := 1 - e*cosE
		dE := f / df
		E -= dE
		iterations++
		if math.Abs(dE) < tol {
			break
		}
	}
	return E, iterations
}

// TrueAnomaly converts an eccentric anomaly to the true anomaly ν.
func TrueAnomaly(E, e float64) float64 {
	sinHalf, cosHalf := math.Sincos(E / 2)
	return 2 * math.Atan2(math.Sqrt(1+e)*sinHalf, math.Sqrt(1-e)*cosHalf)
}

// PositionAt returns the inertial position of the orbit at time t seconds
// after epoch, with meanAnomalyAtEpoch as the phase at t = 0. The mean anomaly
// is not wrapped; only its trigonometric functions are used downstream.
//
// A degenerate orbit (a <= 0) always returns the origin.
func PositionAt(el Elements, t, meanAnomalyAtEpoch float64) Position {
	if el.Degenerate() {
		return Origin
	}
	return newFrame(el).position(t, meanAnomalyAtEpoch)
}

// Current returns the satellite's position at time t using its own
// MeanAnomaly as the phase at epoch.
func Current(el Elements, t float64) Position {
	return PositionAt(el, t, el.MeanAnomaly)
}

// frame caches everything about an element set that does not depend on time,
// so that sampling a path only builds the rotation once.
type frame struct {
	a, e float64
	n    float64
	rot  *mat.Dense
}

func newFrame(el Elements) frame {
	return frame{
		a:   el.SemiMajorAxis,
		e:   el.Eccentricity,
		n:   el.MeanMotion(),
		rot: PerifocalToInertial(el.Inclination, el.LonAscendingNode, el.ArgPerigee),
	}
}

func (f frame) position(t, m0 float64) Position {
	M := m0 + f.n*t
	E, _ := SolveKepler(M, f.e)
	ν := TrueAnomaly(E, f.e)
	r := f.a * (1 - f.e*math.Cos(E))

	sinν, cosν := math.Sincos(ν)
	return Rotate(f.rot, Position{X: r * cosν, Y: r * sinν})
}

// VelocityAt returns the inertial velocity in m/s at time t, with the same
// conventions as PositionAt.
func VelocityAt(el Elements, t, meanAnomalyAtEpoch float64) Velocity {
	if el.Degenerate() {
		return Velocity{}
	}
	f := newFrame(el)
	E, _ := SolveKepler(meanAnomalyAtEpoch+f.n*t, f.e)
	ν := TrueAnomaly(E, f.e)
	p := f.a * (1 - f.e*f.e)
	k := math.Sqrt(MU / p)

	sinν, cosν := math.Sincos(ν)
	return Velocity(Rotate(f.rot, Position{X: -k * sinν, Y: k * (f.e + cosν)}))
}
