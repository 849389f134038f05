package orbit

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// singularε is the threshold below which eccentricity or the node vector are
// treated as zero (circular or equatorial orbits).
const singularε = 1e-9

// FromStateVector returns the element set of the orbit passing through r (m)
// with velocity v (m/s), following Vallado's RV2COE. The mean anomaly is the
// phase at the instant of the state vector.
//
// Circular orbits have no perigee: ω is 0 and the phase is measured from the
// ascending node (or from the x axis when also equatorial). Equatorial orbits
// have no node: Ω is 0 and ω is the longitude of perigee.
func FromStateVector(r, v r3.Vec) Elements {
	h := r3.Cross(r, v)
	node := r3.Vec{X: -h.Y, Y: h.X}
	rn := r3.Norm(r)
	vn := r3.Norm(v)
	hn := r3.Norm(h)
	nn := r3.Norm(node)
	rv := r3.Dot(r, v)

	eVec := r3.Scale(1/MU, r3.Sub(r3.Scale(vn*vn-MU/rn, r), r3.Scale(rv, v)))
	e := r3.Norm(eVec)

	ξ := vn*vn/2 - MU/rn
	a := -MU / (2 * ξ)
	i := acosClamped(h.Z / hn)

	var Ω, ω, ν float64
	equatorial := nn < singularε*hn
	circular := e < singularε

	if !equatorial {
		Ω = acosClamped(node.X / nn)
		if node.Y < 0 {
			Ω = 2*math.Pi - Ω
		}
	}

	switch {
	case !circular && !equatorial:
		ω = acosClamped(r3.Dot(node, eVec) / (nn * e))
		if eVec.Z < 0 {
			ω = 2*math.Pi - ω
		}
		ν = trueAnomalyFrom(eVec, e, r, rn, rv)
	case !circular && equatorial:
		ω = math.Atan2(eVec.Y, eVec.X)
		if h.Z < 0 {
			ω = -ω
		}
		ω = WrapTwoPi(ω)
		ν = trueAnomalyFrom(eVec, e, r, rn, rv)
	case circular && !equatorial:
		// Argument of latitude.
		ν = acosClamped(r3.Dot(node, r) / (nn * rn))
		if r.Z < 0 {
			ν = 2*math.Pi - ν
		}
	default:
		// True longitude.
		ν = math.Atan2(r.Y, r.X)
		if h.Z < 0 {
			ν = -ν
		}
		ν = WrapTwoPi(ν)
	}

	return Elements{
		SemiMajorAxis:    a,
		Eccentricity:     e,
		Inclination:      i,
		LonAscendingNode: Ω,
		ArgPerigee:       ω,
		MeanAnomaly:      MeanAnomalyFromTrue(ν, e),
	}
}

// MeanAnomalyFromTrue converts a true anomaly to a mean anomaly in [0, 2π).
func MeanAnomalyFromTrue(ν, e float64) float64 {
	sinHalf, cosHalf := math.Sincos(ν / 2)
	E := 2 * math.Atan2(math.Sqrt(1-e)*sinHalf, math.Sqrt(1+e)*cosHalf)
	return WrapTwoPi(E - e*math.Sin(E))
}

func trueAnomalyFrom(eVec r3.Vec, e float64, r r3.Vec, rn, rv float64) float64 {
	ν := acosClamped(r3.Dot(eVec, r) / (e * rn))
	if rv < 0 {
		ν = 2*math.Pi - ν
	}
	return ν
}

// acosClamped guards against |x| creeping past 1 through rounding, which
// would otherwise turn into NaN.
func acosClamped(x float64) float64 {
	return math.Acos(math.Max(-1, math.Min(1, x)))
}
