package orbit

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Rz returns the active rotation by θ about the 3rd (polar) axis.
func Rz(θ float64) *mat.Dense {
	s, c := math.Sincos(θ)
	return mat.NewDense(3, 3, []float64{
		c, -s, 0,
		s, c, 0,
		0, 0, 1,
	})
}

// Rx returns the active rotation by θ about the 1st axis.
func Rx(θ float64) *mat.Dense {
	s, c := math.Sincos(θ)
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, c, -s,
		0, s, c,
	})
}

// PerifocalToInertial returns Rz(Ω)·Rx(i)·Rz(ω): a perifocal vector is first
// rotated by the argument of perigee, then tilted by the inclination, then
// rotated by the longitude of the ascending node. The order matters.
func PerifocalToInertial(i, Ω, ω float64) *mat.Dense {
	var tilt, m mat.Dense
	tilt.Mul(Rx(i), Rz(ω))
	m.Mul(Rz(Ω), &tilt)
	return &m
}

// Rotate applies the 3x3 matrix m to p. There is no dimension check.
func Rotate(m mat.Matrix, p Position) Position {
	var out mat.VecDense
	out.MulVec(m, mat.NewVecDense(3, []float64{p.X, p.Y, p.Z}))
	return Position{X: out.AtVec(0), Y: out.AtVec(1), Z: out.AtVec(2)}
}
