package orbit

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Position is a Cartesian vector in metres in the Earth-centred inertial frame:
// the equatorial plane is the fundamental plane, z is the polar axis and x is
// the reference direction at Ω = 0.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Origin is the fallback position of a degenerate orbit.
var Origin = Position{}

// Vec returns the position as a gonum vector.
func (p Position) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// FromVec converts a gonum vector to a Position.
func FromVec(v r3.Vec) Position {
	return Position{X: v.X, Y: v.Y, Z: v.Z}
}

// Norm returns the distance from the origin.
func (p Position) Norm() float64 {
	return r3.Norm(p.Vec())
}

// Distance returns the Euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	return r3.Norm(r3.Sub(p.Vec(), q.Vec()))
}

// Midpoint returns the point halfway between p and q.
func (p Position) Midpoint(q Position) Position {
	return FromVec(r3.Scale(0.5, r3.Add(p.Vec(), q.Vec())))
}

// String implements the stringer interface.
func (p Position) String() string {
	return fmt.Sprintf("(%.1f, %.1f, %.1f) km", p.X/1000, p.Y/1000, p.Z/1000)
}

// Path is a closed, ordered sequence of positions over one orbital period.
type Path []Position

// Closed reports whether the first and last samples coincide within tol metres.
func (p Path) Closed(tol float64) bool {
	if len(p) < 2 {
		return false
	}
	return p[0].Distance(p[len(p)-1]) <= tol
}

// Velocity is a Cartesian velocity in m/s in the same frame as Position.
type Velocity Position

// Speed returns the velocity magnitude.
func (v Velocity) Speed() float64 {
	return Position(v).Norm()
}
