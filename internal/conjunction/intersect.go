// Package conjunction finds where two Keplerian orbits come close in space
// and predicts when both satellites occupy such a region at the same time.
package conjunction

import "github.com/star/orbitalator/internal/orbit"

// DefaultThreshold is the display threshold for intersection regions, in metres.
const DefaultThreshold = 100e3

// FindIntersections samples both orbits with the default sample count and
// returns one representative point per region where the paths pass within
// threshold metres of each other. threshold <= 0 selects DefaultThreshold.
// Either orbit being degenerate yields no points.
func FindIntersections(a, b orbit.Elements, threshold float64) []orbit.Position {
	return Intersect(orbit.SamplePath(a, 0), orbit.SamplePath(b, 0), threshold)
}

// Intersect scans every pair of samples from two paths. A pair closer than
// threshold is a candidate whose midpoint is accepted unless it lies within
// 2×threshold of a point accepted earlier. Points are returned in the order
// they were accepted.
func Intersect(pa, pb orbit.Path, threshold float64) []orbit.Position {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	exclusion := 2 * threshold

	points := []orbit.Position{}
	for _, p := range pa {
		for _, q := range pb {
			if p.Distance(q) >= threshold {
				continue
			}
			mid := p.Midpoint(q)
			if near(points, mid, exclusion) {
				continue
			}
			points = append(points, mid)
		}
	}
	return points
}

func near(points []orbit.Position, p orbit.Position, radius float64) bool {
	for _, q := range points {
		if p.Distance(q) < radius {
			return true
		}
	}
	return false
}
