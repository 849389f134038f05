package conjunction

import (
	"math"

	"github.com/star/orbitalator/internal/orbit"
)

// DefaultApproachSamples is the number of one-degree steps scanned per period.
const DefaultApproachSamples = 360

// TimeOfClosestApproach returns the time in [0, T] at which the orbit, sampled
// with zero mean anomaly at epoch, passes nearest to point. It is a grid search
// over DefaultApproachSamples+1 uniform samples and always returns the best
// sample, however far point is from the orbit. A degenerate orbit returns 0.
func TimeOfClosestApproach(el orbit.Elements, point orbit.Position) float64 {
	return timeOfClosestApproach(el, point, DefaultApproachSamples)
}

func timeOfClosestApproach(el orbit.Elements, point orbit.Position, samples int) float64 {
	path := orbit.SamplePath(el, samples)
	if len(path) == 0 {
		return 0
	}
	times := orbit.SampleTimes(el, samples)

	best, bestDist := 0, math.Inf(1)
	for i, p := range path {
		if d := p.Distance(point); d < bestDist {
			best, bestDist = i, d
		}
	}
	return times[best]
}
