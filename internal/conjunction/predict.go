package conjunction

import (
	"math"

	"github.com/star/orbitalator/internal/orbit"
)

const (
	// DefaultWideThreshold widens the intersection search used for prediction
	// to catch marginal approaches the coarse time grid would miss.
	DefaultWideThreshold = 200e3
	// DefaultTimeWindow is the largest gap in seconds between the two
	// satellites' passes that still counts as a collision.
	DefaultTimeWindow = 120.0
)

// Prediction is the earliest predicted near-simultaneous occupation of an
// intersection region. TimeToCollision is the absolute simulation time of the
// event, the midpoint of the two passes.
type Prediction struct {
	WillCollide     bool           `json:"will_collide"`
	TimeToCollision float64        `json:"time_to_collision"`
	Location        orbit.Position `json:"location"`
	TimeDifference  float64        `json:"time_difference"`
}

// Predictor holds the tunables of the intersection search and collision
// prediction. The zero value is not useful; start from DefaultPredictor.
type Predictor struct {
	Threshold       float64 // display intersection threshold, metres
	WideThreshold   float64 // prediction intersection threshold, metres
	TimeWindow      float64 // seconds
	Horizon         float64 // seconds of simulated time searched
	SamplePoints    int     // path segments per period
	ApproachSamples int     // time-of-approach grid steps per period
}

// DefaultPredictor returns a Predictor with the standard tuning.
func DefaultPredictor() Predictor {
	return Predictor{
		Threshold:       DefaultThreshold,
		WideThreshold:   DefaultWideThreshold,
		TimeWindow:      DefaultTimeWindow,
		Horizon:         orbit.SimulationDuration,
		SamplePoints:    orbit.DefaultPathPoints,
		ApproachSamples: DefaultApproachSamples,
	}
}

// PredictCollision returns the earliest collision at or after currentTime
// within the simulation horizon, or nil when none is predicted.
// timeWindow <= 0 selects DefaultTimeWindow.
func PredictCollision(a, b orbit.Elements, timeWindow, currentTime float64) *Prediction {
	p := DefaultPredictor()
	if timeWindow > 0 {
		p.TimeWindow = timeWindow
	}
	return p.Predict(a, b, currentTime)
}

// Intersections returns the display intersection set for two orbits.
func (p Predictor) Intersections(a, b orbit.Elements) []orbit.Position {
	return Intersect(orbit.SamplePath(a, p.SamplePoints), orbit.SamplePath(b, p.SamplePoints), p.Threshold)
}

// Predict samples both orbits and predicts the earliest collision at or after
// currentTime.
func (p Predictor) Predict(a, b orbit.Elements, currentTime float64) *Prediction {
	return p.PredictPaths(a, b, orbit.SamplePath(a, p.SamplePoints), orbit.SamplePath(b, p.SamplePoints), currentTime)
}

// PredictPaths is Predict for callers that already hold the sampled paths of a
// and b.
func (p Predictor) PredictPaths(a, b orbit.Elements, pa, pb orbit.Path, currentTime float64) *Prediction {
	points := Intersect(pa, pb, p.WideThreshold)
	if len(points) == 0 {
		return nil
	}

	periodA, periodB := a.Period(), b.Period()
	var best *Prediction
	for _, point := range points {
		firstA := firstPass(a, timeOfClosestApproach(a, point, p.ApproachSamples))
		firstB := firstPass(b, timeOfClosestApproach(b, point, p.ApproachSamples))

		c, ok := p.earliest(firstA, periodA, firstB, periodB, currentTime)
		if !ok {
			continue
		}
		if best == nil || c.at < best.TimeToCollision {
			best = &Prediction{
				WillCollide:     true,
				TimeToCollision: c.at,
				Location:        point,
				TimeDifference:  c.gap,
			}
		}
	}
	return best
}

type candidate struct {
	at  float64
	gap float64
}

// maxPassesPerRegion bounds the passes of satellite A examined per region.
// It only binds for periods under about 1.3 s, far inside the Earth.
const maxPassesPerRegion = 1 << 17

// earliest walks satellite A's passes through a region from currentTime on and
// pairs each with the nearest passes of satellite B.
func (p Predictor) earliest(firstA, periodA, firstB, periodB, currentTime float64) (candidate, bool) {
	var (
		best  candidate
		found bool
	)
	start := 0
	if currentTime > firstA {
		start = int(math.Ceil((currentTime - firstA) / periodA))
	}
	limit := p.Horizon/periodA + 2
	for i := start; i < start+maxPassesPerRegion && float64(i) < limit; i++ {
		timeA := firstA + float64(i)*periodA
		if timeA < currentTime {
			continue
		}
		if timeA > p.Horizon {
			break
		}
		// Later passes of A can only pair at or after timeA - TimeWindow/2.
		if found && timeA-p.TimeWindow/2 > best.at {
			break
		}

		closest := int(math.Round((timeA - firstB) / periodB))
		for j := closest - 1; j <= closest+1; j++ {
			if j < 0 {
				continue
			}
			timeB := firstB + float64(j)*periodB
			if timeB > p.Horizon {
				continue
			}
			gap := math.Abs(timeA - timeB)
			if gap >= p.TimeWindow {
				continue
			}
			at := (timeA + timeB) / 2
			if at < currentTime {
				continue
			}
			if !found || at < best.at {
				best, found = candidate{at: at, gap: gap}, true
			}
		}
	}
	return best, found
}

// firstPass shifts a time resolved on the zero-phase path by the satellite's
// starting phase and wraps it into [0, T).
func firstPass(el orbit.Elements, resolved float64) float64 {
	period := el.Period()
	offset := el.NormalizedMeanAnomaly() / (2 * math.Pi) * period
	t := math.Mod(resolved-offset, period)
	if t < 0 {
		t += period
	}
	return t
}
