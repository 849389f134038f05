package api

import (
	"net/http"

	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/sim"
)

// intersectionsHandler serves the held intersection set, or recomputes it
// for a custom ?threshold in metres.
func intersectionsHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenario := engine.Scenario()
		defaultThreshold := scenario.Predictor().Threshold
		threshold, err := queryFloat(r, "threshold", defaultThreshold)
		if err != nil || threshold <= 0 {
			writeError(w, http.StatusBadRequest, "threshold must be a positive number of metres")
			return
		}

		var points []orbit.Position
		if threshold == defaultThreshold {
			points = scenario.Intersections()
		} else {
			p1, _ := scenario.Path(sim.Sat1)
			p2, _ := scenario.Path(sim.Sat2)
			points = conjunction.Intersect(p1, p2, threshold)
		}
		if points == nil {
			points = []orbit.Position{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"threshold":     threshold,
			"count":         len(points),
			"intersections": points,
		})
	}
}

type collisionResponse struct {
	conjunction.Prediction
	CurrentTime float64  `json:"current_time"`
	TimeWindow  float64  `json:"time_window"`
	TimeUntil   *float64 `json:"time_until,omitempty"`
}

// collisionHandler runs a one-off prediction. It does not replace the
// prediction the simulation holds.
func collisionHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scenario := engine.Scenario()
		window, err := queryFloat(r, "window", scenario.Predictor().TimeWindow)
		if err != nil || window <= 0 {
			writeError(w, http.StatusBadRequest, "window must be a positive number of seconds")
			return
		}
		current, err := queryFloat(r, "current", engine.Clock().Now())
		if err != nil || current < 0 {
			writeError(w, http.StatusBadRequest, "current must be a non-negative number of seconds")
			return
		}

		resp := collisionResponse{CurrentTime: current, TimeWindow: window}
		if p := scenario.Forecast(r.Context(), current, window); p != nil {
			resp.Prediction = *p
			until := p.TimeToCollision - current
			resp.TimeUntil = &until
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cacheStatsHandler(paths *cache.PathCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, paths.Stats())
	}
}
