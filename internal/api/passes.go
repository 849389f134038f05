package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/star/orbitalator/internal/geodesy"
	"github.com/star/orbitalator/internal/passes"
	"github.com/star/orbitalator/internal/sim"
)

const (
	defaultPassHours = 24
	maxPassHours     = 168
	defaultMaxPasses = 10
)

// queryObserver reads a ground observer from ?lat and ?lon (degrees, both
// required) and ?alt (metres).
func queryObserver(r *http.Request) (geodesy.Geodetic, error) {
	lat, err := queryFloat(r, "lat", math.NaN())
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return geodesy.Geodetic{}, errors.New("lat is required, in degrees within [-90, 90]")
	}
	lon, err := queryFloat(r, "lon", math.NaN())
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return geodesy.Geodetic{}, errors.New("lon is required, in degrees within [-180, 180]")
	}
	alt, err := queryFloat(r, "alt", 0)
	if err != nil {
		return geodesy.Geodetic{}, err
	}
	return geodesy.Geodetic{LatDeg: lat, LonDeg: lon, AltM: alt}, nil
}

// passesHandler predicts when both satellites rise over an observer, searching
// ?hours ahead of ?start (default: the clock) for passes above ?min_elevation.
func passesHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		observer, err := queryObserver(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		start, err := queryFloat(r, "start", engine.Clock().Now())
		if err != nil || start < 0 {
			writeError(w, http.StatusBadRequest, "start must be a non-negative number of seconds")
			return
		}
		hours, err := queryFloat(r, "hours", defaultPassHours)
		if err != nil || hours <= 0 || hours > maxPassHours {
			writeError(w, http.StatusBadRequest, "hours must be within (0, 168]")
			return
		}
		minElev, err := queryFloat(r, "min_elevation", 0)
		if err != nil || minElev < 0 || minElev >= 90 {
			writeError(w, http.StatusBadRequest, "min_elevation must be within [0, 90)")
			return
		}
		maxPasses, err := queryInt(r, "max_passes", defaultMaxPasses, 1, 100)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, span := tracer.Start(r.Context(), "passes.Predict")
		defer span.End()

		sats := engine.Scenario().Satellites()
		targets := make([]passes.Target, 0, len(sats))
		for _, s := range sats {
			targets = append(targets, passes.Target{ID: int(s.ID), Elements: s.Elements})
		}

		results := passes.Predict(ctx, passes.Request{
			Observer:     observer,
			Targets:      targets,
			Epoch:        engine.Epoch(),
			Start:        start,
			Horizon:      hours * 3600,
			MinElevation: minElev,
			MaxPasses:    maxPasses,
		})

		writeJSON(w, http.StatusOK, map[string]any{
			"observer":      observer,
			"start":         start,
			"hours":         hours,
			"min_elevation": minElev,
			"satellites":    results,
		})
	}
}
