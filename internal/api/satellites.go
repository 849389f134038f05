package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/star/orbitalator/internal/geodesy"
	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/tle"
)

const (
	maxPathPoints = 10000
	fetchTimeout  = 15 * time.Second
)

type satelliteResponse struct {
	sim.Satellite
	Time     float64          `json:"time"`
	At       time.Time        `json:"at"`
	Position orbit.Position   `json:"position"`
	Velocity orbit.Velocity   `json:"velocity"`
	SubPoint geodesy.Geodetic `json:"sub_point"`
	Sunlit   bool             `json:"sunlit"`
}

// satelliteAt evaluates s at simulated time t. at is the calendar instant of
// t, used to place the satellite over the rotating Earth.
func satelliteAt(s sim.Satellite, t float64, at time.Time) satelliteResponse {
	pos := orbit.Current(s.Elements, t)
	return satelliteResponse{
		Satellite: s,
		Time:      t,
		At:        at,
		Position:  pos,
		Velocity:  orbit.VelocityAt(s.Elements, t, s.Elements.MeanAnomaly),
		SubPoint:  geodesy.SubPoint(pos, at),
		Sunlit:    geodesy.Sunlit(pos, at),
	}
}

// satID resolves the {sat} path value, writing a 404 when it is unknown.
func satID(w http.ResponseWriter, r *http.Request) (sim.SatID, bool) {
	id, err := sim.ParseSatID(r.PathValue("sat"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return 0, false
	}
	return id, true
}

func listSatellitesHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t := engine.Clock().Now()
		sats := engine.Scenario().Satellites()
		out := make([]satelliteResponse, len(sats))
		for i, s := range sats {
			out[i] = satelliteAt(s, t, engine.At(t))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"preset":     engine.Scenario().Preset(),
			"time":       t,
			"satellites": out,
		})
	}
}

func getSatelliteHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := satID(w, r)
		if !ok {
			return
		}
		s, err := engine.Scenario().Satellite(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		t := engine.Clock().Now()
		writeJSON(w, http.StatusOK, satelliteAt(s, t, engine.At(t)))
	}
}

type updateResponse struct {
	Satellite    sim.Satellite `json:"satellite"`
	ShapeChanged bool          `json:"shape_changed"`
}

// patchSatelliteHandler applies a partial element edit. Values are clamped to
// the edit ranges; a change of shape forces a collision re-check.
func patchSatelliteHandler(logger *slog.Logger, engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := satID(w, r)
		if !ok {
			return
		}
		var patch sim.ElementsPatch
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		s, shapeChanged, err := engine.Scenario().Update(r.Context(), id, patch)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if shapeChanged {
			engine.Clock().ForceCheck()
		}
		logger.Debug("satellite edited", "component", "api", "sat", int(id), "shape_changed", shapeChanged)
		writeJSON(w, http.StatusOK, updateResponse{Satellite: s, ShapeChanged: shapeChanged})
	}
}

type tleRequest struct {
	NORADID int    `json:"norad_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
}

type importResponse struct {
	Satellite    sim.Satellite `json:"satellite"`
	Import       tle.Import    `json:"import"`
	ShapeChanged bool          `json:"shape_changed"`
}

// importTLEHandler replaces a satellite's orbit with one derived from a TLE.
// The body is either raw TLE text or JSON naming a NORAD id to fetch or
// carrying the two lines.
func importTLEHandler(logger *slog.Logger, engine *sim.Engine, fetcher *tle.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := satID(w, r)
		if !ok {
			return
		}

		entry, status, err := readTLE(w, r, logger, fetcher)
		if err != nil {
			metrics.IncTLEImports("error")
			writeError(w, status, err.Error())
			return
		}

		imp, err := tle.ToElements(entry)
		if err != nil {
			metrics.IncTLEImports("error")
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}

		s, shapeChanged, err := engine.Scenario().Replace(r.Context(), id, imp.Elements)
		if err != nil {
			metrics.IncTLEImports("error")
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		engine.Clock().ForceCheck()
		metrics.IncTLEImports("ok")

		logger.Info("tle imported",
			"component", "api",
			"sat", int(id),
			"norad_id", entry.NORADID,
			"name", entry.Name,
			"epoch", imp.Epoch,
		)
		writeJSON(w, http.StatusOK, importResponse{Satellite: s, Import: imp, ShapeChanged: shapeChanged})
	}
}

// readTLE extracts one TLE entry from the request, returning the HTTP status
// to report on failure.
func readTLE(w http.ResponseWriter, r *http.Request, logger *slog.Logger, fetcher *tle.Fetcher) (tle.Entry, int, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return tle.Entry{}, http.StatusBadRequest, fmt.Errorf("reading body: %w", err)
		}
		entry, err := tle.ParseOne(bytes.NewReader(body), logger)
		if err != nil {
			return tle.Entry{}, http.StatusBadRequest, err
		}
		return entry, http.StatusOK, nil
	}

	var req tleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return tle.Entry{}, http.StatusBadRequest, err
	}

	switch {
	case req.Line1 != "" || req.Line2 != "":
		text := req.Line1 + "\n" + req.Line2 + "\n"
		if req.Name != "" {
			text = req.Name + "\n" + text
		}
		entry, err := tle.ParseOne(strings.NewReader(text), logger)
		if err != nil {
			return tle.Entry{}, http.StatusBadRequest, err
		}
		return entry, http.StatusOK, nil

	case req.NORADID > 0:
		if fetcher == nil {
			return tle.Entry{}, http.StatusServiceUnavailable, errors.New("TLE fetching is disabled")
		}
		ctx, cancel := context.WithTimeout(r.Context(), fetchTimeout)
		defer cancel()
		entry, err := fetcher.Lookup(ctx, req.NORADID)
		if errors.Is(err, tle.ErrNoEntries) {
			return tle.Entry{}, http.StatusNotFound, err
		}
		if err != nil {
			return tle.Entry{}, http.StatusBadGateway, err
		}
		return entry, http.StatusOK, nil
	}

	return tle.Entry{}, http.StatusBadRequest, errors.New("body must carry norad_id or line1 and line2")
}

func positionHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := satID(w, r)
		if !ok {
			return
		}
		t, err := queryFloat(r, "t", engine.Clock().Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s, err := engine.Scenario().Satellite(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		resp := satelliteAt(s, t, engine.At(t))
		writeJSON(w, http.StatusOK, map[string]any{
			"id":        id,
			"time":      t,
			"position":  resp.Position,
			"velocity":  resp.Velocity,
			"sub_point": resp.SubPoint,
			"sunlit":    resp.Sunlit,
		})
	}
}

// pathHandler returns the sampled closed path. Without ?points the cached
// display path is served.
func pathHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := satID(w, r)
		if !ok {
			return
		}
		points, err := queryInt(r, "points", 0, 1, maxPathPoints)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		var path orbit.Path
		if points == 0 {
			path, err = engine.Scenario().Path(id)
		} else {
			var s sim.Satellite
			s, err = engine.Scenario().Satellite(id)
			path = orbit.SamplePath(s.Elements, points)
		}
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":     id,
			"points": len(path),
			"path":   path,
		})
	}
}

// lookHandler reports where a ground observer at ?lat, ?lon (degrees) and
// ?alt (metres) sees the satellite at ?t.
func lookHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := satID(w, r)
		if !ok {
			return
		}
		observer, err := queryObserver(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err := queryFloat(r, "t", engine.Clock().Now())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s, err := engine.Scenario().Satellite(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		at := engine.At(t)
		fixed := geodesy.ToFixed(orbit.Current(s.Elements, t), at)
		writeJSON(w, http.StatusOK, map[string]any{
			"id":       id,
			"time":     t,
			"at":       at,
			"observer": observer,
			"look":     geodesy.Look(observer, fixed),
		})
	}
}
