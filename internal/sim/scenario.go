package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/presets"
)

var tracer = otel.Tracer("github.com/star/orbitalator/internal/sim")

var (
	// ErrUnknownSatellite is returned for a satellite id other than 1 or 2.
	ErrUnknownSatellite = errors.New("unknown satellite")
	// ErrInvalidElements is returned when an element set cannot describe a
	// closed orbit.
	ErrInvalidElements = errors.New("invalid orbital elements")
)

// Edit ranges applied to element updates. Values outside are clamped.
const (
	MinSemiMajorAxis = 6500e3
	MaxSemiMajorAxis = 50000e3
	MaxEccentricity  = 0.99
)

// SatID identifies one of the two satellites.
type SatID int

const (
	Sat1 SatID = 1
	Sat2 SatID = 2
)

// ParseSatID converts "1" or "2" to a SatID.
func ParseSatID(s string) (SatID, error) {
	switch s {
	case "1":
		return Sat1, nil
	case "2":
		return Sat2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSatellite, s)
}

func (id SatID) index() (int, error) {
	if id != Sat1 && id != Sat2 {
		return 0, fmt.Errorf("%w: %d", ErrUnknownSatellite, int(id))
	}
	return int(id) - 1, nil
}

// ElementsPatch is a partial element update. Nil fields are left unchanged.
type ElementsPatch struct {
	SemiMajorAxis    *float64 `json:"semi_major_axis,omitempty"`
	Eccentricity     *float64 `json:"eccentricity,omitempty"`
	Inclination      *float64 `json:"inclination,omitempty"`
	LonAscendingNode *float64 `json:"lon_ascending_node,omitempty"`
	ArgPerigee       *float64 `json:"arg_perigee,omitempty"`
	MeanAnomaly      *float64 `json:"mean_anomaly,omitempty"`
}

// Apply returns el with the patch applied and every patched value clamped to
// its edit range. NaN values keep the current value.
func (p ElementsPatch) Apply(el orbit.Elements) orbit.Elements {
	set := func(dst *float64, v *float64, lo, hi float64) {
		if v == nil || math.IsNaN(*v) {
			return
		}
		*dst = math.Max(lo, math.Min(*v, hi))
	}
	set(&el.SemiMajorAxis, p.SemiMajorAxis, MinSemiMajorAxis, MaxSemiMajorAxis)
	set(&el.Eccentricity, p.Eccentricity, 0, MaxEccentricity)
	set(&el.Inclination, p.Inclination, 0, math.Pi)
	set(&el.LonAscendingNode, p.LonAscendingNode, 0, 2*math.Pi)
	set(&el.ArgPerigee, p.ArgPerigee, 0, 2*math.Pi)
	set(&el.MeanAnomaly, p.MeanAnomaly, 0, 2*math.Pi)
	return el
}

// Validate checks that el describes a closed, non-degenerate orbit.
func Validate(el orbit.Elements) error {
	switch {
	case math.IsNaN(el.SemiMajorAxis) || el.SemiMajorAxis <= 0:
		return fmt.Errorf("%w: semi-major axis must be positive", ErrInvalidElements)
	case math.IsNaN(el.Eccentricity) || el.Eccentricity < 0 || el.Eccentricity >= 1:
		return fmt.Errorf("%w: eccentricity %v outside [0, 1)", ErrInvalidElements, el.Eccentricity)
	}
	return nil
}

// Satellite is a view of one satellite for API responses.
type Satellite struct {
	ID       SatID          `json:"id"`
	Elements orbit.Elements `json:"elements"`
	Period   float64        `json:"period"`
	Apogee   float64        `json:"apogee"`
	Perigee  float64        `json:"perigee"`
}

// Scenario holds the two satellites being simulated, their sampled paths, the
// current intersection set and the latest collision prediction. Paths and
// intersections are recomputed only when a satellite's shape changes.
// Safe for concurrent use.
type Scenario struct {
	mu            sync.RWMutex
	sats          [2]orbit.Elements
	paths         [2]orbit.Path
	preset        string
	intersections []orbit.Position
	prediction    *conjunction.Prediction
	loaded        bool

	predictor conjunction.Predictor
	pathCache *cache.PathCache
	logger    *slog.Logger
}

// NewScenario creates an empty scenario. Call Load before use.
func NewScenario(predictor conjunction.Predictor, paths *cache.PathCache, logger *slog.Logger) *Scenario {
	return &Scenario{
		predictor: predictor,
		pathCache: paths,
		logger:    logger,
	}
}

// Predictor returns the scenario's prediction tunables.
func (s *Scenario) Predictor() conjunction.Predictor {
	return s.predictor
}

// Loaded reports whether a preset or element pair has been loaded.
func (s *Scenario) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Load replaces both satellites with a preset.
func (s *Scenario) Load(ctx context.Context, p presets.Preset) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidElements, err)
	}

	s.mu.Lock()
	s.sats = [2]orbit.Elements{p.Sat1, p.Sat2}
	s.preset = p.Name
	s.loaded = true
	s.refreshLocked(ctx, true, true)
	s.mu.Unlock()

	s.logger.Info("scenario loaded", "preset", p.Name, "sat1", p.Sat1.String(), "sat2", p.Sat2.String())
	return nil
}

// Satellite returns one satellite's current state.
func (s *Scenario) Satellite(id SatID) (Satellite, error) {
	i, err := id.index()
	if err != nil {
		return Satellite{}, err
	}
	s.mu.RLock()
	el := s.sats[i]
	s.mu.RUnlock()
	return satelliteView(id, el), nil
}

// Satellites returns both satellites.
func (s *Scenario) Satellites() []Satellite {
	a, b := s.Elements()
	return []Satellite{satelliteView(Sat1, a), satelliteView(Sat2, b)}
}

func satelliteView(id SatID, el orbit.Elements) Satellite {
	return Satellite{
		ID:       id,
		Elements: el,
		Period:   el.Period(),
		Apogee:   el.Apogee(),
		Perigee:  el.Perigee(),
	}
}

// Elements returns value snapshots of both element sets.
func (s *Scenario) Elements() (orbit.Elements, orbit.Elements) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sats[0], s.sats[1]
}

// Preset returns the name of the last loaded preset, or "custom" once an
// element has been edited.
func (s *Scenario) Preset() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preset
}

// Update applies a clamped partial update to one satellite. It reports whether
// the orbit's shape changed, in which case the path and the intersection set
// have already been refreshed. A phase-only change leaves both untouched.
func (s *Scenario) Update(ctx context.Context, id SatID, patch ElementsPatch) (Satellite, bool, error) {
	i, err := id.index()
	if err != nil {
		return Satellite{}, false, err
	}

	s.mu.Lock()
	el := patch.Apply(s.sats[i])
	shapeChanged := s.replaceLocked(ctx, i, el)
	s.mu.Unlock()

	s.logger.Debug("satellite updated", "sat", int(id), "elements", el.String(), "shape_changed", shapeChanged)
	return satelliteView(id, el), shapeChanged, nil
}

// Replace sets one satellite's elements verbatim, without edit-range clamping.
// Used for imported orbits. The elements must still describe a closed orbit.
func (s *Scenario) Replace(ctx context.Context, id SatID, el orbit.Elements) (Satellite, bool, error) {
	i, err := id.index()
	if err != nil {
		return Satellite{}, false, err
	}
	if err := Validate(el); err != nil {
		return Satellite{}, false, err
	}

	s.mu.Lock()
	shapeChanged := s.replaceLocked(ctx, i, el)
	s.mu.Unlock()

	s.logger.Info("satellite replaced", "sat", int(id), "elements", el.String())
	return satelliteView(id, el), shapeChanged, nil
}

// replaceLocked stores el for satellite i and refreshes derived state if its
// shape changed. Caller holds mu.
func (s *Scenario) replaceLocked(ctx context.Context, i int, el orbit.Elements) bool {
	shapeChanged := s.sats[i].Shape() != el.Shape()
	if s.sats[i] != el {
		s.preset = "custom"
	}
	s.sats[i] = el
	s.loaded = true
	if shapeChanged {
		s.refreshLocked(ctx, i == 0, i == 1)
	}
	return shapeChanged
}

// refreshLocked resamples the requested paths and recomputes the
// intersection set. Caller holds mu.
func (s *Scenario) refreshLocked(ctx context.Context, first, second bool) {
	_, span := tracer.Start(ctx, "scenario.refresh")
	defer span.End()

	if first {
		s.paths[0] = s.pathCache.Path(s.sats[0])
	}
	if second {
		s.paths[1] = s.pathCache.Path(s.sats[1])
	}
	s.intersections = conjunction.Intersect(s.paths[0], s.paths[1], s.predictor.Threshold)
	metrics.SetIntersections(len(s.intersections))

	span.SetAttributes(attribute.Int("intersections", len(s.intersections)))
	s.logger.Debug("intersections refreshed", "count", len(s.intersections))
}

// Path returns the cached sampled path of one satellite.
func (s *Scenario) Path(id SatID) (orbit.Path, error) {
	i, err := id.index()
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths[i], nil
}

// Intersections returns the current display intersection set.
func (s *Scenario) Intersections() []orbit.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orbit.Position, len(s.intersections))
	copy(out, s.intersections)
	return out
}

// Positions returns both satellites' positions at simulated time t.
func (s *Scenario) Positions(t float64) (orbit.Position, orbit.Position) {
	a, b := s.Elements()
	return orbit.Current(a, t), orbit.Current(b, t)
}

// Predict runs a collision prediction from currentTime with the given time
// window (<= 0 selects the predictor's default), holds the result as the
// latest prediction and returns it.
func (s *Scenario) Predict(ctx context.Context, currentTime, window float64) *conjunction.Prediction {
	pred, a, b := s.forecast(ctx, "scenario", currentTime, window)

	s.mu.Lock()
	// Drop the result if an edit landed while predicting.
	if s.sats[0] == a && s.sats[1] == b {
		s.prediction = pred
	}
	s.mu.Unlock()

	return pred
}

// Forecast is Predict without replacing the held prediction.
func (s *Scenario) Forecast(ctx context.Context, currentTime, window float64) *conjunction.Prediction {
	pred, _, _ := s.forecast(ctx, "api", currentTime, window)
	return pred
}

func (s *Scenario) forecast(ctx context.Context, source string, currentTime, window float64) (*conjunction.Prediction, orbit.Elements, orbit.Elements) {
	_, span := tracer.Start(ctx, "scenario.predict")
	defer span.End()

	s.mu.RLock()
	a, b := s.sats[0], s.sats[1]
	pa, pb := s.paths[0], s.paths[1]
	s.mu.RUnlock()

	p := s.predictor
	if window > 0 {
		p.TimeWindow = window
	}

	start := time.Now()
	var pred *conjunction.Prediction
	if len(pa) == p.SamplePoints+1 && len(pb) == p.SamplePoints+1 {
		pred = p.PredictPaths(a, b, pa, pb, currentTime)
	} else {
		pred = p.Predict(a, b, currentTime)
	}
	metrics.ObservePrediction(source, time.Since(start), pred != nil)
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Float64("current_time", currentTime),
		attribute.Bool("collision", pred != nil),
	)
	return pred, a, b
}

// Prediction returns the latest held prediction, or nil.
func (s *Scenario) Prediction() *conjunction.Prediction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prediction
}
