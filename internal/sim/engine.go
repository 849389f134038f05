package sim

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soniakeys/meeus/v3/julian"

	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/geodesy"
	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/orbit"
)

// EngineConfig holds the simulation loop settings.
type EngineConfig struct {
	Tick        time.Duration // Wall-clock interval between frames (default: 50ms)
	CheckWindow float64       // Collision time window for periodic checks, seconds (default: 60)
	Epoch       time.Time     // Calendar time of T+0, used for frame Julian dates
}

// Frame is one published snapshot of the simulation.
type Frame struct {
	Type         string                  `json:"type"`
	Time         float64                 `json:"time"`
	Formatted    string                  `json:"formatted"`
	Progress     float64                 `json:"progress"`
	Speed        float64                 `json:"speed"`
	Paused       bool                    `json:"paused"`
	JulianDate   float64                 `json:"julian_date"`
	Preset       string                  `json:"preset"`
	Sat1         orbit.Position          `json:"sat1"`
	Sat2         orbit.Position          `json:"sat2"`
	Ground1      geodesy.Geodetic        `json:"ground1"`
	Ground2      geodesy.Geodetic        `json:"ground2"`
	Separation   float64                 `json:"separation"`
	Prediction   *conjunction.Prediction `json:"prediction,omitempty"`
	Alert        bool                    `json:"alert"`
	TimeToImpact float64                 `json:"time_to_impact,omitempty"`
}

// Engine advances the clock on a ticker, re-runs collision prediction once
// per wall-clock second and fans frames out to subscribers.
type Engine struct {
	clock    *Clock
	scenario *Scenario
	config   EngineConfig
	logger   *slog.Logger

	mu     sync.Mutex
	subs   map[chan Frame]struct{}
	latest atomic.Pointer[Frame]
	last   time.Time
}

// NewEngine creates an engine over a clock and a scenario.
func NewEngine(clock *Clock, scenario *Scenario, config EngineConfig, logger *slog.Logger) *Engine {
	if config.Tick <= 0 {
		config.Tick = 50 * time.Millisecond
	}
	if config.CheckWindow <= 0 {
		config.CheckWindow = 60
	}
	if config.Epoch.IsZero() {
		config.Epoch = time.Now().UTC()
	}
	return &Engine{
		clock:    clock,
		scenario: scenario,
		config:   config,
		logger:   logger,
		subs:     make(map[chan Frame]struct{}),
	}
}

// Clock returns the engine's clock.
func (e *Engine) Clock() *Clock { return e.clock }

// Scenario returns the engine's scenario.
func (e *Engine) Scenario() *Scenario { return e.scenario }

// Epoch returns the calendar time of T+0.
func (e *Engine) Epoch() time.Time { return e.config.Epoch }

// At returns the calendar instant of simulated time t.
func (e *Engine) At(t float64) time.Time {
	return e.config.Epoch.Add(time.Duration(t * float64(time.Second)))
}

// Run drives the simulation until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("simulation started",
		"tick_ms", e.config.Tick.Milliseconds(),
		"check_window_seconds", e.config.CheckWindow,
	)

	ticker := time.NewTicker(e.config.Tick)
	defer ticker.Stop()

	e.last = time.Now()
	e.clock.ForceCheck()

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("simulation stopped")
			e.closeSubscribers()
			return
		case now := <-ticker.C:
			delta := now.Sub(e.last)
			e.last = now
			e.Step(ctx, delta)
		}
	}
}

// Step advances the simulation by one wall-clock delta, runs a collision
// check if one is due, and publishes the resulting frame.
func (e *Engine) Step(ctx context.Context, delta time.Duration) Frame {
	if e.clock.Advance(delta) {
		e.Check(ctx)
	}
	f := e.frame()
	e.publish(f)
	return f
}

// Check runs a collision prediction from the current clock time.
func (e *Engine) Check(ctx context.Context) *conjunction.Prediction {
	if !e.scenario.Loaded() {
		return nil
	}
	return e.scenario.Predict(ctx, e.clock.Now(), e.config.CheckWindow)
}

// JumpToNextCollision moves the clock to shortly before the held prediction
// and resumes playback. It returns false when no collision is predicted.
func (e *Engine) JumpToNextCollision() (*conjunction.Prediction, bool) {
	p := e.scenario.Prediction()
	if p == nil || !p.WillCollide {
		return nil, false
	}
	e.clock.Set(p.TimeToCollision - nextCollisionLead)
	e.clock.Play()
	return p, true
}

// Latest returns the most recently published frame.
func (e *Engine) Latest() (Frame, bool) {
	f := e.latest.Load()
	if f == nil {
		return Frame{}, false
	}
	return *f, true
}

func (e *Engine) frame() Frame {
	cs := e.clock.State()
	at := e.At(cs.Time)
	p1, p2 := e.scenario.Positions(cs.Time)
	f := Frame{
		Type:       "frame",
		Time:       cs.Time,
		Formatted:  cs.Formatted,
		Progress:   cs.Progress,
		Speed:      cs.Speed,
		Paused:     cs.Paused,
		JulianDate: julian.TimeToJD(at),
		Preset:     e.scenario.Preset(),
		Sat1:       p1,
		Sat2:       p2,
		Ground1:    geodesy.SubPoint(p1, at),
		Ground2:    geodesy.SubPoint(p2, at),
		Separation: p1.Distance(p2),
		Prediction: e.scenario.Prediction(),
	}
	if f.Prediction != nil {
		lead := f.Prediction.TimeToCollision - cs.Time
		if lead >= 0 && lead <= e.config.CheckWindow {
			f.Alert = true
			f.TimeToImpact = lead
		}
	}
	metrics.SetSimState(cs.Time, cs.Speed, cs.Paused)
	return f
}

// Subscribe registers a frame listener. Frames are dropped for subscribers
// that fall behind. The returned function unsubscribes.
func (e *Engine) Subscribe(buffer int) (<-chan Frame, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Frame, buffer)

	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
			e.mu.Unlock()
		})
	}
}

func (e *Engine) publish(f Frame) {
	e.latest.Store(&f)

	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- f:
		default:
		}
	}
}

func (e *Engine) closeSubscribers() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		delete(e.subs, ch)
		close(ch)
	}
}
