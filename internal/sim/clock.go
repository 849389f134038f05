// Package sim owns the live simulation: the clock, the two-satellite
// scenario being edited, and the engine loop that advances one and
// re-evaluates the other.
package sim

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/star/orbitalator/internal/orbit"
)

const (
	// DefaultSpeed is the default simulated seconds per wall-clock second.
	DefaultSpeed = 100.0
	// JumpStep is the size of a single forward or back jump, in seconds.
	JumpStep = 600.0
	// checkEvery is the wall-clock time between collision re-checks.
	checkEvery = time.Second
	// nextCollisionLead is how far before a predicted event the clock lands
	// when jumping to it.
	nextCollisionLead = 10.0
)

// ErrInvalidSpeed is returned for a non-finite speed multiplier.
var ErrInvalidSpeed = errors.New("speed must be a finite number")

// ClockState is a point-in-time view of the clock.
type ClockState struct {
	Time      float64 `json:"time"`
	Speed     float64 `json:"speed"`
	Paused    bool    `json:"paused"`
	Formatted string  `json:"formatted"`
	Progress  float64 `json:"progress"`
	Duration  float64 `json:"duration"`
}

// Clock is the simulation clock. Simulated time advances by wall-clock delta
// times speed and wraps within [0, duration]: running past the end restarts
// at zero and stepping below zero lands on the end.
// Safe for concurrent use.
type Clock struct {
	mu         sync.Mutex
	time       float64
	speed      float64
	paused     bool
	duration   float64
	sinceCheck time.Duration
}

// NewClock returns a running clock at T+0 with the given speed.
// A speed of zero selects DefaultSpeed.
func NewClock(speed float64) *Clock {
	if speed == 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = DefaultSpeed
	}
	return &Clock{speed: speed, duration: orbit.SimulationDuration}
}

// Advance moves the clock forward by a wall-clock delta and reports whether a
// collision re-check is due. Paused clocks do not move, but the check cadence
// keeps running.
func (c *Clock) Advance(delta time.Duration) (checkDue bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.paused {
		c.time += delta.Seconds() * c.speed
	}
	c.wrap()

	c.sinceCheck += delta
	if c.sinceCheck > checkEvery {
		c.sinceCheck = 0
		return true
	}
	return false
}

func (c *Clock) wrap() {
	if c.time > c.duration {
		c.time = 0
	}
	if c.time < 0 {
		c.time = c.duration
	}
}

// ForceCheck makes the next Advance report a re-check as due.
func (c *Clock) ForceCheck() {
	c.mu.Lock()
	c.sinceCheck = checkEvery + time.Millisecond
	c.mu.Unlock()
}

// Now returns the current simulated time in seconds.
func (c *Clock) Now() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.time
}

func (c *Clock) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

func (c *Clock) Play() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
}

// Toggle flips the paused state and returns the new one.
func (c *Clock) Toggle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	return c.paused
}

// Jump moves the clock by seconds, wrapping as Advance does.
func (c *Clock) Jump(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time += seconds
	c.wrap()
}

// Set moves the clock to t, clamped to [0, duration].
func (c *Clock) Set(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.time = math.Max(0, math.Min(t, c.duration))
}

// Reset returns the clock to T+0 without changing speed or pause state.
func (c *Clock) Reset() {
	c.mu.Lock()
	c.time = 0
	c.mu.Unlock()
}

// SetSpeed changes the speed multiplier. Negative speeds run time backwards.
func (c *Clock) SetSpeed(speed float64) error {
	if math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}
	c.mu.Lock()
	c.speed = speed
	c.mu.Unlock()
	return nil
}

// State returns a snapshot of the clock.
func (c *Clock) State() ClockState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ClockState{
		Time:      c.time,
		Speed:     c.speed,
		Paused:    c.paused,
		Formatted: FormatElapsed(c.time),
		Progress:  c.time / c.duration * 100,
		Duration:  c.duration,
	}
}

// FormatElapsed renders simulated seconds as "T+ 1h 2m 3s".
func FormatElapsed(t float64) string {
	hours := math.Floor(t / 3600)
	minutes := math.Floor(math.Mod(t, 3600) / 60)
	seconds := math.Floor(math.Mod(t, 60))
	return fmt.Sprintf("T+ %.0fh %.0fm %.0fs", hours, minutes, seconds)
}
