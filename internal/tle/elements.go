package tle

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/star/orbitalator/internal/orbit"
)

// Import is a TLE converted to the osculating Keplerian elements at its epoch.
// Elements are expressed in the TEME frame, which the simulation treats as
// its inertial frame.
type Import struct {
	Entry    Entry          `json:"entry"`
	Elements orbit.Elements `json:"elements"`
	Epoch    time.Time      `json:"epoch"`
	EpochJD  float64        `json:"epoch_jd"`
}

// ToElements initialises SGP4 from e, propagates it to the TLE epoch and
// converts the resulting state vector to Keplerian elements.
//
// go-satellite calls log.Fatal on malformed input, so the lines are checked
// before they reach it.
func ToElements(e Entry) (Import, error) {
	if err := validateTLELines(e.Line1, e.Line2); err != nil {
		return Import{}, fmt.Errorf("invalid TLE for NORAD %d: %w", e.NORADID, err)
	}

	sat := satellite.TLEToSat(strings.TrimSpace(e.Line1), strings.TrimSpace(e.Line2), satellite.GravityWGS84)
	if sat.Error != 0 {
		return Import{}, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", e.NORADID, sat.Error, sat.ErrorStr)
	}

	// Propagate takes whole seconds.
	at := e.Epoch.UTC().Truncate(time.Second)
	pos, vel := satellite.Propagate(sat, at.Year(), int(at.Month()), at.Day(), at.Hour(), at.Minute(), at.Second())

	if !finite(pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z) {
		return Import{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", e.NORADID)
	}
	mag := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if mag < 6200.0 || mag > 50000.0 {
		return Import{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", e.NORADID, mag)
	}

	// go-satellite works in km and km/s.
	r := r3.Vec{X: pos.X * 1000, Y: pos.Y * 1000, Z: pos.Z * 1000}
	v := r3.Vec{X: vel.X * 1000, Y: vel.Y * 1000, Z: vel.Z * 1000}
	el := orbit.FromStateVector(r, v)
	if el.Degenerate() || el.Eccentricity >= 1 {
		return Import{}, fmt.Errorf("NORAD %d: state vector does not describe a closed orbit (a=%.1f km, e=%.4f)",
			e.NORADID, el.SemiMajorAxis/1000, el.Eccentricity)
	}

	return Import{
		Entry:    e,
		Elements: el,
		Epoch:    at,
		EpochJD:  julian.TimeToJD(at),
	}, nil
}

// validateTLELines performs basic format validation on TLE lines.
func validateTLELines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
