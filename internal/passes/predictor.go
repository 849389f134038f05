// Package passes predicts when the simulated satellites rise above a ground
// observer's horizon.
package passes

import (
	"context"
	"errors"
	"runtime"
	"sync"
	"time"

	"github.com/star/orbitalator/internal/geodesy"
	"github.com/star/orbitalator/internal/orbit"
)

// GroundTrackPoint is a sub-satellite position at a specific time during a pass.
type GroundTrackPoint struct {
	Time float64 `json:"time"`
	geodesy.Geodetic
	Elevation float64 `json:"elevation"` // degrees above observer's horizon (0-90)
}

// PassEvent describes a single satellite pass over an observer location.
// Times are simulated seconds since T+0.
type PassEvent struct {
	StartTime        float64            `json:"start_time"`
	MaxElevationTime float64            `json:"max_elevation_time"`
	EndTime          float64            `json:"end_time"`
	StartAt          time.Time          `json:"start_at"`
	DurationSeconds  float64            `json:"duration_seconds"`
	MaxElevation     float64            `json:"max_elevation"`
	AzimuthAtMax     float64            `json:"azimuth_at_max"`
	StartAzimuth     float64            `json:"start_azimuth"`
	EndAzimuth       float64            `json:"end_azimuth"`
	GroundTrack      []GroundTrackPoint `json:"ground_track"`
}

// SatellitePasses holds the predicted passes for one satellite.
type SatellitePasses struct {
	ID     int         `json:"id"`
	Passes []PassEvent `json:"passes"`
	Error  string      `json:"error,omitempty"`
}

// Target is one satellite to predict passes for.
type Target struct {
	ID       int
	Elements orbit.Elements
}

// Request holds the parameters for a pass prediction request.
type Request struct {
	Observer     geodesy.Geodetic
	Targets      []Target
	Epoch        time.Time // calendar time of T+0
	Start        float64   // simulated seconds
	Horizon      float64   // seconds searched from Start
	MinElevation float64   // degrees
	MaxPasses    int
}

const (
	coarseStep      = 30.0 // seconds between coarse scan steps
	fineStep        = 1.0  // seconds between fine scan steps
	groundTrackStep = 10   // seconds between ground track samples
	minPassDuration = 10.0
)

var errDegenerate = errors.New("degenerate orbit")

// Predict computes passes for every target. Each target is processed in its
// own goroutine, bounded by a semaphore.
func Predict(ctx context.Context, req Request) []SatellitePasses {
	results := make([]SatellitePasses, len(req.Targets))
	sem := make(chan struct{}, runtime.NumCPU())
	var wg sync.WaitGroup

	for i, target := range req.Targets {
		wg.Add(1)
		go func(idx int, tg Target) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = SatellitePasses{ID: tg.ID, Error: "cancelled"}
				return
			}

			passes, err := predictTarget(ctx, req, tg.Elements)
			if err != nil {
				results[idx] = SatellitePasses{ID: tg.ID, Error: err.Error()}
				return
			}
			results[idx] = SatellitePasses{ID: tg.ID, Passes: passes}
		}(i, target)
	}

	wg.Wait()
	return results
}

type scanner struct {
	el       orbit.Elements
	observer geodesy.Geodetic
	epoch    time.Time
}

// look returns the look angles and the Earth-fixed satellite position at t.
func (s scanner) look(t float64) (geodesy.LookAngles, orbit.Position) {
	at := s.epoch.Add(time.Duration(t * float64(time.Second)))
	fixed := geodesy.ToFixed(orbit.Current(s.el, t), at)
	return geodesy.Look(s.observer, fixed), fixed
}

// predictTarget finds all passes for a single orbit.
func predictTarget(ctx context.Context, req Request, el orbit.Elements) ([]PassEvent, error) {
	if el.Degenerate() {
		return nil, errDegenerate
	}
	s := scanner{el: el, observer: req.Observer, epoch: req.Epoch}

	end := req.Start + req.Horizon
	passes := []PassEvent{}

	// Coarse scan: step through the window looking for elevation > 0.
	t := req.Start
	for t < end && len(passes) < req.MaxPasses {
		if ctx.Err() != nil {
			return passes, nil
		}

		la, _ := s.look(t)
		if la.ElevationDeg <= 0 {
			t += coarseStep
			continue
		}

		pass, windowEnd := s.refine(ctx, t, req.Start, end, req.MinElevation)
		if pass != nil && pass.DurationSeconds >= minPassDuration {
			pass.StartAt = req.Epoch.Add(time.Duration(pass.StartTime * float64(time.Second)))
			passes = append(passes, *pass)
		}
		t = windowEnd + coarseStep
	}

	return passes, nil
}

// refine scans at the fine step from just before a coarse hit until the
// satellite drops below the horizon again. It returns the pass, or nil if it
// never reached minElev, and the time the above-horizon window ended.
func (s scanner) refine(ctx context.Context, coarseHit, windowStart, windowEnd, minElev float64) (*PassEvent, float64) {
	t := max(coarseHit-coarseStep, windowStart)

	var (
		pass      PassEvent
		wasAbove  bool
		foundRise bool
		seenUp    bool
		lastTrack = -groundTrackStep
	)

	for ; t < windowEnd; t += fineStep {
		if ctx.Err() != nil {
			break
		}

		la, fixed := s.look(t)
		el := la.ElevationDeg
		above := el >= minElev

		if above && !wasAbove && !foundRise {
			foundRise = true
			pass.StartTime = t
			pass.StartAzimuth = la.AzimuthDeg
			pass.MaxElevation = el
			pass.MaxElevationTime = t
			pass.AzimuthAtMax = la.AzimuthDeg
		}

		if above && foundRise {
			if el > pass.MaxElevation {
				pass.MaxElevation = el
				pass.MaxElevationTime = t
				pass.AzimuthAtMax = la.AzimuthDeg
			}
			if since := int(t - pass.StartTime); since-lastTrack >= groundTrackStep {
				lastTrack = since
				pass.GroundTrack = append(pass.GroundTrack, GroundTrackPoint{
					Time:      t,
					Geodetic:  geodesy.ToGeodetic(fixed),
					Elevation: el,
				})
			}
		}

		if !above && wasAbove && foundRise {
			pass.EndTime = t
			pass.EndAzimuth = la.AzimuthDeg
			break
		}

		if el > 0 {
			seenUp = true
		} else if seenUp && !foundRise {
			// Rose and set without reaching minElev.
			return nil, t
		}
		wasAbove = above
	}

	if !foundRise {
		return nil, t
	}
	if pass.EndTime == 0 {
		// Still above at the end of the window; close the pass there.
		la, _ := s.look(t)
		pass.EndTime = t
		pass.EndAzimuth = la.AzimuthDeg
	}
	pass.DurationSeconds = pass.EndTime - pass.StartTime
	return &pass, pass.EndTime
}
