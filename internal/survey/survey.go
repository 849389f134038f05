// Package survey runs collision predictions for many element pairs at once on
// a bounded worker pool.
package survey

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/presets"
)

var tracer = otel.Tracer("github.com/star/orbitalator/internal/survey")

// Result is the outcome of surveying one preset.
type Result struct {
	Preset        string                  `json:"preset"`
	Description   string                  `json:"description"`
	Intersections int                     `json:"intersections"`
	Prediction    *conjunction.Prediction `json:"prediction,omitempty"`
	DurationMs    float64                 `json:"duration_ms"`
	Error         string                  `json:"error,omitempty"`
}

// job is a unit of work for the pool.
type job struct {
	index  int
	preset presets.Preset
}

// Runner manages a fixed number of goroutines for parallel prediction.
type Runner struct {
	workers   int
	predictor conjunction.Predictor
	paths     *cache.PathCache
	logger    *slog.Logger
}

// NewRunner creates a runner with the given number of workers. paths may be
// nil, in which case every orbit is sampled afresh.
func NewRunner(workers int, predictor conjunction.Predictor, paths *cache.PathCache, logger *slog.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{
		workers:   workers,
		predictor: predictor,
		paths:     paths,
		logger:    logger,
	}
}

// Workers returns the pool size.
func (r *Runner) Workers() int { return r.workers }

// Run predicts the earliest collision at or after currentTime for every
// preset. Results keep the input order. Presets not reached before ctx is
// cancelled carry Error "cancelled".
func (r *Runner) Run(ctx context.Context, ps []presets.Preset, currentTime float64) []Result {
	ctx, span := tracer.Start(ctx, "survey.run")
	defer span.End()
	span.SetAttributes(attribute.Int("presets", len(ps)), attribute.Int("workers", r.workers))

	results := make([]Result, len(ps))
	for i, p := range ps {
		results[i] = Result{Preset: p.Name, Description: p.Description, Error: "cancelled"}
	}
	if len(ps) == 0 {
		return results
	}

	start := time.Now()
	jobs := make(chan job, r.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker owns distinct indices, so no lock is needed.
				results[j.index] = r.surveyOne(ctx, j.preset, currentTime)
			}
		}()
	}

	// Feed jobs until done or cancelled.
feed:
	for i, p := range ps {
		select {
		case jobs <- job{index: i, preset: p}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var collisions, failed int
	for _, res := range results {
		switch {
		case res.Error != "":
			failed++
		case res.Prediction != nil:
			collisions++
		}
	}
	span.SetAttributes(attribute.Int("collisions", collisions))

	r.logger.Info("survey complete",
		"presets", len(ps),
		"collisions", collisions,
		"failed", failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return results
}

func (r *Runner) surveyOne(ctx context.Context, p presets.Preset, currentTime float64) Result {
	res := Result{Preset: p.Name, Description: p.Description}
	if err := ctx.Err(); err != nil {
		res.Error = "cancelled"
		return res
	}
	if err := p.Validate(); err != nil {
		res.Error = err.Error()
		r.logger.Warn("survey skipped invalid preset", "preset", p.Name, "error", err)
		return res
	}

	start := time.Now()
	pred := r.predictor
	if r.paths != nil && r.paths.SamplePoints() == pred.SamplePoints {
		pa, pb := r.paths.Path(p.Sat1), r.paths.Path(p.Sat2)
		res.Intersections = len(conjunction.Intersect(pa, pb, pred.Threshold))
		res.Prediction = pred.PredictPaths(p.Sat1, p.Sat2, pa, pb, currentTime)
	} else {
		res.Intersections = len(pred.Intersections(p.Sat1, p.Sat2))
		res.Prediction = pred.Predict(p.Sat1, p.Sat2, currentTime)
	}
	elapsed := time.Since(start)
	res.DurationMs = float64(elapsed.Microseconds()) / 1000

	metrics.ObservePrediction("survey", elapsed, res.Prediction != nil)
	return res
}
