package survey

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/presets"
)

var testLogger = slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))

func TestRunBuiltinPresets(t *testing.T) {
	ps := presets.Builtin().All()
	paths := cache.NewPathCache(cache.DefaultConfig(), testLogger)
	r := NewRunner(4, conjunction.DefaultPredictor(), paths, testLogger)

	results := r.Run(context.Background(), ps, 0)
	if len(results) != len(ps) {
		t.Fatalf("got %d results, want %d", len(results), len(ps))
	}
	byName := make(map[string]Result, len(results))
	for i, res := range results {
		if res.Preset != ps[i].Name {
			t.Errorf("result %d is %q, want input order %q", i, res.Preset, ps[i].Name)
		}
		if res.Error != "" {
			t.Errorf("%s: error %q", res.Preset, res.Error)
		}
		byName[res.Preset] = res
	}

	cc := byName["collision-course"]
	if cc.Prediction == nil || !cc.Prediction.WillCollide {
		t.Errorf("collision-course: prediction = %+v, want a collision", cc.Prediction)
	}
	if cc.Intersections == 0 {
		t.Error("collision-course: no intersections")
	}
	if so := byName["same-orbit"]; so.Prediction != nil {
		t.Errorf("same-orbit: prediction = %+v, want none", so.Prediction)
	}
}

func TestRunMatchesSequentialPrediction(t *testing.T) {
	ps := presets.Builtin().All()
	pred := conjunction.DefaultPredictor()
	results := NewRunner(3, pred, nil, testLogger).Run(context.Background(), ps, 500)

	for i, p := range ps {
		want := pred.Predict(p.Sat1, p.Sat2, 500)
		got := results[i].Prediction
		if (want == nil) != (got == nil) {
			t.Fatalf("%s: got %+v, want %+v", p.Name, got, want)
		}
		if want != nil && *want != *got {
			t.Errorf("%s: got %+v, want %+v", p.Name, *got, *want)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ps := presets.Builtin().All()
	results := NewRunner(2, conjunction.DefaultPredictor(), nil, testLogger).Run(ctx, ps, 0)
	if len(results) != len(ps) {
		t.Fatalf("got %d results, want %d", len(results), len(ps))
	}
	for _, res := range results {
		if res.Error != "cancelled" {
			t.Errorf("%s: error %q, want cancelled", res.Preset, res.Error)
		}
	}
}

func TestRunInvalidPreset(t *testing.T) {
	ps := []presets.Preset{{Name: "broken"}}
	results := NewRunner(0, conjunction.DefaultPredictor(), nil, testLogger).Run(context.Background(), ps, 0)
	if results[0].Error == "" || results[0].Error == "cancelled" {
		t.Fatalf("error = %q, want a validation error", results[0].Error)
	}
}

func TestRunEmpty(t *testing.T) {
	if got := NewRunner(2, conjunction.DefaultPredictor(), nil, testLogger).Run(context.Background(), nil, 0); len(got) != 0 {
		t.Fatalf("got %d results", len(got))
	}
}
