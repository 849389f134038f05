package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/star/orbitalator/internal/presets"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/survey"
)

func listPresetsHandler(catalog *presets.Catalog, scenario *sim.Scenario) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"current": scenario.Preset(),
			"presets": catalog.All(),
		})
	}
}

// loadPresetHandler replaces both satellites with a named preset. The clock
// keeps running from where it is.
func loadPresetHandler(logger *slog.Logger, catalog *presets.Catalog, engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := catalog.Lookup(r.PathValue("name"))
		if errors.Is(err, presets.ErrUnknownPreset) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := engine.Scenario().Load(r.Context(), p); err != nil {
			logger.Error("preset load failed", "component", "api", "preset", p.Name, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		engine.Clock().ForceCheck()
		writeJSON(w, http.StatusOK, map[string]any{
			"preset":     p,
			"satellites": engine.Scenario().Satellites(),
		})
	}
}

// surveyHandler predicts every preset from ?current (default T+0) on the
// worker pool.
func surveyHandler(catalog *presets.Catalog, runner *survey.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if runner == nil {
			writeError(w, http.StatusServiceUnavailable, "survey is disabled")
			return
		}
		current, err := queryFloat(r, "current", 0)
		if err != nil || current < 0 {
			writeError(w, http.StatusBadRequest, "current must be a non-negative number of seconds")
			return
		}
		results := runner.Run(r.Context(), catalog.All(), current)
		writeJSON(w, http.StatusOK, map[string]any{
			"current_time": current,
			"workers":      runner.Workers(),
			"results":      results,
		})
	}
}
