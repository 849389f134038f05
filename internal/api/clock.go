package api

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"github.com/star/orbitalator/internal/sim"
)

type clockRequest struct {
	Action  string   `json:"action"`
	Seconds *float64 `json:"seconds,omitempty"`
	Speed   *float64 `json:"speed,omitempty"`
}

func getClockHandler(engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, engine.Clock().State())
	}
}

// clockActionHandler drives the simulation clock. Actions: play, pause,
// toggle, reset, jump (seconds, default one step forward), speed and
// next_collision.
func clockActionHandler(logger *slog.Logger, engine *sim.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req clockRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		clock := engine.Clock()
		switch req.Action {
		case "play":
			clock.Play()
		case "pause":
			clock.Pause()
		case "toggle":
			clock.Toggle()
		case "reset":
			clock.Reset()
			clock.ForceCheck()
		case "jump":
			step := sim.JumpStep
			if req.Seconds != nil {
				step = *req.Seconds
			}
			if math.IsNaN(step) || math.IsInf(step, 0) {
				writeError(w, http.StatusBadRequest, "seconds must be a finite number")
				return
			}
			clock.Jump(step)
			clock.ForceCheck()
		case "speed":
			if req.Speed == nil {
				writeError(w, http.StatusBadRequest, "speed action requires speed")
				return
			}
			if err := clock.SetSpeed(*req.Speed); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		case "next_collision":
			p, ok := engine.JumpToNextCollision()
			if !ok {
				writeError(w, http.StatusConflict, "no collision predicted")
				return
			}
			clock.ForceCheck()
			logger.Info("jumped to next collision", "component", "api", "time_to_collision", p.TimeToCollision)
		default:
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
			return
		}

		writeJSON(w, http.StatusOK, clock.State())
	}
}
