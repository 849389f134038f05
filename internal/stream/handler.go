// Package stream pushes simulation frames to clients over Server-Sent Events
// and WebSocket.
//
// Both transports send the same JSON messages. The first message on every
// connection is metadata:
//
//	{"type":"metadata","epoch":"2026-02-06T04:00:00Z","epoch_jd":2461077.6,"horizon_seconds":172800,...}
//
// followed by one "frame" message per simulation tick, thinned to the
// requested rate. SSE keep-alives are comment lines; WebSocket keep-alives are
// ping control frames.
package stream

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soniakeys/meeus/v3/julian"

	"github.com/star/orbitalator/internal/httputil"
	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/sim"
)

const (
	// maxRate is the highest per-connection frame rate a client may request.
	maxRate = 60
	// subscriberBuffer is the number of frames queued per connection before
	// the engine starts dropping frames for it.
	subscriberBuffer = 8
)

// Config holds streaming configuration.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxConcurrent      int           // Max concurrent streams in total (default: 1000).
	MessagesPerSecond  float64       // Default frame rate per stream (default: 20).
	KeepaliveInterval  time.Duration // Keep-alive interval (default: 30s).
	TrustProxy         bool          // Use X-Forwarded-For for the per-IP limit.
}

// FrameSource publishes simulation frames. *sim.Engine satisfies it.
type FrameSource interface {
	Subscribe(buffer int) (<-chan sim.Frame, func())
	Latest() (sim.Frame, bool)
	Epoch() time.Time
}

// Handler manages streaming connections for both transports.
type Handler struct {
	source   FrameSource
	config   Config
	limiter  *streamLimiter
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(source FrameSource, config Config, logger *slog.Logger) *Handler {
	if config.MaxConcurrentPerIP < 1 {
		config.MaxConcurrentPerIP = 10
	}
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = 1000
	}
	if config.MessagesPerSecond <= 0 {
		config.MessagesPerSecond = 20
	}
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		source:  source,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP, config.MaxConcurrent),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Any origin may view the stream.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

type metadataMessage struct {
	Type           string  `json:"type"`
	Transport      string  `json:"transport"`
	Epoch          string  `json:"epoch"`
	EpochJD        float64 `json:"epoch_jd"`
	HorizonSeconds float64 `json:"horizon_seconds"`
	Preset         string  `json:"preset,omitempty"`
	Rate           float64 `json:"rate"`
}

func (h *Handler) metadata(transport string, perSecond float64) metadataMessage {
	epoch := h.source.Epoch().UTC()
	m := metadataMessage{
		Type:           "metadata",
		Transport:      transport,
		Epoch:          epoch.Format(time.RFC3339),
		EpochJD:        julian.TimeToJD(epoch),
		HorizonSeconds: orbit.SimulationDuration,
		Rate:           perSecond,
	}
	if f, ok := h.source.Latest(); ok {
		m.Preset = f.Preset
	}
	return m
}

// parseRate reads the optional ?rate= frames-per-second parameter.
func (h *Handler) parseRate(w http.ResponseWriter, r *http.Request) (float64, bool) {
	perSecond := h.config.MessagesPerSecond
	if v := r.URL.Query().Get("rate"); v != "" {
		n, err := strconv.ParseFloat(v, 64)
		if err != nil || !(n > 0) || n > maxRate {
			metrics.IncStreamRejected("bad_request")
			writeJSONError(w, http.StatusBadRequest, "invalid rate parameter, must be in (0, 60]")
			return 0, false
		}
		perSecond = n
	}
	return perSecond, true
}

// admit enforces the concurrent stream limits. On success the caller must
// release the returned IP's slot.
func (h *Handler) admit(w http.ResponseWriter, r *http.Request, transport string) (string, bool) {
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	err := h.limiter.acquire(ip)
	if err == nil {
		return ip, true
	}

	reason, status := "rate_limit", http.StatusTooManyRequests
	if errors.Is(err, errCapacity) {
		reason, status = "capacity", http.StatusServiceUnavailable
	}
	metrics.IncStreamRejected(reason)
	h.logger.Warn("stream refused",
		"transport", transport,
		"remote_ip", ip,
		"reason", reason,
		"current_count", h.limiter.count(ip),
		"open_streams", h.limiter.active(),
	)
	w.Header().Set("Retry-After", "30")
	writeJSONError(w, status, err.Error())
	return "", false
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
