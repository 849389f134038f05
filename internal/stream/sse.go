package stream

import (
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/star/orbitalator/internal/metrics"
)

// HandleSSE serves the frame stream as Server-Sent Events.
// GET /api/v1/stream?rate=20
func (h *Handler) HandleSSE(w http.ResponseWriter, r *http.Request) {
	perSecond, ok := h.parseRate(w, r)
	if !ok {
		return
	}

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	ip, ok := h.admit(w, r, "sse")
	if !ok {
		return
	}

	metrics.StreamOpened("sse")
	startTime := time.Now()
	h.logger.Info("stream connected",
		"transport", "sse",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"rate", perSecond,
	)

	frames, unsubscribe := h.source.Subscribe(subscriberBuffer)
	defer func() {
		unsubscribe()
		h.limiter.release(ip)
		metrics.StreamClosed("sse")
		h.logger.Info("stream disconnected",
			"transport", "sse",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's WriteTimeout for this long-lived connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &sseClient{
		w:       w,
		flusher: flusher,
		rc:      rc,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	fmt.Fprintf(w, "retry: %d\n\n", 3000+rand.Intn(4000))
	flusher.Flush()

	if err := c.sendJSON(h.metadata("sse", perSecond)); err != nil {
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	keepalive := time.NewTicker(h.config.KeepaliveInterval)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case f, open := <-frames:
			if !open {
				// Simulation stopped.
				return
			}
			if !limiter.Allow() {
				continue
			}
			if err := c.sendJSON(f); err != nil {
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}
			keepalive.Reset(h.config.KeepaliveInterval)

		case <-keepalive.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}
