package stream

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/star/orbitalator/internal/metrics"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadLimit    = 512
)

// HandleWebSocket serves the frame stream over a WebSocket connection.
// GET /api/v1/ws?rate=20
//
// The connection is write-only from the server's point of view; client
// messages other than control frames are read and discarded.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		metrics.IncStreamRejected("bad_request")
		writeJSONError(w, http.StatusBadRequest, "websocket upgrade required")
		return
	}
	perSecond, ok := h.parseRate(w, r)
	if !ok {
		return
	}
	ip, ok := h.admit(w, r, "websocket")
	if !ok {
		return
	}
	defer h.limiter.release(ip)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		metrics.IncStreamRejected("upgrade_failed")
		h.logger.Warn("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	metrics.StreamOpened("websocket")
	startTime := time.Now()
	h.logger.Info("stream connected",
		"transport", "websocket",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"rate", perSecond,
	)

	frames, unsubscribe := h.source.Subscribe(subscriberBuffer)
	defer func() {
		unsubscribe()
		metrics.StreamClosed("websocket")
		h.logger.Info("stream disconnected",
			"transport", "websocket",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	done := h.readPump(conn)

	if err := h.writeWS(conn, h.metadata("websocket", perSecond)); err != nil {
		h.logger.Warn("stream send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	limiter := rate.NewLimiter(rate.Limit(perSecond), 1)
	ping := time.NewTicker(h.config.KeepaliveInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			return

		case f, open := <-frames:
			if !open {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "simulation stopped"),
					time.Now().Add(wsWriteTimeout))
				return
			}
			if !limiter.Allow() {
				continue
			}
			if err := h.writeWS(conn, f); err != nil {
				h.logger.Warn("stream send error", "remote_ip", ip, "error", err)
				return
			}

		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				h.logger.Warn("stream keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func (h *Handler) writeWS(conn *websocket.Conn, v any) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		return err
	}
	metrics.IncStreamMessages("websocket")
	return nil
}

// readPump drains client messages so control frames are processed. The
// returned channel closes when the peer goes away or stops answering pings.
func (h *Handler) readPump(conn *websocket.Conn) <-chan struct{} {
	done := make(chan struct{})
	readTimeout := 2 * h.config.KeepaliveInterval

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("websocket read error", "error", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(readTimeout))
		}
	}()
	return done
}
