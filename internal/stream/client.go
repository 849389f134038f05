package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/orbitalator/internal/metrics"
)

// sseWriteTimeout bounds each write on a stream connection.
const sseWriteTimeout = 30 * time.Second

// sseClient manages a single SSE connection's write operations.
type sseClient struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
	logger  *slog.Logger

	messagesSent int64
}

// sendJSON marshals v as JSON and sends it as an SSE "data:" message.
func (c *sseClient) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	c.extendDeadline()

	if _, err := fmt.Fprintf(c.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	c.flusher.Flush()
	c.messagesSent++
	metrics.IncStreamMessages("sse")
	return nil
}

// sendKeepalive sends an SSE comment line (":\n\n").
func (c *sseClient) sendKeepalive() error {
	c.extendDeadline()
	if _, err := fmt.Fprint(c.w, ":\n\n"); err != nil {
		return fmt.Errorf("keepalive write: %w", err)
	}
	c.flusher.Flush()
	return nil
}

func (c *sseClient) extendDeadline() {
	if err := c.rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
		c.logger.Debug("could not set write deadline", "error", err)
	}
}
