package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitalator_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitalator_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	predictionDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitalator_prediction_duration_seconds",
			Help:    "Time spent in one intersection search plus collision prediction.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"source"},
	)

	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitalator_predictions_total",
			Help: "Collision predictions by outcome.",
		},
		[]string{"source", "outcome"},
	)

	intersections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitalator_intersections",
		Help: "Number of intersection regions between the scenario's orbits.",
	})

	pathCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitalator_path_cache_hits_total",
		Help: "Sampled path cache hits.",
	})
	pathCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitalator_path_cache_misses_total",
		Help: "Sampled path cache misses.",
	})
	pathCacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orbitalator_path_cache_evictions_total",
		Help: "Sampled paths evicted from the cache.",
	})
	pathCacheEntries = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitalator_path_cache_entries",
		Help: "Sampled paths currently cached.",
	})

	streamConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "orbitalator_stream_connections",
			Help: "Open frame stream connections.",
		},
		[]string{"transport"},
	)
	streamMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitalator_stream_messages_total",
			Help: "Frames written to stream clients.",
		},
		[]string{"transport"},
	)
	streamRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitalator_stream_rejected_total",
			Help: "Stream connections refused.",
		},
		[]string{"reason"},
	)

	simTimeSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitalator_sim_time_seconds",
		Help: "Current simulation clock.",
	})
	simSpeed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitalator_sim_speed",
		Help: "Simulation speed multiplier.",
	})
	simPaused = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orbitalator_sim_paused",
		Help: "1 when the simulation clock is paused.",
	})

	tleImportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitalator_tle_imports_total",
			Help: "TLE imports by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		predictionDurationSeconds,
		predictionsTotal,
		intersections,
		pathCacheHits,
		pathCacheMisses,
		pathCacheEvictions,
		pathCacheEntries,
		streamConnections,
		streamMessagesTotal,
		streamRejectedTotal,
		simTimeSeconds,
		simSpeed,
		simPaused,
		tleImportsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePrediction records one prediction run. source is "scenario", "api"
// or "survey".
func ObservePrediction(source string, d time.Duration, collision bool) {
	predictionDurationSeconds.WithLabelValues(source).Observe(d.Seconds())
	outcome := "clear"
	if collision {
		outcome = "collision"
	}
	predictionsTotal.WithLabelValues(source, outcome).Inc()
}

// SetIntersections publishes the size of the current intersection set.
func SetIntersections(n int) { intersections.Set(float64(n)) }

func IncPathCacheHits()           { pathCacheHits.Inc() }
func IncPathCacheMisses()         { pathCacheMisses.Inc() }
func AddPathCacheEvictions(n int) { pathCacheEvictions.Add(float64(n)) }
func SetPathCacheEntries(n int)   { pathCacheEntries.Set(float64(n)) }

// StreamOpened and StreamClosed track open connections per transport.
func StreamOpened(transport string) { streamConnections.WithLabelValues(transport).Inc() }
func StreamClosed(transport string) { streamConnections.WithLabelValues(transport).Dec() }

func IncStreamMessages(transport string) { streamMessagesTotal.WithLabelValues(transport).Inc() }
func IncStreamRejected(reason string)    { streamRejectedTotal.WithLabelValues(reason).Inc() }

// SetSimState publishes the simulation clock.
func SetSimState(seconds, speed float64, paused bool) {
	simTimeSeconds.Set(seconds)
	simSpeed.Set(speed)
	if paused {
		simPaused.Set(1)
	} else {
		simPaused.Set(0)
	}
}

// IncTLEImports counts a TLE import attempt. result is "ok" or "error".
func IncTLEImports(result string) { tleImportsTotal.WithLabelValues(result).Inc() }

var exactRoutes = map[string]bool{
	"/":                      true,
	"/healthz":               true,
	"/readyz":                true,
	"/metrics":               true,
	"/api/v1/satellites":     true,
	"/api/v1/intersections":  true,
	"/api/v1/collision":      true,
	"/api/v1/passes":         true,
	"/api/v1/presets":        true,
	"/api/v1/presets/survey": true,
	"/api/v1/clock":          true,
	"/api/v1/stream":         true,
	"/api/v1/ws":             true,
	"/api/v1/cache":          true,
}

var satelliteSubroutes = map[string]bool{
	"tle":      true,
	"position": true,
	"path":     true,
	"look":     true,
}

// normalizeRoute maps a request path onto a bounded set of labels so that
// path parameters and scanner traffic cannot blow up series cardinality.
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/satellites/"); ok {
		parts := strings.Split(rest, "/")
		switch {
		case len(parts) == 1 && parts[0] != "":
			return "/api/v1/satellites/{sat}"
		case len(parts) == 2 && parts[0] != "" && satelliteSubroutes[parts[1]]:
			return "/api/v1/satellites/{sat}/" + parts[1]
		}
		return "other"
	}

	if rest, ok := strings.CutPrefix(path, "/api/v1/presets/"); ok && rest != "" && !strings.Contains(rest, "/") {
		return "/api/v1/presets/{name}"
	}

	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack lets the WebSocket upgrader take over the connection.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
