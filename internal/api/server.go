// Package api exposes the simulation over HTTP: satellite elements and
// positions, intersection and collision queries, presets, the clock and the
// frame streams.
package api

import (
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/star/orbitalator/internal/auth"
	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/health"
	"github.com/star/orbitalator/internal/metrics"
	"github.com/star/orbitalator/internal/presets"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/stream"
	"github.com/star/orbitalator/internal/survey"
	"github.com/star/orbitalator/internal/tle"
)

var tracer = otel.Tracer("github.com/star/orbitalator/internal/api")

// Deps are the components the HTTP handlers operate on.
type Deps struct {
	Engine  *sim.Engine
	Presets *presets.Catalog
	Paths   *cache.PathCache
	Survey  *survey.Runner
	Stream  *stream.Handler
	Fetcher *tle.Fetcher // nil disables lookups by NORAD id
	Web     fs.FS        // nil disables the status page
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(addr string, logger *slog.Logger, authCfg auth.Config, deps Deps) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           NewHandler(logger, authCfg, deps),
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed, middleware-wrapped handler.
func NewHandler(logger *slog.Logger, authCfg auth.Config, deps Deps) http.Handler {
	mux := http.NewServeMux()
	scenario := deps.Engine.Scenario()

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(scenario.Loaded))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/satellites", listSatellitesHandler(deps.Engine))
	mux.HandleFunc("GET /api/v1/satellites/{sat}", getSatelliteHandler(deps.Engine))
	mux.HandleFunc("PATCH /api/v1/satellites/{sat}", patchSatelliteHandler(logger, deps.Engine))
	mux.HandleFunc("POST /api/v1/satellites/{sat}/tle", importTLEHandler(logger, deps.Engine, deps.Fetcher))
	mux.HandleFunc("GET /api/v1/satellites/{sat}/position", positionHandler(deps.Engine))
	mux.HandleFunc("GET /api/v1/satellites/{sat}/path", pathHandler(deps.Engine))
	mux.HandleFunc("GET /api/v1/satellites/{sat}/look", lookHandler(deps.Engine))

	mux.HandleFunc("GET /api/v1/intersections", intersectionsHandler(deps.Engine))
	mux.HandleFunc("GET /api/v1/collision", collisionHandler(deps.Engine))
	mux.HandleFunc("GET /api/v1/passes", passesHandler(deps.Engine))

	mux.HandleFunc("GET /api/v1/presets", listPresetsHandler(deps.Presets, scenario))
	mux.HandleFunc("GET /api/v1/presets/survey", surveyHandler(deps.Presets, deps.Survey))
	mux.HandleFunc("POST /api/v1/presets/{name}", loadPresetHandler(logger, deps.Presets, deps.Engine))

	mux.HandleFunc("GET /api/v1/clock", getClockHandler(deps.Engine))
	mux.HandleFunc("POST /api/v1/clock", clockActionHandler(logger, deps.Engine))

	if deps.Paths != nil {
		mux.HandleFunc("GET /api/v1/cache", cacheStatsHandler(deps.Paths))
	}
	if deps.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream", deps.Stream.HandleSSE)
		mux.HandleFunc("GET /api/v1/ws", deps.Stream.HandleWebSocket)
	}
	if deps.Web != nil {
		mux.Handle("GET /{$}", http.FileServerFS(deps.Web))
	}

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}
