package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/uuid"

	"github.com/star/orbitalator/internal/auth"
	"github.com/star/orbitalator/internal/cache"
	"github.com/star/orbitalator/internal/conjunction"
	"github.com/star/orbitalator/internal/geodesy"
	"github.com/star/orbitalator/internal/orbit"
	"github.com/star/orbitalator/internal/passes"
	"github.com/star/orbitalator/internal/presets"
	"github.com/star/orbitalator/internal/sim"
	"github.com/star/orbitalator/internal/survey"
	"github.com/star/orbitalator/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9009"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    01"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type testEnv struct {
	engine  *sim.Engine
	catalog *presets.Catalog
	handler http.Handler
}

func newTestEnv(t *testing.T, authCfg auth.Config, fetcher *tle.Fetcher) *testEnv {
	t.Helper()
	logger := testLogger()
	catalog := presets.Builtin()
	paths := cache.NewPathCache(cache.DefaultConfig(), logger)
	predictor := conjunction.DefaultPredictor()

	scenario := sim.NewScenario(predictor, paths, logger)
	p, err := catalog.Lookup(presets.DefaultName)
	if err != nil {
		t.Fatal(err)
	}
	if err := scenario.Load(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	engine := sim.NewEngine(sim.NewClock(0), scenario, sim.EngineConfig{
		Epoch: time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC),
	}, logger)

	handler := NewHandler(logger, authCfg, Deps{
		Engine:  engine,
		Presets: catalog,
		Paths:   paths,
		Survey:  survey.NewRunner(2, predictor, paths, logger),
		Fetcher: fetcher,
		Web:     fstest.MapFS{"index.html": {Data: []byte("<html>orbitalator</html>")}},
	})
	return &testEnv{engine: engine, catalog: catalog, handler: handler}
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestProbesAndMetrics(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if rec := env.do(t, http.MethodGet, path, "", ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestReadyzBeforeLoad(t *testing.T) {
	logger := testLogger()
	paths := cache.NewPathCache(cache.DefaultConfig(), logger)
	scenario := sim.NewScenario(conjunction.DefaultPredictor(), paths, logger)
	engine := sim.NewEngine(sim.NewClock(0), scenario, sim.EngineConfig{}, logger)
	handler := NewHandler(logger, auth.Config{}, Deps{Engine: engine, Presets: presets.Builtin()})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before load = %d, want 503", rec.Code)
	}
}

func TestStatusPage(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	rec := env.do(t, http.MethodGet, "/", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "orbitalator") {
		t.Fatalf("GET / body = %q", rec.Body.String())
	}
	if rec := env.do(t, http.MethodGet, "/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET /nope = %d, want 404", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	rec := env.do(t, http.MethodGet, "/healthz", "", "")
	if _, err := uuid.Parse(rec.Header().Get("X-Request-ID")); err != nil {
		t.Fatalf("X-Request-ID %q is not a UUID", rec.Header().Get("X-Request-ID"))
	}

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", id)
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != id {
		t.Fatalf("X-Request-ID = %q, want incoming %q", got, id)
	}
}

func TestListSatellites(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	rec := env.do(t, http.MethodGet, "/api/v1/satellites", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		Preset     string              `json:"preset"`
		Satellites []satelliteResponse `json:"satellites"`
	}](t, rec)

	if body.Preset != presets.DefaultName {
		t.Errorf("preset = %q, want %q", body.Preset, presets.DefaultName)
	}
	if len(body.Satellites) != 2 {
		t.Fatalf("got %d satellites, want 2", len(body.Satellites))
	}
	for _, s := range body.Satellites {
		if math.Abs(s.Position.Norm()-7000e3) > 1 {
			t.Errorf("sat %d radius = %.1f, want 7000 km circular", s.ID, s.Position.Norm())
		}
		if s.Velocity.Speed() <= 0 {
			t.Errorf("sat %d has zero velocity", s.ID)
		}
	}
}

func TestGetSatelliteUnknown(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	for _, path := range []string{"/api/v1/satellites/3", "/api/v1/satellites/x/position", "/api/v1/satellites/0/path"} {
		if rec := env.do(t, http.MethodGet, path, "", ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestPatchSatellite(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	tests := []struct {
		name      string
		body      string
		wantCode  int
		wantShape bool
	}{
		{"phase only", `{"mean_anomaly": 1.0}`, http.StatusOK, false},
		{"clamped axis", `{"semi_major_axis": 1000}`, http.StatusOK, true},
		{"unknown field", `{"semimajor": 7000000}`, http.StatusBadRequest, false},
		{"empty body", ``, http.StatusBadRequest, false},
		{"not json", `a=1`, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPatch, "/api/v1/satellites/1", "application/json", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if rec.Code != http.StatusOK {
				return
			}
			got := decode[updateResponse](t, rec)
			if got.ShapeChanged != tt.wantShape {
				t.Errorf("shape_changed = %v, want %v", got.ShapeChanged, tt.wantShape)
			}
		})
	}

	s, err := env.engine.Scenario().Satellite(sim.Sat1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Elements.SemiMajorAxis != sim.MinSemiMajorAxis {
		t.Errorf("semi-major axis = %v, want clamped to %v", s.Elements.SemiMajorAxis, sim.MinSemiMajorAxis)
	}
	if s.Elements.MeanAnomaly != 1.0 {
		t.Errorf("mean anomaly = %v, want 1.0", s.Elements.MeanAnomaly)
	}
	if got := env.engine.Scenario().Preset(); got != "custom" {
		t.Errorf("preset = %q after edit, want custom", got)
	}
}

func checkISSImport(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[importResponse](t, rec)
	if got.Import.Entry.NORADID != 25544 {
		t.Errorf("norad_id = %d, want 25544", got.Import.Entry.NORADID)
	}
	if a := got.Satellite.Elements.SemiMajorAxis; a < 6700e3 || a > 6900e3 {
		t.Errorf("semi-major axis = %.1f km, want ISS-like", a/1000)
	}
}

func TestImportTLEText(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	body := "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"
	checkISSImport(t, env.do(t, http.MethodPost, "/api/v1/satellites/2/tle", "text/plain", body))

	s, _ := env.engine.Scenario().Satellite(sim.Sat2)
	if a := s.Elements.SemiMajorAxis; a > 6900e3 {
		t.Errorf("sat2 not replaced: a = %.1f km", a/1000)
	}
}

func TestImportTLEJSONLines(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	body, _ := json.Marshal(tleRequest{Name: "ISS", Line1: issLine1, Line2: issLine2})
	checkISSImport(t, env.do(t, http.MethodPost, "/api/v1/satellites/1/tle", "application/json", string(body)))
}

func TestImportTLEFetch(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("CATNR") != "25544" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.Write([]byte("ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"))
	}))
	defer upstream.Close()

	fetcher := tle.NewFetcher(upstream.URL+"/gp.php?CATNR=%d&FORMAT=tle", 0, testLogger())
	env := newTestEnv(t, auth.Config{}, fetcher)

	checkISSImport(t, env.do(t, http.MethodPost, "/api/v1/satellites/1/tle", "application/json", `{"norad_id": 25544}`))

	if rec := env.do(t, http.MethodPost, "/api/v1/satellites/1/tle", "application/json", `{"norad_id": 99999}`); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown NORAD id = %d, want 404: %s", rec.Code, rec.Body.String())
	}
}

func TestImportTLEErrors(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantCode    int
	}{
		{"fetch disabled", "application/json", `{"norad_id": 25544}`, http.StatusServiceUnavailable},
		{"empty json", "application/json", `{}`, http.StatusBadRequest},
		{"garbage text", "text/plain", "not a tle", http.StatusBadRequest},
		{"truncated lines", "application/json", `{"line1": "1 25544U", "line2": "2 25544"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/v1/satellites/1/tle", tt.contentType, tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}

	if got := env.engine.Scenario().Preset(); got != presets.DefaultName {
		t.Errorf("failed imports changed the scenario: preset = %q", got)
	}
}

func TestPosition(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/satellites/1/position?t=0", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Position orbit.Position `json:"position"`
	}](t, rec)
	// Circular orbit at epoch sits on the ascending node.
	if got.Position.Distance(orbit.Position{X: 7000e3}) > 1 {
		t.Errorf("position at t=0 = %v, want (7000 km, 0, 0)", got.Position)
	}

	for _, q := range []string{"?t=abc", "?t=NaN", "?t=Inf"} {
		if rec := env.do(t, http.MethodGet, "/api/v1/satellites/1/position"+q, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("position%s = %d, want 400", q, rec.Code)
		}
	}
}

func TestPath(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	tests := []struct {
		query      string
		wantCode   int
		wantPoints int
	}{
		{"", http.StatusOK, orbit.DefaultPathPoints + 1},
		{"?points=10", http.StatusOK, 11},
		{"?points=0", http.StatusBadRequest, 0},
		{"?points=10001", http.StatusBadRequest, 0},
		{"?points=x", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/api/v1/satellites/2/path"+tt.query, "", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if rec.Code != http.StatusOK {
				return
			}
			got := decode[struct {
				Points int        `json:"points"`
				Path   orbit.Path `json:"path"`
			}](t, rec)
			if got.Points != tt.wantPoints || len(got.Path) != tt.wantPoints {
				t.Errorf("points = %d (len %d), want %d", got.Points, len(got.Path), tt.wantPoints)
			}
			if !got.Path.Closed(1) {
				t.Error("path is not closed")
			}
		})
	}
}

func TestIntersections(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/intersections", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[struct {
		Count         int              `json:"count"`
		Intersections []orbit.Position `json:"intersections"`
	}](t, rec)
	if got.Count < 2 || got.Count != len(got.Intersections) {
		t.Fatalf("count = %d (len %d), want both nodes", got.Count, len(got.Intersections))
	}

	wide := decode[struct {
		Count int `json:"count"`
	}](t, env.do(t, http.MethodGet, "/api/v1/intersections?threshold=200000", "", ""))
	if wide.Count < 2 {
		t.Errorf("wide threshold count = %d, want at least 2", wide.Count)
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/intersections?threshold=-5", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative threshold = %d, want 400", rec.Code)
	}
}

func TestCollision(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/collision?current=0", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[collisionResponse](t, rec)
	if !got.WillCollide {
		t.Fatal("collision-course preset: will_collide = false")
	}
	if got.TimeUntil == nil || *got.TimeUntil < 0 {
		t.Errorf("time_until = %v, want non-negative", got.TimeUntil)
	}
	if got.TimeWindow != conjunction.DefaultTimeWindow {
		t.Errorf("time_window = %v, want default %v", got.TimeWindow, conjunction.DefaultTimeWindow)
	}
	if env.engine.Scenario().Prediction() != nil {
		t.Error("one-off forecast replaced the held prediction")
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/presets/same-orbit", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("load same-orbit = %d", rec.Code)
	}
	got = decode[collisionResponse](t, env.do(t, http.MethodGet, "/api/v1/collision", "", ""))
	if got.WillCollide || got.TimeUntil != nil {
		t.Errorf("same-orbit preset: got %+v, want no collision", got)
	}

	for _, q := range []string{"?window=0", "?window=-1", "?current=-3", "?current=x"} {
		if rec := env.do(t, http.MethodGet, "/api/v1/collision"+q, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("collision%s = %d, want 400", q, rec.Code)
		}
	}
}

func TestPresets(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	list := decode[struct {
		Current string           `json:"current"`
		Presets []presets.Preset `json:"presets"`
	}](t, env.do(t, http.MethodGet, "/api/v1/presets", "", ""))
	if list.Current != presets.DefaultName || len(list.Presets) != env.catalog.Len() {
		t.Fatalf("current = %q, %d presets; want %q and %d", list.Current, len(list.Presets), presets.DefaultName, env.catalog.Len())
	}

	env.engine.Clock().Jump(1234)
	if rec := env.do(t, http.MethodPost, "/api/v1/presets/molniya", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("load molniya = %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.engine.Scenario().Preset(); got != "molniya" {
		t.Errorf("preset = %q, want molniya", got)
	}
	if got := env.engine.Clock().Now(); got != 1234 {
		t.Errorf("clock = %v after preset load, want unchanged 1234", got)
	}

	if rec := env.do(t, http.MethodPost, "/api/v1/presets/nope", "", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown preset = %d, want 404", rec.Code)
	}
}

func TestSurvey(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/presets/survey", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Workers int             `json:"workers"`
		Results []survey.Result `json:"results"`
	}](t, rec)
	if len(got.Results) != env.catalog.Len() {
		t.Fatalf("got %d results, want %d", len(got.Results), env.catalog.Len())
	}
	if got.Workers != 2 {
		t.Errorf("workers = %d, want 2", got.Workers)
	}
	for _, r := range got.Results {
		if r.Error != "" {
			t.Errorf("%s: %s", r.Preset, r.Error)
		}
	}

	if rec := env.do(t, http.MethodGet, "/api/v1/presets/survey?current=-1", "", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("negative current = %d, want 400", rec.Code)
	}
}

func TestClockActions(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	post := func(body string) (*httptest.ResponseRecorder, sim.ClockState) {
		t.Helper()
		rec := env.do(t, http.MethodPost, "/api/v1/clock", "application/json", body)
		if rec.Code != http.StatusOK {
			return rec, sim.ClockState{}
		}
		return rec, decode[sim.ClockState](t, rec)
	}

	if _, cs := post(`{"action": "pause"}`); !cs.Paused {
		t.Error("pause: paused = false")
	}
	if _, cs := post(`{"action": "toggle"}`); cs.Paused {
		t.Error("toggle: still paused")
	}
	if _, cs := post(`{"action": "jump"}`); cs.Time != sim.JumpStep {
		t.Errorf("jump: time = %v, want %v", cs.Time, sim.JumpStep)
	}
	if _, cs := post(`{"action": "jump", "seconds": 100}`); cs.Time != sim.JumpStep+100 {
		t.Errorf("jump 100: time = %v, want %v", cs.Time, sim.JumpStep+100)
	}
	if _, cs := post(`{"action": "speed", "speed": -50}`); cs.Speed != -50 {
		t.Errorf("speed: got %v, want -50", cs.Speed)
	}
	if _, cs := post(`{"action": "reset"}`); cs.Time != 0 || cs.Speed != -50 {
		t.Errorf("reset: %+v, want time 0 and speed kept", cs)
	}

	for _, body := range []string{`{"action": "speed"}`, `{"action": "warp"}`, `{}`, `{"action": "play", "extra": 1}`} {
		if rec, _ := post(body); rec.Code != http.StatusBadRequest {
			t.Errorf("%s = %d, want 400", body, rec.Code)
		}
	}

	cs := decode[sim.ClockState](t, env.do(t, http.MethodGet, "/api/v1/clock", "", ""))
	if cs.Duration != orbit.SimulationDuration {
		t.Errorf("duration = %v, want %v", cs.Duration, orbit.SimulationDuration)
	}
}

func TestClockNextCollision(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	if rec := env.do(t, http.MethodPost, "/api/v1/clock", "application/json", `{"action": "next_collision"}`); rec.Code != http.StatusConflict {
		t.Fatalf("without a held prediction = %d, want 409", rec.Code)
	}

	env.engine.Clock().Pause()
	p := env.engine.Check(context.Background())
	if p == nil {
		t.Fatal("collision-course preset: no prediction")
	}

	rec := env.do(t, http.MethodPost, "/api/v1/clock", "application/json", `{"action": "next_collision"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	cs := decode[sim.ClockState](t, rec)
	want := math.Max(0, p.TimeToCollision-10)
	if math.Abs(cs.Time-want) > 1e-9 {
		t.Errorf("time = %v, want %v", cs.Time, want)
	}
	if cs.Paused {
		t.Error("clock still paused after jumping to the collision")
	}
}

func TestCacheStats(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	got := decode[cache.CacheStats](t, env.do(t, http.MethodGet, "/api/v1/cache", "", ""))
	if got.Entries < 2 {
		t.Errorf("entries = %d, want the two loaded orbits", got.Entries)
	}
}

func TestAuthGuardsWrites(t *testing.T) {
	env := newTestEnv(t, auth.Config{Enabled: true, Token: "secret"}, nil)

	if rec := env.do(t, http.MethodGet, "/api/v1/satellites", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET without token = %d, want 200", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/api/v1/clock", "application/json", `{"action": "pause"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("POST without token = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clock", strings.NewReader(`{"action": "pause"}`))
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("POST with token = %d, want 200", rec.Code)
	}
}

func TestSatelliteSubPoint(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	got := decode[satelliteResponse](t, env.do(t, http.MethodGet, "/api/v1/satellites/1", "", ""))

	if !got.At.Equal(env.engine.Epoch()) {
		t.Errorf("at = %v, want the epoch %v", got.At, env.engine.Epoch())
	}
	// Ascending node of a 7000 km circle: on the equator, about 622 km up.
	if math.Abs(got.SubPoint.LatDeg) > 1e-6 {
		t.Errorf("sub-point latitude = %v, want 0", got.SubPoint.LatDeg)
	}
	if math.Abs(got.SubPoint.AltM-(7000e3-6378137)) > 1 {
		t.Errorf("sub-point altitude = %.1f m", got.SubPoint.AltM)
	}
}

func TestLook(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)
	sub := decode[satelliteResponse](t, env.do(t, http.MethodGet, "/api/v1/satellites/1", "", "")).SubPoint

	target := "/api/v1/satellites/1/look?t=0&lat=" + strconv.FormatFloat(sub.LatDeg, 'f', -1, 64) +
		"&lon=" + strconv.FormatFloat(sub.LonDeg, 'f', -1, 64)
	rec := env.do(t, http.MethodGet, target, "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Look geodesy.LookAngles `json:"look"`
	}](t, rec)
	if math.Abs(got.Look.ElevationDeg-90) > 0.01 || !got.Look.Visible {
		t.Errorf("observer beneath the satellite sees %+v, want zenith", got.Look)
	}

	for _, q := range []string{"", "?lat=0", "?lat=91&lon=0", "?lat=0&lon=200", "?lat=0&lon=0&alt=x"} {
		if rec := env.do(t, http.MethodGet, "/api/v1/satellites/1/look"+q, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("look%s = %d, want 400", q, rec.Code)
		}
	}
}

func TestPasses(t *testing.T) {
	env := newTestEnv(t, auth.Config{}, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/passes?lat=0&lon=0&hours=24&max_passes=5", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	got := decode[struct {
		Observer   geodesy.Geodetic         `json:"observer"`
		Hours      float64                  `json:"hours"`
		Satellites []passes.SatellitePasses `json:"satellites"`
	}](t, rec)

	if got.Hours != 24 {
		t.Errorf("hours = %v, want 24", got.Hours)
	}
	if len(got.Satellites) != 2 {
		t.Fatalf("got %d satellites, want 2", len(got.Satellites))
	}
	for i, sp := range got.Satellites {
		if sp.ID != i+1 {
			t.Errorf("satellite %d: id = %d", i, sp.ID)
		}
		if sp.Error != "" {
			t.Errorf("satellite %d: %s", sp.ID, sp.Error)
		}
		// Low inclined orbits cross the equator every revolution.
		if len(sp.Passes) == 0 || len(sp.Passes) > 5 {
			t.Errorf("satellite %d: %d passes, want 1-5", sp.ID, len(sp.Passes))
		}
		for _, p := range sp.Passes {
			if p.StartTime < 0 || p.EndTime > 86400 {
				t.Errorf("satellite %d: pass [%v, %v] outside the window", sp.ID, p.StartTime, p.EndTime)
			}
		}
	}

	for _, q := range []string{
		"",
		"?lat=0",
		"?lat=0&lon=0&hours=0",
		"?lat=0&lon=0&hours=200",
		"?lat=0&lon=0&min_elevation=90",
		"?lat=0&lon=0&max_passes=0",
		"?lat=0&lon=0&start=-1",
	} {
		if rec := env.do(t, http.MethodGet, "/api/v1/passes"+q, "", ""); rec.Code != http.StatusBadRequest {
			t.Errorf("passes%s = %d, want 400", q, rec.Code)
		}
	}
}
