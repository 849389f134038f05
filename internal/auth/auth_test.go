package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		cfg    Config
		method string
		path   string
		header string
		want   int
	}{
		{"disabled allows writes", Config{}, http.MethodPost, "/api/v1/clock", "", http.StatusNoContent},
		{"reads are public", Config{Enabled: true, Token: "t"}, http.MethodGet, "/api/v1/satellites", "", http.StatusNoContent},
		{"health is public", Config{Enabled: true, Token: "t"}, http.MethodPost, "/healthz", "", http.StatusNoContent},
		{"metrics is public", Config{Enabled: true, Token: "t"}, http.MethodGet, "/metrics", "", http.StatusNoContent},
		{"write without token", Config{Enabled: true, Token: "t"}, http.MethodPatch, "/api/v1/satellites/1", "", http.StatusUnauthorized},
		{"write with wrong token", Config{Enabled: true, Token: "t"}, http.MethodPost, "/api/v1/clock", "Bearer nope", http.StatusUnauthorized},
		{"write with bare token", Config{Enabled: true, Token: "t"}, http.MethodPost, "/api/v1/clock", "t", http.StatusUnauthorized},
		{"write with empty bearer", Config{Enabled: true, Token: "t"}, http.MethodPost, "/api/v1/clock", "Bearer ", http.StatusUnauthorized},
		{"write with token", Config{Enabled: true, Token: "t"}, http.MethodPost, "/api/v1/presets/molniya", "Bearer t", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			Middleware(tt.cfg)(ok).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q", w.Header().Get("Content-Type"))
			}
		})
	}
}
