package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumeMatch/internal/scan"
)

type fakeUpstream struct{ err error }

func (f fakeUpstream) Health(context.Context) error { return f.err }

type fakeClamd struct{ pingErr error }

func (fakeClamd) Scan(context.Context, []byte) error { return nil }
func (f fakeClamd) Ping() error { return f.pingErr }

func TestHealth(t *testing.T) {
	app := newTestApp(t, goodAnalyzer(), nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		upstream error
		scanner  scan.Scanner
		status   int
		checks   map[string]string
	}{
		{name: "ready", status: http.StatusOK, checks: map[string]string{"analysis": "ok"}},
		{
			name:     "analysis down",
			upstream: errors.New("connection refused"),
			status:   http.StatusServiceUnavailable,
			checks:   map[string]string{"analysis": "unavailable"},
		},
		{name: "noop scanner is not checked", scanner: scan.Noop{}, status: http.StatusOK, checks: map[string]string{"analysis": "ok"}},
		{name: "clamd up", scanner: fakeClamd{}, status: http.StatusOK, checks: map[string]string{"analysis": "ok", "clamd": "ok"}},
		{
			name:    "clamd down",
			scanner: fakeClamd{pingErr: errors.New("dial tcp: connection refused")},
			status:  http.StatusServiceUnavailable,
			checks:  map[string]string{"analysis": "ok", "clamd": "unavailable"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(t, goodAnalyzer(), func(deps *Dependencies) {
				deps.Upstream = fakeUpstream{err: tt.upstream}
				deps.Scanner = tt.scanner
			})
			w := httptest.NewRecorder()
			app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
			require.Equal(t, tt.status, w.Code)

			var body struct {
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.checks, body.Checks)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t, goodAnalyzer(), nil)
	w := httptest.NewRecorder()
	app.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		host    string
		want    bool
	}{
		{name: "no origin header", origin: "", host: "app.local", want: true},
		{name: "same host", origin: "http://app.local", host: "app.local", want: true},
		{name: "other host", origin: "http://evil.local", host: "app.local", want: false},
		{name: "listed origin", allowed: []string{"https://cdn.local"}, origin: "https://cdn.local", host: "app.local", want: true},
		{name: "unlisted origin", allowed: []string{"https://cdn.local"}, origin: "http://app.local", host: "app.local", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			req.Host = tt.host
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, checkOrigin(tt.allowed)(req))
		})
	}
}
