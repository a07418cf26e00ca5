package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func sessionMux(t *testing.T, reg *Registry) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/sessions/{id}/series", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, 1.0, gaugeValue(t, reg, "http_requests_in_flight"), "request must be counted while served")
	})
	mux.HandleFunc("POST /api/v1/sessions/{id}/refresh", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return HTTPMiddleware(reg)(mux)
}

func gaugeValue(t *testing.T, reg *Registry, name string) float64 {
	t.Helper()
	return gatherFamily(t, reg, name).GetMetric()[0].GetGauge().GetValue()
}

// requestCounts maps "path status" to the http_requests_total value.
func requestCounts(t *testing.T, reg *Registry) map[string]float64 {
	t.Helper()
	out := map[string]float64{}
	for _, m := range gatherFamily(t, reg, "http_requests_total").GetMetric() {
		out[labelValue(m, "path")+" "+labelValue(m, "status")] += m.GetCounter().GetValue()
	}
	return out
}

func TestHTTPMiddleware_LabelsSessionRoutesByPattern(t *testing.T) {
	reg := NewRegistry()
	h := sessionMux(t, reg)

	for _, id := range []string{"a1", "b2", "c3"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+id+"/series", nil))
	}
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/sessions/gone/refresh", nil))

	assert.Equal(t, map[string]float64{
		"GET /api/v1/sessions/{id}/series 2xx":    3,
		"POST /api/v1/sessions/{id}/refresh 4xx": 1,
	}, requestCounts(t, reg))
	assert.Equal(t, 0.0, gaugeValue(t, reg, "http_requests_in_flight"))
}

func TestHTTPMiddleware_UnroutedPathFallsBackToURL(t *testing.T) {
	reg := NewRegistry()
	h := sessionMux(t, reg)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	assert.Equal(t, map[string]float64{"/nowhere 4xx": 1}, requestCounts(t, reg))
}

func TestStatusToString(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusContinue, "1xx"},
		{http.StatusCreated, "2xx"},
		{http.StatusNoContent, "2xx"},
		{http.StatusFound, "3xx"},
		{http.StatusUnprocessableEntity, "4xx"},
		{http.StatusNotImplemented, "5xx"},
		{http.StatusBadGateway, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusToString(tt.status), "status %d", tt.status)
	}
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{"generated", ""},
		{"reused", "req-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			h := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			got := w.Header().Get(RequestIDHeader)
			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, got)
			} else {
				_, err := uuid.Parse(got)
				assert.NoError(t, err, "generated id should be a uuid")
			}

			entries := logs.FilterMessage("http request").All()
			require.Len(t, entries, 1)
			fields := entries[0].ContextMap()
			assert.Equal(t, got, fields["request_id"])
			assert.Equal(t, int64(http.StatusCreated), fields["status"])
			assert.Equal(t, "/api/v1/sessions", fields["path"])
		})
	}
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "192.168.1.1:12345"},
		{"first forwarded hop", "203.0.113.50, 70.41.3.18", "203.0.113.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.InfoLevel)
			h := LoggingMiddleware(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.want, logs.All()[0].ContextMap()["client_ip"])
		})
	}
}
