package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devfolio/portfolio/internal/metrics"
)

func TestRequestLoggerUsesRoutePattern(t *testing.T) {
	var buf strings.Builder
	r := chi.NewRouter()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.Get("/project/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/project/42", nil))

	out := buf.String()
	assert.Contains(t, out, `"route":"/project/{id}"`)
	assert.Contains(t, out, `"path":"/project/42"`)
	assert.Contains(t, out, `"status":418`)
}

func TestPrometheusCountsByRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Prometheus)
	r.Get("/project/{id}", func(w http.ResponseWriter, r *http.Request) {})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/project/{id}", "200")
	before := testutil.ToFloat64(counter)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/project/7", nil))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestIPRateLimiter(t *testing.T) {
	limit, err := NewIPRateLimiter("2-M")
	require.NoError(t, err)
	h := limit(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestIPRateLimiterDisabledAndInvalid(t *testing.T) {
	limit, err := NewIPRateLimiter("")
	require.NoError(t, err)
	assert.NotNil(t, limit)

	_, err = NewIPRateLimiter("lots")
	assert.Error(t, err)
}

func TestSecureHeaders(t *testing.T) {
	h := SecureHeaders(false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}
