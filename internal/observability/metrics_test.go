package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRoutePattern(t *testing.T) {
	metrics := NewMetrics()
	router := chi.NewRouter()
	router.Use(metrics.Middleware)
	router.Get("/albums/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/albums/a1", nil))
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `odyssey_http_requests_total{code="418",method="GET",route="/albums/{id}"} 1`)
	assert.Contains(t, body, `odyssey_http_request_duration_seconds_bucket{method="GET",route="/albums/{id}"`)
	assert.Contains(t, body, "odyssey_http_requests_in_flight 0")
}

func TestRegistererServesComponentCollectors(t *testing.T) {
	metrics := NewMetrics()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "odyssey_component_total", Help: "test"})
	metrics.Registerer().MustRegister(counter)
	counter.Inc()

	assert.Contains(t, scrape(t, metrics), "odyssey_component_total 1")
}

func TestNilMetricsIsUnavailable(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, metrics.Middleware(next))
}
