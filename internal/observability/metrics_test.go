package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "go_goroutines")
	assert.Contains(t, rr.Body.String(), "go_build_info")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `seafood_http_requests_total{code="418",method="POST",route="/test"} 1`)
	assert.Contains(t, body, `seafood_http_request_duration_seconds_bucket{route="/test"`)
	assert.Contains(t, body, `seafood_http_response_bytes_total{route="/test"} 15`)
	assert.Contains(t, body, "seafood_http_requests_in_flight 0")
}

func TestMetricsMiddlewareCountsInFlight(t *testing.T) {
	metrics := NewMetrics()

	var during string
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		during = scrape(t, metrics)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	assert.Contains(t, during, "seafood_http_requests_in_flight 1")
	after := scrape(t, metrics)
	assert.Contains(t, after, "seafood_http_requests_in_flight 0")
	assert.Contains(t, after, `seafood_http_requests_total{code="200",method="GET",route="unmatched"} 1`)
}

func TestMetricsMiddlewareSkipsScrapes(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(metrics.Handler())

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}

	body := scrape(t, metrics)
	assert.NotContains(t, body, "seafood_http_requests_total{")
	assert.Contains(t, body, `promhttp_metric_handler_requests_total{code="200"} 3`)
}

func TestNilMetricsHandlerIsUnavailable(t *testing.T) {
	var metrics *Metrics
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestOrderMetrics(t *testing.T) {
	metrics := NewMetrics()
	om := NewOrderMetrics(metrics.Registerer())

	om.OrderCreated(decimal.RequireFromString("15.50"))
	om.OrderCreated(decimal.RequireFromString("4.50"))
	om.OrderTransitioned("placed", "cancelled")
	om.OrderRejected("create", "insufficient_stock")
	om.OrderRetried("transition")

	body := scrape(t, metrics)
	assert.Contains(t, body, "seafood_orders_created_total 2")
	assert.Contains(t, body, "seafood_orders_value_total 20")
	assert.Contains(t, body, `seafood_order_transitions_total{from="placed",to="cancelled"} 1`)
	assert.Contains(t, body, `seafood_order_rejections_total{op="create",reason="insufficient_stock"} 1`)
	assert.Contains(t, body, `seafood_order_retries_total{op="transition"} 1`)

	var nilMetrics *OrderMetrics
	nilMetrics.OrderCreated(decimal.Zero)
}

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{}).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, MetricsPath, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}
