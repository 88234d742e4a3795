package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/observability/metrics"
)

func serve(e *echo.Echo, method, target string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestMetricsMiddlewareRecordsRouteTemplate(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewHTTPMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewMetrics(m))
	e.GET("/images/:id/set", ok)
	e.GET("/fail", func(echo.Context) error {
		return echo.NewHTTPError(http.StatusBadRequest, "nope")
	})

	serve(e, http.MethodGet, "/images/1/set", nil)
	serve(e, http.MethodGet, "/images/2/set", nil)
	rec := serve(e, http.MethodGet, "/fail", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	expected := `
		# HELP xai_http_requests_total Total number of HTTP requests
		# TYPE xai_http_requests_total counter
		xai_http_requests_total{method="GET",route="/fail",status="400"} 1
		xai_http_requests_total{method="GET",route="/images/:id/set",status="200"} 2
	`
	require.NoError(t, testutil.CollectAndCompare(m, bytes.NewBufferString(expected), "xai_http_requests_total"))
}

func TestMetricsMiddlewareNilIsPassthrough(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewMetrics(nil))
	e.GET("/", ok)

	rec := serve(e, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestIngestRateLimiter(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.POST("/ingest", ok, NewIngestRateLimiter(0.001))

	first := serve(e, http.MethodPost, "/ingest", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := serve(e, http.MethodPost, "/ingest", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	// Buckets are per client.
	other := serve(e, http.MethodPost, "/ingest", map[string]string{echo.HeaderXRealIP: "10.0.0.2"})
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestIngestRateLimiterDisabled(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.POST("/ingest", ok, NewIngestRateLimiter(0))

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/ingest", nil).Code)
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(NewCORS(SecurityConfig{}))
	e.GET("/images", ok)

	rec := serve(e, http.MethodOptions, "/images", map[string]string{
		echo.HeaderOrigin:                     DefaultAllowedOrigin,
		echo.HeaderAccessControlRequestMethod: http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, DefaultAllowedOrigin, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Equal(t, "GET,POST,PUT,DELETE", rec.Header().Get(echo.HeaderAccessControlAllowMethods))
	assert.Equal(t, echo.HeaderContentType, rec.Header().Get(echo.HeaderAccessControlAllowHeaders))

	rec = serve(e, http.MethodGet, "/images", map[string]string{echo.HeaderOrigin: "http://evil.example"})
	assert.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelInfo)

	e := echo.New()
	e.Use(NewRequestID())
	e.Use(NewRequestLogger(log))
	e.GET("/users", ok)

	rec := serve(e, http.MethodGet, "/users?x=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	requestID := rec.Header().Get(echo.HeaderXRequestID)
	require.NotEmpty(t, requestID)

	out := buf.String()
	assert.Contains(t, out, "/users?x=1")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, requestID)
}
