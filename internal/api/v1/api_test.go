package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"runtime"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xailab/xai-review/internal/errors"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.NewStd("connection refused") }

func TestRoot(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, target := range []string{"/", "/api/v1/"} {
		rec := env.do(t, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusOK, rec.Code, target)
		assert.Equal(t, "API is running!", rec.Body.String(), target)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	for _, target := range []string{"/health", "/api/v1/health"} {
		rec := env.do(t, http.MethodGet, target, nil)
		require.Equal(t, http.StatusOK, rec.Code, target)

		var resp HealthResponse
		decode(t, rec, &resp)
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "1.2.3", resp.Version)
		assert.Equal(t, "2026-01-01", resp.BuildDate)
		assert.Equal(t, "connected", resp.DatabaseStatus)
		assert.NotEmpty(t, resp.Timestamp)
	}
}

func TestProcessStats(t *testing.T) {
	t.Parallel()
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" && runtime.GOOS != "windows" {
		t.Skip("process memory counters unavailable")
	}

	stats := processStats(t.Context())
	require.NotNil(t, stats)
	assert.Equal(t, int32(os.Getpid()), stats.PID)
	assert.NotEmpty(t, stats.Resident)
	assert.Positive(t, stats.Goroutines)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t, WithPinger(failingPinger{}))

	rec := env.do(t, http.MethodGet, "/api/v1/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	decode(t, rec, &resp)
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "disconnected", resp.DatabaseStatus)
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := New(echo.New(), nil, nil, nil)
	require.Error(t, err)
}

func TestUnknownRouteUsesErrorResponse(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	resp := requireError(t, env.do(t, http.MethodGet, "/does-not-exist", nil), http.StatusNotFound)
	assert.Equal(t, http.StatusText(http.StatusNotFound), resp.Message)
}

func TestErrorResponseReusesRequestID(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.e.Use(middleware.RequestID())

	req := httptest.NewRequest(http.MethodGet, "/images/id/99", http.NoBody)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)

	resp := requireError(t, rec, http.StatusNotFound)
	assert.Equal(t, "req-123", resp.CorrelationID)
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"echo http error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests},
		{"validation category", errors.New(errors.NewStd("bad")).Category(errors.CategoryValidation).Build(), http.StatusBadRequest},
		{"not found category", errors.New(errors.NewStd("gone")).Category(errors.CategoryNotFound).Build(), http.StatusNotFound},
		{"conflict category", errors.New(errors.NewStd("busy")).Category(errors.CategoryConflict).Build(), http.StatusConflict},
		{"mask not owned", errMaskNotOwned, http.StatusBadRequest},
		{"anything else", errors.NewStd("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}
