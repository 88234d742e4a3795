package middleware

import (
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/xailab/xai-review/internal/observability/metrics"
)

// unmatchedRoute labels requests that hit no registered route, so scanners
// probing random paths cannot blow up label cardinality.
const unmatchedRoute = "unmatched"

// NewMetrics records request count, latency and response size per route
// template. A nil recorder disables it.
func NewMetrics(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if m == nil {
			return next
		}
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			// Errors returned to echo have not been written yet; let the
			// error handler produce the final status first. It skips
			// committed responses, so echo's second call is a no-op.
			if err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" || strings.HasSuffix(route, "/*") {
				route = unmatchedRoute
			}
			method := c.Request().Method
			m.RecordHTTPRequest(method, route, c.Response().Status, time.Since(start).Seconds())
			m.RecordHTTPResponseSize(method, route, c.Response().Size)
			return err
		}
	}
}
