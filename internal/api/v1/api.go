// Package api implements the review JSON endpoints. Every route is served
// both at the root and under /api/v1; ingestion is only reachable under
// /api/v1.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/securefs"
)

// Prefix is the versioned route group.
const Prefix = "/api/v1"

// Default image set cache lifetimes.
const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCacheCleanupInt = 10 * time.Minute
)

// GetLogger returns the v1 API logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Controller manages the review API routes and handlers.
type Controller struct {
	Echo   *echo.Echo
	Group  *echo.Group
	Store  *repository.Store
	Ingest *ingest.Service

	loader           *securefs.Loader
	imageSetCache    *cache.Cache
	pinger           Pinger
	build            *buildinfo.Context
	ingestMiddleware []echo.MiddlewareFunc
	startTime        time.Time
	log              logger.Logger
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithImageSetCache shares c with the caller, typically so ingestion can
// flush it.
func WithImageSetCache(c *cache.Cache) Option {
	return func(ctrl *Controller) {
		if c != nil {
			ctrl.imageSetCache = c
		}
	}
}

// WithPinger sets the database health probe.
func WithPinger(p Pinger) Option {
	return func(c *Controller) {
		c.pinger = p
	}
}

// WithBuildInfo sets the version reported by the health endpoint.
func WithBuildInfo(b *buildinfo.Context) Option {
	return func(c *Controller) {
		c.build = b
	}
}

// WithIngestMiddleware wraps the ingest route, e.g. with a rate limiter.
func WithIngestMiddleware(mw ...echo.MiddlewareFunc) Option {
	return func(c *Controller) {
		c.ingestMiddleware = append(c.ingestMiddleware, mw...)
	}
}

// New creates a Controller and registers its routes on e.
func New(e *echo.Echo, store *repository.Store, sfs *securefs.SecureFS, svc *ingest.Service, opts ...Option) (*Controller, error) {
	switch {
	case e == nil:
		return nil, errors.NewStd("echo instance is required")
	case store == nil:
		return nil, errors.NewStd("store is required")
	case sfs == nil:
		return nil, errors.NewStd("secure filesystem is required")
	case svc == nil:
		return nil, errors.NewStd("ingest service is required")
	}

	c := &Controller{
		Echo:      e,
		Group:     e.Group(Prefix),
		Store:     store,
		Ingest:    svc,
		loader:    securefs.NewLoader(sfs),
		startTime: time.Now(),
		log:       GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.imageSetCache == nil {
		c.imageSetCache = cache.New(DefaultCacheTTL, DefaultCacheCleanupInt)
	}

	c.initRoutes()
	return c, nil
}

// routeGroup is satisfied by both *echo.Echo and *echo.Group.
type routeGroup interface {
	GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
	POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/", c.Root)
	c.Group.GET("/", c.Root)
	c.Group.GET("/health", c.HealthCheck)
	c.Echo.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func(routeGroup)
	}{
		{"image routes", c.initImageRoutes},
		{"file routes", c.initFileRoutes},
		{"user routes", c.initUserRoutes},
		{"preference routes", c.initPreferenceRoutes},
	}

	for _, g := range []routeGroup{c.Echo, c.Group} {
		for _, initializer := range routeInitializers {
			initializer.fn(g)
		}
	}
	c.initIngestRoutes()

	c.log.Debug("Routes initialized", logger.Int("route_groups", len(routeInitializers)+1))
}

// Root answers liveness probes with plain text.
func (c *Controller) Root(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "API is running!")
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status         string        `json:"status"`
	Version        string        `json:"version"`
	BuildDate      string        `json:"build_date"`
	Timestamp      string        `json:"timestamp"`
	DatabaseStatus string        `json:"database_status"`
	Uptime         string        `json:"uptime"`
	Process        *ProcessStats `json:"process,omitempty"`
}

// HealthCheck reports service and database status. An unreachable database
// answers 503.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	resp := HealthResponse{
		Status:         "healthy",
		Version:        c.build.Version(),
		BuildDate:      c.build.BuildDate(),
		Timestamp:      time.Now().Format(time.RFC3339),
		DatabaseStatus: "unknown",
		Uptime:         time.Since(c.startTime).Round(time.Second).String(),
		Process:        processStats(ctx.Request().Context()),
	}

	code := http.StatusOK
	if c.pinger != nil {
		if err := c.pinger.Ping(ctx.Request().Context()); err != nil {
			c.log.Warn("Database health check failed", logger.Error(err))
			resp.Status = "unhealthy"
			resp.DatabaseStatus = "disconnected"
			code = http.StatusServiceUnavailable
		} else {
			resp.DatabaseStatus = "connected"
		}
	}
	return ctx.JSON(code, resp)
}

// Shutdown drops cached image sets.
func (c *Controller) Shutdown() {
	c.imageSetCache.Flush()
}
