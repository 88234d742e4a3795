package api

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	mw "github.com/xailab/xai-review/internal/api/middleware"
	v1 "github.com/xailab/xai-review/internal/api/v1"
	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/ingest"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/observability"
	"github.com/xailab/xai-review/internal/observability/metrics"
	"github.com/xailab/xai-review/internal/securefs"
)

// Server is the HTTP server for xai-review.
// It manages the Echo instance, middleware, and all HTTP routes.
type Server struct {
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	log      logger.Logger

	// Dependencies
	store         *repository.Store
	fs            *securefs.SecureFS
	ingest        *ingest.Service
	metrics       *observability.Metrics
	pinger        v1.Pinger
	build         *buildinfo.Context
	imageSetCache *cache.Cache

	apiController *v1.Controller
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithStore sets the repositories.
func WithStore(store *repository.Store) ServerOption {
	return func(s *Server) {
		s.store = store
	}
}

// WithSecureFS sets the data root files are served from.
func WithSecureFS(sfs *securefs.SecureFS) ServerOption {
	return func(s *Server) {
		s.fs = sfs
	}
}

// WithIngestService sets the service behind POST /api/v1/ingest.
func WithIngestService(svc *ingest.Service) ServerOption {
	return func(s *Server) {
		s.ingest = svc
	}
}

// WithMetrics enables request metrics and the exposition endpoint.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithPinger sets the database probe used by the health endpoint.
func WithPinger(p v1.Pinger) ServerOption {
	return func(s *Server) {
		s.pinger = p
	}
}

// WithBuildInfo sets the reported version.
func WithBuildInfo(b *buildinfo.Context) ServerOption {
	return func(s *Server) {
		s.build = b
	}
}

// WithImageSetCache shares the image set cache, usually the one passed to
// FlushImageSetsOnIngest.
func WithImageSetCache(c *cache.Cache) ServerOption {
	return func(s *Server) {
		s.imageSetCache = c
	}
}

// NewImageSetCache creates the image set cache with the given lifetime.
func NewImageSetCache(ttl time.Duration) *cache.Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return cache.New(ttl, 2*ttl)
}

// FlushImageSetsOnIngest drops cached image sets after every ingestion run
// that created records, so new masks show up immediately.
func FlushImageSetsOnIngest(c *cache.Cache) ingest.Option {
	return ingest.OnRecordsCreated(func(report *ingest.Report) {
		c.Flush()
		GetLogger().Debug("Image set cache flushed",
			logger.String("run_id", report.RunID),
			logger.Int("records_created", report.RecordsCreated()))
	})
}

// New creates a Server. Store, SecureFS and ingest service are required.
func New(settings *conf.Settings, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	s := &Server{
		config:   config,
		settings: settings,
		log:      GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.imageSetCache == nil {
		s.imageSetCache = NewImageSetCache(config.CacheTTL)
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Debug = config.Debug

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("failed to setup routes: %w", err)
	}

	s.log.Info("HTTP server initialized",
		logger.String("address", config.Addr),
		logger.String("body_limit", config.BodyLimit),
		logger.Bool("metrics", config.MetricsEnabled),
		logger.Bool("debug", config.Debug))

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(logger.Global().Module("access")))

	var httpMetrics *metrics.HTTPMetrics
	if s.config.MetricsEnabled && s.metrics != nil {
		httpMetrics = s.metrics.HTTP
	}
	s.echo.Use(mw.NewMetrics(httpMetrics))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	s.echo.Use(mw.NewCORS(securityConfig))
	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	opts := []v1.Option{
		v1.WithImageSetCache(s.imageSetCache),
		v1.WithBuildInfo(s.build),
		v1.WithIngestMiddleware(mw.NewIngestRateLimiter(s.config.IngestRateLimit)),
	}
	if s.pinger != nil {
		opts = append(opts, v1.WithPinger(s.pinger))
	}

	apiController, err := v1.New(s.echo, s.store, s.fs, s.ingest, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API v1: %w", err)
	}
	s.apiController = apiController
	s.echo.HTTPErrorHandler = apiController.HTTPErrorHandler

	if s.config.MetricsEnabled {
		if s.metrics == nil {
			return errors.NewStd("metrics enabled but no registry configured")
		}
		s.echo.GET(s.config.MetricsPath, echo.WrapHandler(s.metrics.Handler()))
	}

	s.log.Info("Routes initialized",
		logger.String("api_version", "v1"),
		logger.Int("routes", len(s.echo.Routes())))
	return nil
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Serve errors are delivered on the returned channel, which is
// closed when serving stops.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := s.startBlocking(); err != nil {
			s.log.Error("Server error", logger.Error(err))
			errCh <- err
		}
	}()
	return errCh
}

// startBlocking begins serving HTTP requests and blocks until the server is shut down.
func (s *Server) startBlocking() error {
	s.log.Info("Starting HTTP server", logger.String("address", s.config.Addr))

	err := s.echo.Start(s.config.Addr)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// StartWithGracefulShutdown serves until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down within the configured timeout.
func (s *Server) StartWithGracefulShutdown(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := s.Start()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutdown signal received, initiating graceful shutdown")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if s.apiController != nil {
		s.apiController.Shutdown()
	}

	if err := s.echo.Shutdown(ctx); err != nil {
		s.log.Error("Error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}

	s.log.Info("Server shutdown complete")
	return nil
}

// APIController returns the v1 controller.
func (s *Server) APIController() *v1.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
