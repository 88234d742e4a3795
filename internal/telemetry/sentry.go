// Package telemetry provides opt-in error tracking through Sentry.
package telemetry

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/xailab/xai-review/internal/buildinfo"
	"github.com/xailab/xai-review/internal/conf"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
)

var (
	initMu      sync.Mutex
	initialized bool
)

// GetLogger returns the telemetry module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK and routes enhanced errors to it.
// It does nothing unless sentry.enabled is set.
func InitSentry(settings *conf.Settings, build *buildinfo.Context) error {
	return initSentry(settings, build)
}

// initSentry lets tests adjust client options, such as the transport.
func initSentry(settings *conf.Settings, build *buildinfo.Context, opts ...func(*sentry.ClientOptions)) error {
	if !settings.Sentry.Enabled {
		GetLogger().Debug("Sentry telemetry is disabled")
		return nil
	}

	options := sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("xai-review@%s", build.Version()),
		BeforeSend:       beforeSend,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := sentry.Init(options); err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))

	initMu.Lock()
	initialized = true
	initMu.Unlock()

	GetLogger().Info("Sentry telemetry initialized",
		logger.String("environment", settings.Sentry.Environment),
		logger.String("release", build.Version()))
	return nil
}

// beforeSend strips data that identifies the host or its users.
func beforeSend(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Headers = nil
	}
	return event
}

// Flush waits up to timeout for buffered events to be sent.
func Flush(timeout time.Duration) {
	initMu.Lock()
	active := initialized
	initMu.Unlock()
	if !active {
		return
	}
	if !sentry.Flush(timeout) {
		GetLogger().Warn("Sentry flush timed out", logger.Duration("timeout", timeout))
	}
}

// Shutdown flushes pending events and detaches the error reporter.
func Shutdown(timeout time.Duration) {
	Flush(timeout)
	errors.SetTelemetryReporter(nil)

	initMu.Lock()
	initialized = false
	initMu.Unlock()
}
