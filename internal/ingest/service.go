package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/singleflight"

	"github.com/xailab/xai-review/internal/datastore/repository"
	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/observability/metrics"
	"github.com/xailab/xai-review/internal/securefs"
)

// DefaultLockFileName is created in the system temp directory when no lock
// file is configured.
const DefaultLockFileName = "xai-review-ingest.lock"

// Recorder receives run outcomes. *metrics.IngestMetrics implements it.
type Recorder interface {
	RunStarted()
	RunFinished()
	RecordRun(status string, seconds float64)
	RecordRecords(record, outcome string, n int)
	RecordSkipped(n int)
	RecordError(kind string)
}

type noopRecorder struct{}

func (noopRecorder) RunStarted()                       {}
func (noopRecorder) RunFinished()                      {}
func (noopRecorder) RecordRun(string, float64)         {}
func (noopRecorder) RecordRecords(string, string, int) {}
func (noopRecorder) RecordSkipped(int)                 {}
func (noopRecorder) RecordError(string)                {}

// Service coordinates ingestion runs. Concurrent triggers inside one process
// share a single run; a run in another process is detected through an
// advisory file lock and reported as ErrIngestionInProgress.
type Service struct {
	fs       *securefs.SecureFS
	store    *repository.Store
	width    int
	lockPath string
	recorder Recorder
	hooks    []func(*Report)
	group    singleflight.Group
	log      logger.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder reports run outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLockFile sets the advisory lock path. Empty keeps the default.
func WithLockFile(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.lockPath = path
		}
	}
}

// OnRecordsCreated registers fn to run after any run that inserted rows.
func OnRecordsCreated(fn func(*Report)) Option {
	return func(s *Service) {
		s.hooks = append(s.hooks, fn)
	}
}

// NewService creates a Service. width is the zero-padded patient number
// width used for the high-water mark.
func NewService(sfs *securefs.SecureFS, store *repository.Store, width int, opts ...Option) *Service {
	s := &Service{
		fs:       sfs,
		store:    store,
		width:    width,
		lockPath: filepath.Join(os.TempDir(), DefaultLockFileName),
		recorder: noopRecorder{},
		log:      GetLogger().Module("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LockPath returns the advisory lock file in use.
func (s *Service) LockPath() string {
	return s.lockPath
}

// Run ingests every patient directory newer than the high-water mark.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	return s.do(ctx, "incremental", NewScanner(s.fs, s.store.Frames, s.width))
}

// RunPatients re-ingests the named patient directories. Every name must be
// a plain directory name under the data root; otherwise nothing runs.
func (s *Service) RunPatients(ctx context.Context, patients []string) (*Report, error) {
	source := NewFixedDirectories(s.fs, patients)
	for _, n := range source.names {
		if !ValidPatientName(n) {
			return nil, invalidPatientError(n)
		}
	}
	if len(source.names) == 0 {
		return nil, errors.New(fmt.Errorf("%w: no patient names given", ErrInvalidPath)).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}
	key := slices.Clone(source.names)
	slices.Sort(key)
	return s.do(ctx, "patients:"+strings.Join(key, ","), source)
}

func (s *Service) do(ctx context.Context, key string, source DirectorySource) (*Report, error) {
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.execute(ctx, source)
	})
	if shared {
		s.log.Debug("Joined ingestion run already in flight", logger.String("key", key))
	}
	report, _ := v.(*Report)
	return report, err
}

// execute runs the pipeline under the file lock.
func (s *Service) execute(ctx context.Context, source DirectorySource) (*Report, error) {
	lock := flock.New(s.lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: acquire lock: %w", ErrFilesystem, err)).
			Component("ingest").
			Category(errors.CategoryFileIO).
			Context("lock_file", s.lockPath).
			Build()
	}
	if !locked {
		s.log.Warn("Ingestion lock held by another run", logger.String("lock_file", s.lockPath))
		return nil, errors.New(ErrIngestionInProgress).
			Component("ingest").
			Category(errors.CategoryConflict).
			Context("lock_file", s.lockPath).
			Build()
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.log.Warn("Failed to release ingestion lock",
				logger.String("lock_file", s.lockPath),
				logger.Error(err))
		}
	}()

	s.recorder.RunStarted()
	defer s.recorder.RunFinished()

	start := time.Now()
	report, err := NewPipeline(s.fs, s.store, source).Run(ctx)
	s.record(report, err, time.Since(start))

	if report != nil && report.RecordsCreated() > 0 {
		for _, hook := range s.hooks {
			hook(report)
		}
	}
	return report, err
}

// RunStatus classifies a finished run for metrics and CLI exit codes.
func RunStatus(report *Report, err error) string {
	switch {
	case err != nil || report == nil:
		return metrics.StatusFailed
	case report.HasErrors():
		return metrics.StatusPartial
	default:
		return metrics.StatusSuccess
	}
}

func (s *Service) record(report *Report, err error, elapsed time.Duration) {
	s.recorder.RecordRun(RunStatus(report, err), elapsed.Seconds())
	if report == nil {
		s.recorder.RecordError(ErrorKind(err))
		return
	}
	s.recorder.RecordRecords(metrics.RecordFrame, metrics.OutcomeCreated, report.FramesCreated)
	s.recorder.RecordRecords(metrics.RecordFrame, metrics.OutcomeExisting, report.FramesExisting)
	s.recorder.RecordRecords(metrics.RecordMask, metrics.OutcomeCreated, report.MasksCreated)
	s.recorder.RecordRecords(metrics.RecordMask, metrics.OutcomeExisting, report.MasksExisting)
	s.recorder.RecordSkipped(report.Skipped)
	for _, e := range report.Errors {
		s.recorder.RecordError(e.Kind)
	}
}
