// Package ingest discovers patient directories under the data root,
// classifies every file as an original frame or an explainability mask and
// records them idempotently in the database.
package ingest

import (
	"context"
	"fmt"

	"github.com/xailab/xai-review/internal/errors"
	"github.com/xailab/xai-review/internal/logger"
	"github.com/xailab/xai-review/internal/securefs"
)

// GetLogger returns the ingest module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("ingest")
}

// Sentinel errors. Every error returned by this package unwraps to one of
// these through errors.Is.
var (
	// ErrNotFound indicates a missing file or directory.
	ErrNotFound = securefs.ErrNotFound

	// ErrInvalidPath indicates a path that escapes the data root.
	ErrInvalidPath = securefs.ErrInvalidPath

	// ErrAmbiguousOrigin indicates a mask filename with no "video_" part to
	// recover its frame from.
	ErrAmbiguousOrigin = errors.NewStd("ambiguous origin: mask filename has no source frame name")

	// ErrStorage indicates a database failure.
	ErrStorage = errors.NewStd("storage error")

	// ErrFilesystem indicates a directory listing or read failure.
	ErrFilesystem = errors.NewStd("filesystem error")

	// ErrIngestionInProgress indicates another run holds the ingestion lock.
	ErrIngestionInProgress = errors.NewStd("ingestion already in progress")
)

// Error kinds as they appear in reports.
const (
	KindAmbiguousOrigin = "ambiguous_origin"
	KindStorage         = "storage"
	KindFilesystem      = "filesystem"
	KindNotFound        = "not_found"
	KindInvalidPath     = "invalid_path"
	KindCancelled       = "cancelled"
	KindUnknown         = "unknown"
)

// ErrorKind maps an error to its report kind.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrAmbiguousOrigin):
		return KindAmbiguousOrigin
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrInvalidPath):
		return KindInvalidPath
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrFilesystem):
		return KindFilesystem
	default:
		return KindUnknown
	}
}

func storageError(err error, operation string) error {
	return errors.New(fmt.Errorf("%w: %s: %w", ErrStorage, operation, err)).
		Component("ingest").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

func filesystemError(err error, directory string) error {
	return errors.New(fmt.Errorf("%w: %w", ErrFilesystem, err)).
		Component("ingest").
		Category(errors.CategoryFileIO).
		Context("directory", directory).
		Build()
}

func invalidPatientError(name string) error {
	return errors.New(fmt.Errorf("%w: patient directory %q is not a plain directory name", ErrInvalidPath, name)).
		Component("ingest").
		Category(errors.CategoryValidation).
		Context("patient", name).
		Build()
}
