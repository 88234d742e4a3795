// Package securefs resolves and reads files under a fixed data root.
// Containment is checked on canonical paths only: both the root and the
// candidate are made absolute and symlink-free before comparison.
package securefs

import (
	"fmt"

	"github.com/xailab/xai-review/internal/errors"
)

// Sentinel errors for the securefs package.
// These errors can be used with errors.Is to check for specific error conditions.
var (
	// ErrNotFound indicates the requested path does not exist or cannot be opened.
	ErrNotFound = errors.NewStd("securefs: not found")

	// ErrInvalidPath indicates a path that resolves outside the data root or
	// cannot be canonicalized.
	ErrInvalidPath = errors.NewStd("securefs: invalid path")

	// ErrPathTraversal is the ErrInvalidPath case where the canonical target
	// lies outside the root.
	ErrPathTraversal = fmt.Errorf("%w: path escapes data root", ErrInvalidPath)

	// ErrNotRegularFile indicates an attempt to read something that is not a
	// regular file. ReadFile reports it together with ErrNotFound.
	ErrNotRegularFile = errors.NewStd("securefs: not a regular file")

	// ErrFileTooLarge is returned when a file exceeds the configured size limit
	ErrFileTooLarge = errors.NewStd("securefs: file size exceeds maximum allowed size")
)
