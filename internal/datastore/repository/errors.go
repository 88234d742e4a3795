// Package repository provides data access for frames, masks, users and
// preferences on top of GORM.
package repository

import "github.com/xailab/xai-review/internal/errors"

// Sentinel errors for repository operations.
// These typed errors enable callers to distinguish between different
// failure modes without relying on string matching or GORM-specific errors.
var (
	// ErrFrameNotFound indicates the requested frame does not exist.
	ErrFrameNotFound = errors.NewStd("frame not found")

	// ErrMaskNotFound indicates the requested mask does not exist.
	ErrMaskNotFound = errors.NewStd("mask not found")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.NewStd("user not found")

	// ErrPreferenceNotFound indicates the requested preference does not exist.
	ErrPreferenceNotFound = errors.NewStd("preference not found")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)
