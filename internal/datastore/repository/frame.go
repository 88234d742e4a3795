package repository

import (
	"context"

	"github.com/xailab/xai-review/internal/datastore/entities"
)

// FrameRepository provides access to the images table.
type FrameRepository interface {
	// GetByID retrieves a frame by its ID.
	// Returns ErrFrameNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.Frame, error)

	// GetByPatientAndFilename retrieves a frame by its natural key.
	// Returns ErrFrameNotFound if not found.
	GetByPatientAndFilename(ctx context.Context, patient, filename string) (*entities.Frame, error)

	// FirstByPatient returns the lowest-id frame of a patient.
	// Returns ErrFrameNotFound if the patient has no frames.
	FirstByPatient(ctx context.Context, patient string) (*entities.Frame, error)

	// CreateIfAbsent inserts frame unless (patient_nb, filename) already
	// exists. It reports whether a row was inserted; when it was not, frame.ID
	// is left unset and callers should look the row up.
	CreateIfAbsent(ctx context.Context, frame *entities.Frame) (bool, error)

	// List returns all frames ordered by id.
	List(ctx context.Context) ([]entities.Frame, error)

	// ListByPatient returns a patient's frames ordered by id.
	ListByPatient(ctx context.Context, patient string) ([]entities.Frame, error)

	// HighWaterMark returns the largest numeric patient number formatted
	// with width digits of zero padding. ok is false when no frame has a
	// numeric patient number.
	HighWaterMark(ctx context.Context, width int) (mark string, ok bool, err error)

	// NextUnrated returns the lowest-id frame the user has no preference for.
	// Returns ErrFrameNotFound when every frame has been rated.
	NextUnrated(ctx context.Context, userID uint) (*entities.Frame, error)

	// Count returns the number of frames.
	Count(ctx context.Context) (int64, error)
}
