package repository

import (
	"context"

	"github.com/xailab/xai-review/internal/datastore/entities"
)

// MaskRepository provides access to the masks table.
type MaskRepository interface {
	// GetByIdentity retrieves a mask by (image_id, mask_type, filename).
	// Returns ErrMaskNotFound if not found.
	GetByIdentity(ctx context.Context, frameID uint, kind entities.MaskKind, filename string) (*entities.Mask, error)

	// CreateIfAbsent inserts mask unless its identity already exists and
	// reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, mask *entities.Mask) (bool, error)

	// ListByFrame returns the masks of one frame ordered by id.
	ListByFrame(ctx context.Context, frameID uint) ([]entities.Mask, error)

	// CountOwned counts how many of maskIDs belong to frameID.
	CountOwned(ctx context.Context, frameID uint, maskIDs []uint) (int64, error)

	// Count returns the number of masks.
	Count(ctx context.Context) (int64, error)
}
