package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/entities"
)

// maskRepository implements MaskRepository.
type maskRepository struct {
	db *gorm.DB
}

// NewMaskRepository creates a new MaskRepository.
func NewMaskRepository(db *gorm.DB) MaskRepository {
	return &maskRepository{db: db}
}

// GetByIdentity retrieves a mask by its unique triple.
func (r *maskRepository) GetByIdentity(ctx context.Context, frameID uint, kind entities.MaskKind, filename string) (*entities.Mask, error) {
	var mask entities.Mask
	err := r.db.WithContext(ctx).
		Where("image_id = ? AND mask_type = ? AND filename = ?", frameID, kind, filename).
		First(&mask).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mask, nil
}

// CreateIfAbsent inserts mask, doing nothing on a unique conflict.
func (r *maskRepository) CreateIfAbsent(ctx context.Context, mask *entities.Mask) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(mask)
	if result.Error != nil {
		if datastore.IsUniqueViolation(result.Error) {
			mask.ID = 0
			return false, nil
		}
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		mask.ID = 0
		return false, nil
	}
	return true, nil
}

// ListByFrame returns the masks of one frame ordered by id.
func (r *maskRepository) ListByFrame(ctx context.Context, frameID uint) ([]entities.Mask, error) {
	var masks []entities.Mask
	err := r.db.WithContext(ctx).
		Where("image_id = ?", frameID).
		Order("id ASC").
		Find(&masks).Error
	return masks, err
}

// CountOwned counts how many of maskIDs belong to frameID.
func (r *maskRepository) CountOwned(ctx context.Context, frameID uint, maskIDs []uint) (int64, error) {
	if len(maskIDs) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entities.Mask{}).
		Where("image_id = ? AND id IN ?", frameID, maskIDs).
		Count(&count).Error
	return count, err
}

// Count returns the number of masks.
func (r *maskRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Mask{}).Count(&count).Error
	return count, err
}
