package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xailab/xai-review/internal/datastore/entities"
)

// preferenceRepository implements PreferenceRepository.
type preferenceRepository struct {
	db *gorm.DB
}

// NewPreferenceRepository creates a new PreferenceRepository.
func NewPreferenceRepository(db *gorm.DB) PreferenceRepository {
	return &preferenceRepository{db: db}
}

// preloadEventsByRank orders preloaded events. rank is reserved in MySQL 8,
// so the column goes through the quoting clause builder.
func preloadEventsByRank(db *gorm.DB) *gorm.DB {
	return db.Order(clause.OrderBy{Columns: []clause.OrderByColumn{
		{Column: clause.Column{Name: "rank"}},
		{Column: clause.Column{Name: "id"}},
	}})
}

// Replace stores a new preference for (userID, frameID), removing the old one.
func (r *preferenceRepository) Replace(ctx context.Context, userID, frameID uint, events []entities.PreferenceEvent) (*entities.Preference, error) {
	db := r.db.WithContext(ctx)

	var existing []uint
	if err := db.Model(&entities.Preference{}).
		Where("user_id = ? AND image_id = ?", userID, frameID).
		Pluck("id", &existing).Error; err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		if err := db.Where("preference_id IN ?", existing).Delete(&entities.PreferenceEvent{}).Error; err != nil {
			return nil, err
		}
		if err := db.Where("id IN ?", existing).Delete(&entities.Preference{}).Error; err != nil {
			return nil, err
		}
	}

	pref := entities.Preference{UserID: userID, FrameID: frameID}
	if err := db.Omit("Events").Create(&pref).Error; err != nil {
		return nil, err
	}

	if len(events) > 0 {
		rows := make([]entities.PreferenceEvent, len(events))
		for i, e := range events {
			rows[i] = entities.PreferenceEvent{PreferenceID: pref.ID, MaskID: e.MaskID, Rank: e.Rank}
		}
		if err := db.Omit("Mask").Create(&rows).Error; err != nil {
			return nil, err
		}
		pref.Events = rows
	}
	return &pref, nil
}

// GetByID retrieves a preference with its events.
func (r *preferenceRepository) GetByID(ctx context.Context, id uint) (*entities.Preference, error) {
	var pref entities.Preference
	err := r.db.WithContext(ctx).
		Preload("Events", preloadEventsByRank).
		Where("id = ?", id).
		First(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPreferenceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// List returns all preferences newest first.
func (r *preferenceRepository) List(ctx context.Context) ([]entities.Preference, error) {
	var prefs []entities.Preference
	err := r.db.WithContext(ctx).
		Preload("Events", preloadEventsByRank).
		Order("created_at DESC, id DESC").
		Find(&prefs).Error
	return prefs, err
}
