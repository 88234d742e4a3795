package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xailab/xai-review/internal/datastore"
	"github.com/xailab/xai-review/internal/datastore/entities"
)

// frameRepository implements FrameRepository.
type frameRepository struct {
	db      *gorm.DB
	dialect datastore.Dialect
}

// NewFrameRepository creates a new FrameRepository.
func NewFrameRepository(db *gorm.DB, dialect datastore.Dialect) FrameRepository {
	return &frameRepository{db: db, dialect: dialect}
}

func (r *frameRepository) first(ctx context.Context, query *gorm.DB) (*entities.Frame, error) {
	var frame entities.Frame
	err := query.WithContext(ctx).First(&frame).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFrameNotFound
	}
	if err != nil {
		return nil, err
	}
	return &frame, nil
}

// GetByID retrieves a frame by its ID.
func (r *frameRepository) GetByID(ctx context.Context, id uint) (*entities.Frame, error) {
	return r.first(ctx, r.db.Where("id = ?", id))
}

// GetByPatientAndFilename retrieves a frame by (patient_nb, filename).
func (r *frameRepository) GetByPatientAndFilename(ctx context.Context, patient, filename string) (*entities.Frame, error) {
	return r.first(ctx, r.db.Where("patient_nb = ? AND filename = ?", patient, filename))
}

// FirstByPatient returns the lowest-id frame of a patient.
func (r *frameRepository) FirstByPatient(ctx context.Context, patient string) (*entities.Frame, error) {
	return r.first(ctx, r.db.Where("patient_nb = ?", patient).Order("id ASC"))
}

// CreateIfAbsent inserts frame, doing nothing on a unique conflict.
func (r *frameRepository) CreateIfAbsent(ctx context.Context, frame *entities.Frame) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(frame)
	if result.Error != nil {
		if datastore.IsUniqueViolation(result.Error) {
			frame.ID = 0
			return false, nil
		}
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		frame.ID = 0
		return false, nil
	}
	return true, nil
}

// List returns all frames ordered by id.
func (r *frameRepository) List(ctx context.Context) ([]entities.Frame, error) {
	var frames []entities.Frame
	err := r.db.WithContext(ctx).Order("id ASC").Find(&frames).Error
	return frames, err
}

// ListByPatient returns a patient's frames ordered by id.
func (r *frameRepository) ListByPatient(ctx context.Context, patient string) ([]entities.Frame, error) {
	var frames []entities.Frame
	err := r.db.WithContext(ctx).
		Where("patient_nb = ?", patient).
		Order("id ASC").
		Find(&frames).Error
	return frames, err
}

// numericPatientFilter returns the dialect's "only digits" predicate and
// integer cast for patient_nb. Non-numeric folder names never take part in
// the high-water mark.
func (r *frameRepository) numericPatientFilter() (where, cast string) {
	switch r.dialect {
	case datastore.DialectMySQL:
		return "patient_nb REGEXP '^[0-9]+$'", "CAST(patient_nb AS UNSIGNED)"
	case datastore.DialectPostgres:
		return "patient_nb ~ '^[0-9]+$'", "CAST(patient_nb AS BIGINT)"
	default:
		return "patient_nb <> '' AND patient_nb NOT GLOB '*[^0-9]*'", "CAST(patient_nb AS INTEGER)"
	}
}

// HighWaterMark returns the largest numeric patient number, zero padded.
func (r *frameRepository) HighWaterMark(ctx context.Context, width int) (string, bool, error) {
	where, cast := r.numericPatientFilter()

	var highest sql.NullInt64
	row := r.db.WithContext(ctx).
		Model(&entities.Frame{}).
		Select(fmt.Sprintf("MAX(%s)", cast)).
		Where(where).
		Row()
	if err := row.Scan(&highest); err != nil {
		return "", false, err
	}
	if !highest.Valid {
		return "", false, nil
	}
	return fmt.Sprintf("%0*d", width, highest.Int64), true, nil
}

// NextUnrated returns the lowest-id frame without a preference from userID.
func (r *frameRepository) NextUnrated(ctx context.Context, userID uint) (*entities.Frame, error) {
	return r.first(ctx, r.db.
		Where("NOT EXISTS (SELECT 1 FROM preferences p WHERE p.image_id = images.id AND p.user_id = ?)", userID).
		Order("id ASC"))
}

// Count returns the number of frames.
func (r *frameRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entities.Frame{}).Count(&count).Error
	return count, err
}
