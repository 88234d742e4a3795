package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/xailab/xai-review/internal/datastore"
)

// Store bundles the repositories that share one database handle. A Store
// built inside Transaction routes every repository through the transaction.
type Store struct {
	db      *gorm.DB
	dialect datastore.Dialect

	Frames      FrameRepository
	Masks       MaskRepository
	Users       UserRepository
	Preferences PreferenceRepository
}

// NewStore creates repositories on db.
func NewStore(db *gorm.DB, dialect datastore.Dialect) *Store {
	return &Store{
		db:          db,
		dialect:     dialect,
		Frames:      NewFrameRepository(db, dialect),
		Masks:       NewMaskRepository(db),
		Users:       NewUserRepository(db),
		Preferences: NewPreferenceRepository(db),
	}
}

// Transaction runs fn with a Store bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx, s.dialect))
	})
}

// Dialect returns the backend the store runs on.
func (s *Store) Dialect() datastore.Dialect {
	return s.dialect
}
