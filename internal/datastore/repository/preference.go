package repository

import (
	"context"

	"github.com/xailab/xai-review/internal/datastore/entities"
)

// PreferenceRepository provides access to preferences and their events.
type PreferenceRepository interface {
	// Replace deletes any existing preference of (userID, frameID) with its
	// events and stores a new one. It is not atomic on its own; run it inside
	// Store.Transaction.
	Replace(ctx context.Context, userID, frameID uint, events []entities.PreferenceEvent) (*entities.Preference, error)

	// GetByID retrieves a preference with its events ordered by rank.
	// Returns ErrPreferenceNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.Preference, error)

	// List returns all preferences newest first, each with events ordered by rank.
	List(ctx context.Context) ([]entities.Preference, error)
}
