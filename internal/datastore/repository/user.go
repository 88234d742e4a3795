package repository

import (
	"context"

	"github.com/xailab/xai-review/internal/datastore/entities"
)

// UserRepository provides access to the users table.
type UserRepository interface {
	// Create inserts a user. Returns ErrInvalidInput for an empty username.
	Create(ctx context.Context, username string) (*entities.User, error)

	// GetByID retrieves a user by ID.
	// Returns ErrUserNotFound if not found.
	GetByID(ctx context.Context, id uint) (*entities.User, error)

	// List returns all users ordered by id.
	List(ctx context.Context) ([]entities.User, error)
}
