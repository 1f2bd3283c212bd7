package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
)

// UserStore defines the interface for user directory persistence.
type UserStore interface {
	// Create saves a new user to the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// ListEnabledIDs returns the IDs of all enabled users. Global
	// notifications fan out to exactly this set.
	ListEnabledIDs(ctx context.Context) ([]uuid.UUID, error)
}
