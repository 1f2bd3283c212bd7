package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
)

// TodoStore defines the interface for todo persistence.
type TodoStore interface {
	// Create saves a new todo to the store.
	// Returns validation errors if the todo data is invalid.
	Create(ctx context.Context, todo *domain.Todo) error

	// GetByID retrieves a todo by its unique ID.
	// Returns ErrTodoNotFound if the todo does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error)

	// ListByOwner returns all todos belonging to the given owner handle,
	// newest first.
	ListByOwner(ctx context.Context, ownerHandle string) ([]*domain.Todo, error)
}
