package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Todo-specific validation errors
var (
	// ErrTodoIDEmpty is returned when a todo ID is nil.
	ErrTodoIDEmpty = errors.New("todo ID cannot be empty")

	// ErrTodoOwnerEmpty is returned when a todo's owner handle is blank.
	ErrTodoOwnerEmpty = errors.New("todo owner handle cannot be empty")

	// ErrTodoDescriptionEmpty is returned when a todo's description is blank.
	ErrTodoDescriptionEmpty = errors.New("todo description cannot be empty")

	// ErrTodoProvenanceMissing is returned when a todo claims notification
	// provenance without naming the source notification.
	ErrTodoProvenanceMissing = errors.New("notification-created todo must carry a source notification ID")
)

// Todo is a task on a user's list. Todos fanned out by the occurrence engine
// carry provenance: CreatedFromNotification is true and SourceNotificationID
// names the notification whose occurrence spawned them.
type Todo struct {
	ID                      uuid.UUID  `json:"id"`
	OwnerHandle             string     `json:"owner_handle"`
	Description             string     `json:"description"`
	Category                string     `json:"category,omitempty"`
	CreatedFromNotification bool       `json:"created_from_notification"`
	SourceNotificationID    *uuid.UUID `json:"source_notification_id,omitempty"`
	Completed               bool       `json:"completed"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// NewTodoFromNotification creates a todo spawned by a notification
// occurrence, with provenance fields set. Returns an error if validation
// fails.
func NewTodoFromNotification(ownerHandle, description, category string, sourceID uuid.UUID) (*Todo, error) {
	now := time.Now().UTC()
	todo := &Todo{
		ID:                      uuid.New(),
		OwnerHandle:             ownerHandle,
		Description:             description,
		Category:                category,
		CreatedFromNotification: true,
		SourceNotificationID:    &sourceID,
		CreatedAt:               now,
		UpdatedAt:               now,
	}

	if err := todo.Validate(); err != nil {
		return nil, err
	}

	return todo, nil
}

// Validate checks if the Todo has valid data.
func (t *Todo) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTodoIDEmpty
	}

	if strings.TrimSpace(t.OwnerHandle) == "" {
		return ErrTodoOwnerEmpty
	}

	if strings.TrimSpace(t.Description) == "" {
		return ErrTodoDescriptionEmpty
	}

	if t.CreatedFromNotification && (t.SourceNotificationID == nil || *t.SourceNotificationID == uuid.Nil) {
		return ErrTodoProvenanceMissing
	}

	return nil
}
