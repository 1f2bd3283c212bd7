package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User-specific validation errors
var (
	// ErrUserIDEmpty is returned when a user ID is nil.
	ErrUserIDEmpty = errors.New("user ID cannot be empty")

	// ErrUserDisplayNameEmpty is returned when a user's display name is blank.
	ErrUserDisplayNameEmpty = errors.New("user display name cannot be empty")
)

// User is a member of the directory. Global notifications fan out to every
// enabled user; disabled users are skipped by target resolution.
type User struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUser creates an enabled user with a fresh ID and timestamps.
func NewUser(displayName, email string) (*User, error) {
	now := time.Now().UTC()
	u := &User{
		ID:          uuid.New(),
		DisplayName: displayName,
		Email:       email,
		Enabled:     true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := u.Validate(); err != nil {
		return nil, err
	}

	return u, nil
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == uuid.Nil {
		return ErrUserIDEmpty
	}

	if strings.TrimSpace(u.DisplayName) == "" {
		return ErrUserDisplayNameEmpty
	}

	return nil
}
