package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain/recurrence"
)

// Notification-specific validation errors
var (
	// ErrNotificationIDEmpty is returned when a notification ID is nil.
	ErrNotificationIDEmpty = errors.New("notification ID cannot be empty")

	// ErrNotificationTitleEmpty is returned when a notification's title is blank.
	ErrNotificationTitleEmpty = errors.New("notification title cannot be empty")

	// ErrNotificationNoTargets is returned when a non-global notification
	// has an empty target user set.
	ErrNotificationNoTargets = errors.New("targeted notification must name at least one user")
)

// ActionItem is the optional task template embedded in a notification. When
// a recurring notification's occurrence day arrives, one todo carrying this
// description and category is created per target user.
type ActionItem struct {
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
}

// IsActionable reports whether the action carries a non-blank description.
// Occurrence processing only considers actionable notifications.
func (a ActionItem) IsActionable() bool {
	return strings.TrimSpace(a.Description) != ""
}

// Notification is a message shown to one or more users, optionally recurring
// and optionally carrying an action to fan out as todos. The occurrence
// engine reads Recurrence, Action, IsGlobal/TargetUserIDs, ExpiresAt and
// Deleted; the remaining fields belong to the CRUD surface.
type Notification struct {
	ID            uuid.UUID        `json:"id"`
	Title         string           `json:"title"`
	Message       string           `json:"message,omitempty"`
	IsGlobal      bool             `json:"is_global"`
	TargetUserIDs []uuid.UUID      `json:"target_user_ids,omitempty"`
	Action        *ActionItem      `json:"action,omitempty"`
	Recurrence    *recurrence.Rule `json:"recurrence,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty"`
	Deleted       bool             `json:"deleted"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewNotification creates a notification with a fresh ID and timestamps.
// Returns an error if validation fails.
func NewNotification(title string, isGlobal bool, targetUserIDs []uuid.UUID) (*Notification, error) {
	now := time.Now().UTC()
	n := &Notification{
		ID:            uuid.New(),
		Title:         title,
		IsGlobal:      isGlobal,
		TargetUserIDs: targetUserIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks if the Notification has valid data.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrNotificationIDEmpty
	}

	if strings.TrimSpace(n.Title) == "" {
		return ErrNotificationTitleEmpty
	}

	if !n.IsGlobal && len(n.TargetUserIDs) == 0 {
		return ErrNotificationNoTargets
	}

	return nil
}

// IsExpired reports whether the notification's expiry has passed at the
// given time. A nil ExpiresAt never expires.
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !n.ExpiresAt.After(now)
}

// IsRecurring reports whether the notification carries a recurrence rule.
func (n *Notification) IsRecurring() bool {
	return n.Recurrence != nil
}
