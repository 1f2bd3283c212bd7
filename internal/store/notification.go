package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
)

// NotificationStore defines the interface for notification persistence.
type NotificationStore interface {
	// Create saves a new notification to the store. If the notification
	// carries an uninitialized random recurrence rule, implementations
	// persist the rule exactly as given; drawing random values is the
	// service layer's job, before Create.
	// Returns validation errors if the notification data is invalid.
	Create(ctx context.Context, n *domain.Notification) error

	// GetByID retrieves a notification by its unique ID.
	// Returns ErrNotificationNotFound if the notification does not exist
	// or is soft-deleted.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// FindActiveRecurringWithAction returns notifications eligible for
	// occurrence processing: not soft-deleted, carrying a recurrence rule,
	// carrying an action with a non-blank description, and not expired at
	// the given time.
	FindActiveRecurringWithAction(ctx context.Context, now time.Time) ([]*domain.Notification, error)
}

// NotificationStateStore manages the per-user seen/read records attached to
// a notification.
type NotificationStateStore interface {
	// ResetReadState marks all existing per-user state records for the
	// notification as unseen, so the notification surfaces as new on its
	// next occurrence. Returns the number of records reset. A failure here
	// is logged by callers but never aborts occurrence processing.
	ResetReadState(ctx context.Context, notificationID uuid.UUID) (int, error)
}

// OccurrenceStore is the durable ledger of processed (notification, day)
// pairs. The storage layer enforces uniqueness on the pair; the Exists
// check is an early-exit optimization, not the real guard.
type OccurrenceStore interface {
	// Exists reports whether a ledger entry exists for the notification on
	// the given calendar day.
	Exists(ctx context.Context, notificationID uuid.UUID, day time.Time) (bool, error)

	// MarkProcessed writes a ledger entry. Returns ErrOccurrenceExists if
	// an entry for the same (notification, day) pair was already written,
	// which callers treat as "already done by a concurrent run" rather
	// than a hard failure.
	MarkProcessed(ctx context.Context, entry *domain.ProcessedOccurrence) error
}
