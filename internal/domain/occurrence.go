package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProcessedOccurrence-specific validation errors
var (
	// ErrOccurrenceNotificationEmpty is returned when a ledger entry does
	// not name its notification.
	ErrOccurrenceNotificationEmpty = errors.New("occurrence notification ID cannot be empty")

	// ErrOccurrenceDateZero is returned when a ledger entry has no
	// occurrence date.
	ErrOccurrenceDateZero = errors.New("occurrence date cannot be zero")
)

// ProcessedOccurrence is a ledger entry recording that a notification's
// fan-out for one calendar day fully succeeded. At most one entry exists per
// (NotificationID, OccurrenceDate) pair; that uniqueness, enforced by the
// storage layer, is the engine's core idempotency guarantee. Entries are
// never updated or deleted: they are the audit trail.
type ProcessedOccurrence struct {
	ID             uuid.UUID `json:"id"`
	NotificationID uuid.UUID `json:"notification_id"`
	OccurrenceDate time.Time `json:"occurrence_date"`
	ProcessedAt    time.Time `json:"processed_at"`
	TodosCreated   int       `json:"todos_created"`
}

// NewProcessedOccurrence creates a ledger entry for the given notification
// and occurrence day. The date is truncated to midnight UTC so equal
// calendar days always compare equal.
func NewProcessedOccurrence(notificationID uuid.UUID, occurrenceDate time.Time, todosCreated int) (*ProcessedOccurrence, error) {
	entry := &ProcessedOccurrence{
		ID:             uuid.New(),
		NotificationID: notificationID,
		OccurrenceDate: OccurrenceDay(occurrenceDate),
		ProcessedAt:    time.Now().UTC(),
		TodosCreated:   todosCreated,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the ProcessedOccurrence has valid data.
func (p *ProcessedOccurrence) Validate() error {
	if p.NotificationID == uuid.Nil {
		return ErrOccurrenceNotificationEmpty
	}

	if p.OccurrenceDate.IsZero() {
		return ErrOccurrenceDateZero
	}

	return nil
}

// OccurrenceDay normalizes a timestamp to its calendar day at midnight UTC.
// Ledger lookups and inserts both go through this so a day is a single key
// regardless of the hour the job ran.
func OccurrenceDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
