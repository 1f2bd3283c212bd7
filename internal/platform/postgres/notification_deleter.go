package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/store"
)

// NotificationDeleter removes a notification from circulation: the
// notification row is soft-deleted and its per-user state rows are dropped,
// in one transaction. Ledger entries and todos spawned from past occurrences
// are left untouched.
type NotificationDeleter struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewNotificationDeleter creates a NotificationDeleter.
// If logger is nil, a default logger will be used.
func NewNotificationDeleter(db *sql.DB, logger *slog.Logger) *NotificationDeleter {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &NotificationDeleter{
		db:     db,
		logger: logger.With(slog.String("component", "notification_deleter")),
	}
}

// Delete soft-deletes the notification and removes its per-user state rows
// atomically. Returns store.ErrNotificationNotFound if the notification does
// not exist or was already deleted.
func (d *NotificationDeleter) Delete(ctx context.Context, id uuid.UUID) error {
	return store.RunInTransaction(ctx, d.db, func(ctx context.Context, tx *sql.Tx) error {
		notifications := NewPostgresNotificationStore(tx, d.logger)
		if err := notifications.SoftDelete(ctx, id); err != nil {
			return err
		}

		states := NewPostgresNotificationStateStore(tx, d.logger)
		removed, err := states.DeleteStates(ctx, id)
		if err != nil {
			return fmt.Errorf("delete notification state: %w", err)
		}

		d.logger.Info("notification deleted",
			slog.String("notification_id", id.String()),
			slog.Int("state_rows_removed", removed))
		return nil
	})
}
