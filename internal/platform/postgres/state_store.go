package postgres

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/store"
)

// PostgresNotificationStateStore implements the
// store.NotificationStateStore interface using a PostgreSQL database as the
// storage backend.
type PostgresNotificationStateStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStateStore creates a new PostgreSQL implementation
// of the NotificationStateStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresNotificationStateStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStateStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStateStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_state_store")),
	}
}

// Ensure interface compliance
var _ store.NotificationStateStore = (*PostgresNotificationStateStore)(nil)

// ResetReadState implements store.NotificationStateStore.ResetReadState.
// Rows that are already unseen are left untouched so the returned count
// reflects records actually reset.
func (s *PostgresNotificationStateStore) ResetReadState(ctx context.Context, notificationID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notification_user_state
		SET seen = FALSE
		WHERE notification_id = $1 AND seen
	`

	result, err := s.db.ExecContext(ctx, query, notificationID)
	if err != nil {
		log.Error("failed to reset read state",
			slog.String("error", err.Error()),
			slog.String("notification_id", notificationID.String()))
		return 0, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	log.Debug("reset notification read state",
		slog.String("notification_id", notificationID.String()),
		slog.Int64("records", affected))
	return int(affected), nil
}

// DeleteStates removes every per-user state row for the notification.
// Returns the number of rows removed; zero is not an error.
func (s *PostgresNotificationStateStore) DeleteStates(ctx context.Context, notificationID uuid.UUID) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM notification_user_state WHERE notification_id = $1`, notificationID)
	if err != nil {
		log.Error("failed to delete notification state rows",
			slog.String("error", err.Error()),
			slog.String("notification_id", notificationID.String()))
		return 0, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}
	return int(affected), nil
}
