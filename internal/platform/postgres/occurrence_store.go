package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/store"
)

// PostgresOccurrenceStore implements the store.OccurrenceStore interface.
// The processed_occurrences table carries a unique constraint on
// (notification_id, occurrence_date); that constraint, not the Exists
// check, is what makes concurrent same-day runs safe.
type PostgresOccurrenceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOccurrenceStore creates a new PostgreSQL implementation of the
// OccurrenceStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresOccurrenceStore(db store.DBTX, logger *slog.Logger) *PostgresOccurrenceStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOccurrenceStore{
		db:     db,
		logger: logger.With(slog.String("component", "occurrence_store")),
	}
}

// Ensure PostgresOccurrenceStore implements store.OccurrenceStore interface
var _ store.OccurrenceStore = (*PostgresOccurrenceStore)(nil)

// Exists implements store.OccurrenceStore.Exists
func (s *PostgresOccurrenceStore) Exists(ctx context.Context, notificationID uuid.UUID, day time.Time) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM processed_occurrences
			WHERE notification_id = $1 AND occurrence_date = $2
		)
	`

	var exists bool
	err := s.db.QueryRowContext(ctx, query, notificationID, domain.OccurrenceDay(day)).Scan(&exists)
	if err != nil {
		log.Error("failed to check processed occurrence",
			slog.String("error", err.Error()),
			slog.String("notification_id", notificationID.String()))
		return false, MapError(err)
	}

	return exists, nil
}

// MarkProcessed implements store.OccurrenceStore.MarkProcessed. A unique
// violation is mapped to store.ErrOccurrenceExists so callers can treat a
// concurrent run's earlier commit as success.
func (s *PostgresOccurrenceStore) MarkProcessed(ctx context.Context, entry *domain.ProcessedOccurrence) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := entry.Validate(); err != nil {
		log.Warn("occurrence entry validation failed",
			slog.String("error", err.Error()),
			slog.String("notification_id", entry.NotificationID.String()))
		return err
	}

	query := `
		INSERT INTO processed_occurrences
			(id, notification_id, occurrence_date, processed_at, todos_created)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.NotificationID,
		entry.OccurrenceDate,
		entry.ProcessedAt,
		entry.TodosCreated,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Info("occurrence already recorded by another run",
				slog.String("notification_id", entry.NotificationID.String()),
				slog.Time("occurrence_date", entry.OccurrenceDate))
			return store.ErrOccurrenceExists
		}
		log.Error("failed to mark occurrence processed",
			slog.String("error", err.Error()),
			slog.String("notification_id", entry.NotificationID.String()))
		return MapError(err)
	}

	return nil
}
