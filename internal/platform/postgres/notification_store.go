package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/domain/recurrence"
	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/store"
)

// PostgresNotificationStore implements the store.NotificationStore interface
// using a PostgreSQL database as the storage backend. Recurrence rules are
// stored as a JSONB column on the notifications row.
type PostgresNotificationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresNotificationStore creates a new PostgreSQL implementation of
// the NotificationStore interface. It accepts a database connection or
// transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresNotificationStore(db store.DBTX, logger *slog.Logger) *PostgresNotificationStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresNotificationStore{
		db:     db,
		logger: logger.With(slog.String("component", "notification_store")),
	}
}

// Ensure PostgresNotificationStore implements store.NotificationStore interface
var _ store.NotificationStore = (*PostgresNotificationStore)(nil)

// Create implements store.NotificationStore.Create
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := n.Validate(); err != nil {
		log.Warn("notification validation failed during create",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()))
		return err
	}

	ruleJSON, err := marshalRule(n.Recurrence)
	if err != nil {
		return fmt.Errorf("failed to encode recurrence rule: %w", err)
	}

	var actionDescription, actionCategory sql.NullString
	if n.Action != nil {
		actionDescription = sql.NullString{String: n.Action.Description, Valid: true}
		actionCategory = sql.NullString{String: n.Action.Category, Valid: n.Action.Category != ""}
	}

	query := `
		INSERT INTO notifications
			(id, title, message, is_global, target_user_ids,
			 action_description, action_category, recurrence_rule,
			 expires_at, deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		n.ID,
		n.Title,
		n.Message,
		n.IsGlobal,
		uuidSlice(n.TargetUserIDs),
		actionDescription,
		actionCategory,
		ruleJSON,
		n.ExpiresAt,
		n.Deleted,
		n.CreatedAt,
		n.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", n.ID.String()))
		return MapError(err)
	}

	log.Info("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.Bool("is_global", n.IsGlobal),
		slog.Bool("recurring", n.IsRecurring()))
	return nil
}

// GetByID implements store.NotificationStore.GetByID
func (s *PostgresNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := selectNotification + ` WHERE id = $1 AND NOT deleted`

	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("notification not found", slog.String("notification_id", id.String()))
			return nil, store.ErrNotificationNotFound
		}
		log.Error("failed to get notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return nil, MapError(err)
	}

	return n, nil
}

// FindActiveRecurringWithAction implements
// store.NotificationStore.FindActiveRecurringWithAction. Eligibility is
// decided in SQL: not deleted, rule present, action description non-blank,
// not expired at now.
func (s *PostgresNotificationStore) FindActiveRecurringWithAction(ctx context.Context, now time.Time) ([]*domain.Notification, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := selectNotification + `
		WHERE NOT deleted
		  AND recurrence_rule IS NOT NULL
		  AND action_description IS NOT NULL
		  AND btrim(action_description) <> ''
		  AND (expires_at IS NULL OR expires_at > $1)
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		log.Error("failed to query active recurring notifications",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var result []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			log.Error("failed to scan notification row",
				slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	log.Debug("found active recurring notifications", slog.Int("count", len(result)))
	return result, nil
}

// SoftDelete marks a notification deleted without removing the row, so
// ledger entries and todo provenance keep a valid reference. Returns
// store.ErrNotificationNotFound if the notification does not exist or is
// already deleted.
func (s *PostgresNotificationStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE notifications
		SET deleted = TRUE, updated_at = $2
		WHERE id = $1 AND NOT deleted
	`
	result, err := s.db.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		log.Error("failed to soft delete notification",
			slog.String("error", err.Error()),
			slog.String("notification_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "notification"); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.ErrNotificationNotFound
		}
		return err
	}

	log.Info("notification soft deleted", slog.String("notification_id", id.String()))
	return nil
}

const selectNotification = `
	SELECT id, title, message, is_global, target_user_ids,
	       action_description, action_category, recurrence_rule,
	       expires_at, deleted, created_at, updated_at
	FROM notifications
`

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n                 domain.Notification
		message           sql.NullString
		targetIDs         []byte
		actionDescription sql.NullString
		actionCategory    sql.NullString
		ruleJSON          []byte
		expiresAt         sql.NullTime
	)

	err := row.Scan(
		&n.ID,
		&n.Title,
		&message,
		&n.IsGlobal,
		&targetIDs,
		&actionDescription,
		&actionCategory,
		&ruleJSON,
		&expiresAt,
		&n.Deleted,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Message = message.String
	if expiresAt.Valid {
		t := expiresAt.Time
		n.ExpiresAt = &t
	}
	if actionDescription.Valid {
		n.Action = &domain.ActionItem{
			Description: actionDescription.String,
			Category:    actionCategory.String,
		}
	}
	if len(targetIDs) > 0 {
		ids, err := parseUUIDArray(targetIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to parse target user IDs: %w", err)
		}
		n.TargetUserIDs = ids
	}
	if len(ruleJSON) > 0 {
		var rule recurrence.Rule
		if err := json.Unmarshal(ruleJSON, &rule); err != nil {
			return nil, fmt.Errorf("failed to decode recurrence rule: %w", err)
		}
		n.Recurrence = &rule
	}

	return &n, nil
}

func marshalRule(rule *recurrence.Rule) (any, error) {
	if rule == nil {
		return nil, nil
	}
	return json.Marshal(rule)
}
