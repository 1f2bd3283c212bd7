package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/store"
)

// PostgresTodoStore implements the store.TodoStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTodoStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTodoStore creates a new PostgreSQL implementation of the
// TodoStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTodoStore(db store.DBTX, logger *slog.Logger) *PostgresTodoStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTodoStore{
		db:     db,
		logger: logger.With(slog.String("component", "todo_store")),
	}
}

// Ensure PostgresTodoStore implements store.TodoStore interface
var _ store.TodoStore = (*PostgresTodoStore)(nil)

// Create implements store.TodoStore.Create
func (s *PostgresTodoStore) Create(ctx context.Context, todo *domain.Todo) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := todo.Validate(); err != nil {
		log.Warn("todo validation failed during create",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()))
		return err
	}

	query := `
		INSERT INTO todos
			(id, owner_handle, description, category,
			 created_from_notification, source_notification_id,
			 completed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		todo.ID,
		todo.OwnerHandle,
		todo.Description,
		todo.Category,
		todo.CreatedFromNotification,
		todo.SourceNotificationID,
		todo.Completed,
		todo.CreatedAt,
		todo.UpdatedAt,
	)

	if err != nil {
		log.Error("failed to create todo",
			slog.String("error", err.Error()),
			slog.String("todo_id", todo.ID.String()),
			slog.String("owner", todo.OwnerHandle))
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TodoStore.GetByID
func (s *PostgresTodoStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Todo, error) {
	query := selectTodo + ` WHERE id = $1`

	todo, err := scanTodo(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTodoNotFound
		}
		return nil, MapError(err)
	}

	return todo, nil
}

// ListByOwner implements store.TodoStore.ListByOwner
func (s *PostgresTodoStore) ListByOwner(ctx context.Context, ownerHandle string) ([]*domain.Todo, error) {
	query := selectTodo + ` WHERE owner_handle = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, ownerHandle)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var todos []*domain.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, MapError(err)
		}
		todos = append(todos, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return todos, nil
}

const selectTodo = `
	SELECT id, owner_handle, description, category,
	       created_from_notification, source_notification_id,
	       completed, created_at, updated_at
	FROM todos
`

func scanTodo(row rowScanner) (*domain.Todo, error) {
	var (
		todo     domain.Todo
		category sql.NullString
		sourceID uuid.NullUUID
	)

	err := row.Scan(
		&todo.ID,
		&todo.OwnerHandle,
		&todo.Description,
		&category,
		&todo.CreatedFromNotification,
		&sourceID,
		&todo.Completed,
		&todo.CreatedAt,
		&todo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	todo.Category = category.String
	if sourceID.Valid {
		id := sourceID.UUID
		todo.SourceNotificationID = &id
	}

	return &todo, nil
}
