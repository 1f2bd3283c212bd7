package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/domain/recurrence"
	"github.com/ticklerhq/tickler/internal/service"
	"github.com/ticklerhq/tickler/internal/store"
)

// NotificationDeleter removes a notification and its per-user state.
type NotificationDeleter interface {
	Delete(ctx context.Context, id uuid.UUID) error
}

// NotificationHandler exposes notification creation and deletion. Creation
// is the moment random recurrence values are drawn, so it belongs next to
// the occurrence surfaces even though the rest of notification CRUD lives
// elsewhere.
type NotificationHandler struct {
	service *service.NotificationService
	deleter NotificationDeleter
	logger  *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(svc *service.NotificationService, deleter NotificationDeleter, log *slog.Logger) *NotificationHandler {
	if log == nil {
		log = slog.Default()
	}
	return &NotificationHandler{
		service: svc,
		deleter: deleter,
		logger:  log.With(slog.String("component", "notification_handler")),
	}
}

// createNotificationRequest is the body of POST /api/admin/notifications.
type createNotificationRequest struct {
	Title         string             `json:"title"`
	Message       string             `json:"message,omitempty"`
	IsGlobal      bool               `json:"is_global"`
	TargetUserIDs []string           `json:"target_user_ids,omitempty"`
	Action        *domain.ActionItem `json:"action,omitempty"`
	Recurrence    *recurrence.Rule   `json:"recurrence,omitempty"`
	ExpiresAt     *time.Time         `json:"expires_at,omitempty"`
}

// createNotificationResponse echoes the stored notification, including any
// recurrence rule with its drawn random values fixed.
type createNotificationResponse struct {
	ID         string           `json:"id"`
	Recurrence *recurrence.Rule `json:"recurrence,omitempty"`
}

// Create handles POST /api/admin/notifications.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	targetIDs := make([]uuid.UUID, 0, len(req.TargetUserIDs))
	for _, s := range req.TargetUserIDs {
		id, err := uuid.Parse(s)
		if err != nil {
			RespondWithError(w, r, http.StatusBadRequest, "invalid target user ID")
			return
		}
		targetIDs = append(targetIDs, id)
	}

	n, err := domain.NewNotification(req.Title, req.IsGlobal, targetIDs)
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	n.Message = req.Message
	n.Action = req.Action
	n.Recurrence = req.Recurrence
	n.ExpiresAt = req.ExpiresAt

	if err := h.service.CreateNotification(r.Context(), n); err != nil {
		if errors.Is(err, recurrence.ErrDateRangeIncomplete) {
			RespondWithError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("notification creation failed",
			slog.String("error", err.Error()))
		RespondWithError(w, r, http.StatusInternalServerError, "failed to create notification")
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, createNotificationResponse{
		ID:         n.ID.String(),
		Recurrence: n.Recurrence,
	})
}

// Delete handles DELETE /api/admin/notifications/{id}.
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid notification ID")
		return
	}

	if err := h.deleter.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, r, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.Error("notification deletion failed",
			slog.String("notification_id", id.String()),
			slog.String("error", err.Error()))
		RespondWithError(w, r, http.StatusInternalServerError, "failed to delete notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
