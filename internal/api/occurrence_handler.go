package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ticklerhq/tickler/internal/platform/metrics"
	"github.com/ticklerhq/tickler/internal/service/occurrence"
	"github.com/ticklerhq/tickler/internal/store"
)

// OccurrenceService is the slice of the processor the handlers need.
type OccurrenceService interface {
	ProcessRecurringNotifications(ctx context.Context) occurrence.Result
	NextDelivery(ctx context.Context, notificationID uuid.UUID) (time.Time, bool, error)
}

// OccurrenceHandler exposes the occurrence engine over HTTP: an on-demand
// admin trigger and a next-delivery forecast.
type OccurrenceHandler struct {
	service OccurrenceService
	logger  *slog.Logger
}

// NewOccurrenceHandler creates a new OccurrenceHandler.
func NewOccurrenceHandler(service OccurrenceService, log *slog.Logger) *OccurrenceHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OccurrenceHandler{
		service: service,
		logger:  log.With(slog.String("component", "occurrence_handler")),
	}
}

// Process handles POST /api/admin/occurrences/process. It runs one
// processing pass synchronously and returns the aggregate result. The
// processor never fails as a whole, so the response is always 200 with
// per-notification errors listed in the body.
func (h *OccurrenceHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("manual occurrence processing triggered")
	metrics.ProcessingRuns.WithLabelValues("manual").Inc()

	result := h.service.ProcessRecurringNotifications(r.Context())

	RespondWithJSON(w, r, http.StatusOK, result)
}

// nextDeliveryResponse is the body of a next-delivery forecast.
type nextDeliveryResponse struct {
	NotificationID string  `json:"notification_id"`
	NextDelivery   *string `json:"next_delivery,omitempty"`
	Found          bool    `json:"found"`
}

// NextDelivery handles GET /api/notifications/{id}/next-delivery.
func (h *OccurrenceHandler) NextDelivery(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "invalid notification ID")
		return
	}

	next, found, err := h.service.NextDelivery(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			RespondWithError(w, r, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.Error("next delivery lookup failed",
			slog.String("notification_id", id.String()),
			slog.String("error", err.Error()))
		RespondWithError(w, r, http.StatusInternalServerError, "failed to compute next delivery")
		return
	}

	resp := nextDeliveryResponse{NotificationID: id.String(), Found: found}
	if found {
		s := next.Format("2006-01-02")
		resp.NextDelivery = &s
	}
	RespondWithJSON(w, r, http.StatusOK, resp)
}
