package api

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/service"
	"github.com/ticklerhq/tickler/internal/store"
)

type recordingNotificationStore struct {
	created   []*domain.Notification
	createErr error
}

func (s *recordingNotificationStore) Create(_ context.Context, n *domain.Notification) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

func (s *recordingNotificationStore) GetByID(context.Context, uuid.UUID) (*domain.Notification, error) {
	return nil, store.ErrNotificationNotFound
}

func (s *recordingNotificationStore) FindActiveRecurringWithAction(context.Context, time.Time) ([]*domain.Notification, error) {
	return nil, nil
}

type stubDeleter struct {
	err   error
	gotID uuid.UUID
}

func (d *stubDeleter) Delete(_ context.Context, id uuid.UUID) error {
	d.gotID = id
	return d.err
}

func newNotificationRouter(st store.NotificationStore, deleter NotificationDeleter) http.Handler {
	svc := service.NewNotificationService(st, rand.New(rand.NewSource(42)), nil)
	h := NewNotificationHandler(svc, deleter, nil)

	r := chi.NewRouter()
	r.Post("/api/admin/notifications", h.Create)
	r.Delete("/api/admin/notifications/{id}", h.Delete)
	return r
}

func TestCreateNotificationEndpoint(t *testing.T) {
	t.Parallel()

	st := &recordingNotificationStore{}
	router := newNotificationRouter(st, &stubDeleter{})

	body := `{
		"title": "water the plants",
		"is_global": true,
		"action": {"description": "water the plants", "category": "chores"},
		"recurrence": {"kind": "WEEKLY", "day_of_week": 3}
	}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/notifications", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, st.created, 1)

	var resp struct {
		ID         string          `json:"id"`
		Recurrence json.RawMessage `json:"recurrence"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, st.created[0].ID.String(), resp.ID)
	assert.NotEmpty(t, resp.Recurrence)
}

func TestCreateNotificationEndpointDrawsRandomRule(t *testing.T) {
	t.Parallel()

	st := &recordingNotificationStore{}
	router := newNotificationRouter(st, &stubDeleter{})

	body := `{
		"title": "surprise chore",
		"is_global": true,
		"action": {"description": "surprise chore"},
		"recurrence": {"kind": "RANDOM_WEEKLY"}
	}`

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/notifications", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, st.created, 1)
	rule := st.created[0].Recurrence
	require.NotNil(t, rule)
	assert.True(t, rule.Initialized())
}

func TestCreateNotificationEndpointValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"title": `},
		{"blank title", `{"title": "  ", "is_global": true}`},
		{"targeted without targets", `{"title": "x", "is_global": false}`},
		{"bad target uuid", `{"title": "x", "is_global": false, "target_user_ids": ["nope"]}`},
		{"invalid recurrence", `{"title": "x", "is_global": true, "recurrence": {"kind": "WEEKLY", "day_of_week": 9}}`},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st := &recordingNotificationStore{}
			router := newNotificationRouter(st, &stubDeleter{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/notifications", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, st.created)
		})
	}
}

func TestDeleteNotificationEndpoint(t *testing.T) {
	t.Parallel()

	deleter := &stubDeleter{}
	router := newNotificationRouter(&recordingNotificationStore{}, deleter)
	id := uuid.New()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/notifications/"+id.String(), nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, id, deleter.gotID)
}

func TestDeleteNotificationEndpointNotFound(t *testing.T) {
	t.Parallel()

	deleter := &stubDeleter{err: store.ErrNotificationNotFound}
	router := newNotificationRouter(&recordingNotificationStore{}, deleter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/notifications/"+uuid.NewString(), nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteNotificationEndpointBadID(t *testing.T) {
	t.Parallel()

	deleter := &stubDeleter{}
	router := newNotificationRouter(&recordingNotificationStore{}, deleter)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/notifications/not-a-uuid", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, deleter.gotID)
}
