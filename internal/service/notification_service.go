// Package service contains the application services that sit between the
// HTTP/scheduler surfaces and the stores.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/ticklerhq/tickler/internal/domain"
	"github.com/ticklerhq/tickler/internal/domain/recurrence"
	"github.com/ticklerhq/tickler/internal/platform/logger"
	"github.com/ticklerhq/tickler/internal/store"
)

// NotificationService handles notification creation. Its one piece of logic
// beyond persistence is drawing random recurrence values: a random rule is
// initialized exactly once, here, before the notification is first stored,
// and never redrawn afterwards.
type NotificationService struct {
	notifications store.NotificationStore
	rand          recurrence.Source
	logger        *slog.Logger
}

// NewNotificationService creates a NotificationService. If src is nil a
// time-seeded source is used; tests pass a seeded source for determinism.
func NewNotificationService(notifications store.NotificationStore, src recurrence.Source, log *slog.Logger) *NotificationService {
	if notifications == nil {
		panic("notifications store cannot be nil")
	}
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{
		notifications: notifications,
		rand:          src,
		logger:        log.With(slog.String("component", "notification_service")),
	}
}

// CreateNotification initializes any random recurrence values and persists
// the notification. The rule attached to the stored notification is always
// initialized, so evaluation can never observe a half-drawn rule.
func (s *NotificationService) CreateNotification(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if n.Recurrence != nil {
		initialized, err := recurrence.Initialize(*n.Recurrence, s.rand)
		if err != nil {
			return fmt.Errorf("initialize recurrence rule: %w", err)
		}
		n.Recurrence = &initialized
	}

	if err := s.notifications.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	log.Info("notification created",
		slog.String("notification_id", n.ID.String()),
		slog.Bool("recurring", n.IsRecurring()))
	return nil
}
