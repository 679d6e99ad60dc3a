package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
	"github.com/adalparedes/adalcore/pkg/metrics"
)

// NotificationService handles user notifications.
type NotificationService struct {
	store  *store.Store
	events EventPublisher
	logger *logger.Logger
}

// NewNotificationService creates a notification service.
func NewNotificationService(st *store.Store, events EventPublisher, log *logger.Logger) *NotificationService {
	if events == nil {
		events = NopPublisher{}
	}
	return &NotificationService{store: st, events: events, logger: log}
}

// Create stores a notification and fans it out.
func (s *NotificationService) Create(ctx context.Context, userID string, typ model.NotificationType, title, body string, metadata map[string]string) (*model.AppNotification, error) {
	n := &model.AppNotification{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Body:      body,
		Metadata:  metadata,
		CreatedAt: time.Now(),
	}
	if err := s.store.AddNotification(n); err != nil {
		return nil, err
	}

	metrics.NotificationsTotal.WithLabelValues(string(typ)).Inc()
	if err := s.events.PublishEvent(ctx, &model.PortalEvent{
		ID:        uuid.Must(uuid.NewV7()).String(),
		UserID:    userID,
		Type:      model.EventTypeNotification,
		Metadata:  map[string]any{"notification_id": n.ID, "type": string(typ)},
		CreatedAt: time.Now(),
	}); err != nil {
		s.logger.Warn("notification event publish failed", zap.Error(err))
	}

	return n, nil
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string) ([]model.AppNotification, error) {
	return s.store.Notifications(userID)
}

// MarkRead flags one of the user's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.store.MarkNotificationRead(userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return nil
}
