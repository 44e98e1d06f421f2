package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/quantumlab/labtrack/internal/app/models"
	"github.com/quantumlab/labtrack/internal/pkg/apperrors"
	"github.com/quantumlab/labtrack/internal/pkg/taskqueue"
	"github.com/quantumlab/labtrack/internal/pkg/websocket"
	"github.com/rs/zerolog"
)

// InboxLimit is how many notifications a listing returns
const InboxLimit = 100

// NotificationService manages the per-user inbox and its realtime push
type NotificationService struct {
	store     NotificationStore
	publisher Publisher
	tasks     taskqueue.Dispatcher
	logger    zerolog.Logger
}

// NewNotificationService creates a new NotificationService. publisher may be nil.
func NewNotificationService(store NotificationStore, publisher Publisher, tasks taskqueue.Dispatcher, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:     store,
		publisher: publisher,
		tasks:     tasks,
		logger:    logger.With().Str("component", "notifications").Logger(),
	}
}

// Notify inserts a notification for userID. It always inserts, even when an identical
// notification already exists. A failed realtime push does not fail the call.
func (s *NotificationService) Notify(ctx context.Context, userID int64, title, message string, link *string) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Link:    link,
	}
	if _, err := s.store.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("error creating notification: %w", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, userID, websocket.EventNotification, n); err != nil {
			s.logger.Warn().Err(err).Int64("userID", userID).Msg("Failed to push notification")
		}
	}
	return n, nil
}

// NotifyAsync queues Notify on the task queue. The caller never sees the outcome.
func (s *NotificationService) NotifyAsync(userID int64, title, message string, link *string) {
	s.tasks.Submit("notification", func(ctx context.Context) error {
		_, err := s.Notify(ctx, userID, title, message, link)
		return err
	})
}

// List returns the newest notifications of userID
func (s *NotificationService) List(ctx context.Context, userID int64) ([]*models.Notification, error) {
	return s.store.ListByUser(ctx, userID, InboxLimit)
}

// MarkRead flips one of the caller's notifications to read
func (s *NotificationService) MarkRead(ctx context.Context, userID, id int64) error {
	if err := s.store.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.NewResourceNotFoundError("Notification not found")
		}
		return err
	}
	return nil
}

// MarkAllRead flips every unread notification of the caller and returns how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}

// UnreadCount returns the caller's unread notification count
func (s *NotificationService) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}
