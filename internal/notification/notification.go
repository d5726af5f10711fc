// Package notification persists user notifications and fans them out to
// live connections and the message bus.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
	"github.com/mindoraRwanda/mindorabeta/internal/realtime"
)

// Repository is the storage the service needs.
type Repository interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	DeleteReadNotificationsBefore(ctx context.Context, before time.Time) (int64, error)
}

// Pusher delivers events to a user's live connections.
type Pusher interface {
	Emit(ctx context.Context, userID, event string, data interface{}) (int, error)
}

// Publisher forwards persisted notifications to other consumers.
type Publisher interface {
	Publish(ctx context.Context, n *domain.Notification) error
}

// DeliveryError reports a notification that could not be fully delivered.
// Stage is "persist", "push" or "publish".
type DeliveryError struct {
	UserID string
	Stage  string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify %s: %s: %v", e.UserID, e.Stage, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Service creates notifications.
type Service struct {
	repo      Repository
	pusher    Pusher
	publisher Publisher
}

// NewService creates a notification service. pusher and publisher may be nil.
func NewService(repo Repository, pusher Pusher, publisher Publisher) *Service {
	return &Service{repo: repo, pusher: pusher, publisher: publisher}
}

// Notify persists a notification for userID, then emits it to the user's
// live connections and publishes it. A push or publish failure still returns
// the persisted notification.
func (s *Service) Notify(ctx context.Context, userID, title, body string, typ domain.NotificationType, data interface{}) (*domain.Notification, error) {
	n := &domain.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Type:   typ,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, &DeliveryError{UserID: userID, Stage: "persist", Err: fmt.Errorf("marshal data: %w", err)}
		}
		n.Data = raw
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, &DeliveryError{UserID: userID, Stage: "persist", Err: err}
	}

	if s.pusher != nil {
		delivered, err := s.pusher.Emit(ctx, userID, realtime.EventNewNotification, n)
		if err != nil {
			return n, &DeliveryError{UserID: userID, Stage: "push", Err: err}
		}
		slog.Debug("Notification pushed", "user_id", userID, "notification_id", n.ID, "connections", delivered)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			return n, &DeliveryError{UserID: userID, Stage: "publish", Err: err}
		}
	}
	return n, nil
}

// PurgeRead removes read notifications created more than retention ago.
func (s *Service) PurgeRead(ctx context.Context, retention time.Duration) (int64, error) {
	deleted, err := s.repo.DeleteReadNotificationsBefore(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge read notifications: %w", err)
	}
	return deleted, nil
}
