package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

// CreateNotification stores a notification.
func (s *SQLStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Type == "" {
		n.Type = domain.NotificationSystem
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	var data interface{}
	if len(n.Data) > 0 {
		data = string(n.Data)
	}

	query := `
	INSERT INTO notifications (id, user_id, title, body, type, is_read, data, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, "insert notification", query,
		n.ID, n.UserID, n.Title, n.Body, string(n.Type), boolToInt(n.IsRead), data, n.CreatedAt.Unix(),
	)
	return err
}

// ListNotifications returns a user's newest notifications.
func (s *SQLStore) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, title, body, type, is_read, data, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?`

	rows, err := s.query(ctx, query, userID, limit)
	if err != nil {
		return nil, wrapErr("query notifications", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close notification rows", "error", closeErr)
		}
	}()

	var out []domain.Notification
	for rows.Next() {
		var n domain.Notification
		var typ string
		var isRead int
		var data sql.NullString
		var createdAt int64

		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &typ, &isRead, &data, &createdAt); err != nil {
			return nil, wrapErr("scan notification row", err)
		}
		n.Type = domain.NotificationType(typ)
		n.IsRead = isRead != 0
		if data.Valid {
			n.Data = []byte(data.String)
		}
		n.CreatedAt = fromUnix(createdAt)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate notifications", err)
	}
	return out, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *SQLStore) MarkNotificationRead(ctx context.Context, userID, notificationID string) error {
	query := `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`
	result, err := s.exec(ctx, "mark notification read", query, notificationID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("get rows affected", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllNotificationsRead marks every notification of the user as read.
func (s *SQLStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	query := `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`
	result, err := s.exec(ctx, "mark all notifications read", query, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteNotification removes one of the user's notifications.
func (s *SQLStore) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	query := `DELETE FROM notifications WHERE id = ? AND user_id = ?`
	result, err := s.exec(ctx, "delete notification", query, notificationID, userID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return wrapErr("get rows affected", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReadNotificationsBefore removes read notifications created before the cutoff.
func (s *SQLStore) DeleteReadNotificationsBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE is_read = 1 AND created_at < ?`
	result, err := s.exec(ctx, "cleanup read notifications", query, before.Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
