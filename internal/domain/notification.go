package domain

import (
	"encoding/json"
	"time"
)

// NotificationType categorizes a notification.
type NotificationType string

const (
	NotificationAppointment NotificationType = "APPOINTMENT"
	NotificationMessage     NotificationType = "MESSAGE"
	NotificationPost        NotificationType = "POST"
	NotificationSystem      NotificationType = "SYSTEM"
	NotificationAchievement NotificationType = "ACHIEVEMENT"
)

// Notification is a message addressed to a single user.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	Type      NotificationType `json:"type"`
	IsRead    bool             `json:"is_read"`
	Data      json.RawMessage  `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
