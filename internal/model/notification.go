package model

import (
	"time"
)

// NotificationType categorizes portal notifications.
type NotificationType string

const (
	NotificationPayment    NotificationType = "payment"
	NotificationMembership NotificationType = "membership"
	NotificationPromo      NotificationType = "promo"
	NotificationSystem     NotificationType = "system"
)

// AppNotification is a user-facing notification entry.
type AppNotification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Type      NotificationType  `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body,omitempty"`
	IsRead    bool              `json:"is_read"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
