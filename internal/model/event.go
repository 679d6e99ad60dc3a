package model

import (
	"time"
)

// EventType represents the type of portal event published for fan-out.
type EventType string

const (
	EventTypeMessage      EventType = "message"
	EventTypeNotification EventType = "notification"
	EventTypeArchive      EventType = "archive"
	EventTypeError        EventType = "error"
)

// PortalEvent is the envelope published to JetStream whenever something
// user-visible happens (a message lands, a conversation is archived, a
// notification is created).
type PortalEvent struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
