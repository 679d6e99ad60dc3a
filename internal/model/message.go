package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a conversation message. Messages are immutable once
// persisted; the in-flight assistant message lives only in the orchestrator
// until its stream ends.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Provider       string    `json:"provider,omitempty"`
	IsError        bool      `json:"is_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Attachment is a base64-encoded file sent alongside a user message.
type Attachment struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ChatRequest is the body accepted by the streaming chat endpoints.
type ChatRequest struct {
	System      string      `json:"system"`
	UserContent string      `json:"userContent"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	Language    string      `json:"language,omitempty"`
}

// HasContent reports whether the request carries anything to send upstream.
func (r *ChatRequest) HasContent() bool {
	return r.UserContent != "" || r.Attachment != nil
}

// SaveMessageRequest is the request to persist a message to a conversation.
type SaveMessageRequest struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Provider string `json:"provider,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// ListMessagesResponse is the response for listing messages.
type ListMessagesResponse struct {
	Messages []Message `json:"messages"`
}
