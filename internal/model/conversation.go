// Package model defines data structures for the chat portal.
package model

import (
	"time"
)

// Conversation represents a conversation thread. Conversations are owned by
// exactly one user and are archived (never hard-deleted) when a tier limit
// forces the oldest one out.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	IsFavorite bool      `json:"is_favorite"`
	Archived   bool      `json:"archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CreateConversationRequest is the request to create a new conversation.
type CreateConversationRequest struct {
	Title string `json:"title"`
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
}
