package middleware

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/adalparedes/adalcore/internal/model"
)

// ValidateChatRequest validates the body of a chat relay request.
func ValidateChatRequest(req *model.ChatRequest) error {
	if !req.HasContent() {
		return errors.New("request needs user content or an attachment")
	}
	if len(req.UserContent) > 100000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(req.UserContent) {
		return errors.New("content must be valid UTF-8")
	}
	if req.Attachment != nil && req.Attachment.MimeType == "" {
		return errors.New("attachment needs a mime type")
	}
	return nil
}

// ValidateMessageContent validates message content.
func ValidateMessageContent(content string) error {
	if len(content) == 0 {
		return errors.New("content cannot be empty")
	}
	if len(content) > 100000 {
		return errors.New("content exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("content must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID.
func ValidateConversationID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid conversation ID format")
	}
	return nil
}

// ValidateTitle validates a conversation title.
func ValidateTitle(title string) error {
	if len(title) > 256 {
		return errors.New("title exceeds maximum length")
	}
	if !utf8.ValidString(title) {
		return errors.New("title must be valid UTF-8")
	}
	return nil
}
