package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
	"github.com/adalparedes/adalcore/pkg/metrics"
)

// MessageService handles message persistence.
type MessageService struct {
	store         *store.Store
	conversations *ConversationService
	events        EventPublisher
	logger        *logger.Logger
}

// NewMessageService creates a new message service.
func NewMessageService(st *store.Store, convs *ConversationService, events EventPublisher, log *logger.Logger) *MessageService {
	if events == nil {
		events = NopPublisher{}
	}
	return &MessageService{store: st, conversations: convs, events: events, logger: log}
}

// Append persists one message to a conversation the user owns and fans out
// the corresponding event. Messages are immutable once persisted.
func (s *MessageService) Append(ctx context.Context, userID, conversationID string, req *model.SaveMessageRequest) (*model.Message, error) {
	if _, err := s.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	msg := &model.Message{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Role:           req.Role,
		Content:        req.Content,
		Provider:       req.Provider,
		IsError:        req.IsError,
		CreatedAt:      time.Now(),
	}

	if err := s.store.AppendMessage(msg); err != nil {
		return nil, err
	}
	if err := s.conversations.Touch(ctx, conversationID); err != nil {
		s.logger.Warn("failed to touch conversation")
	}

	metrics.MessagesTotal.WithLabelValues(string(msg.Role), msg.Provider).Inc()
	s.publish(ctx, &model.PortalEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		UserID:         userID,
		ConversationID: conversationID,
		Type:           model.EventTypeMessage,
		Metadata:       map[string]any{"role": string(msg.Role), "message_id": msg.ID},
		CreatedAt:      time.Now(),
	})

	return msg, nil
}

// List returns a conversation's messages in chronological order, enforcing
// ownership.
func (s *MessageService) List(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	if _, err := s.conversations.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.Messages(conversationID)
}

func (s *MessageService) publish(ctx context.Context, ev *model.PortalEvent) {
	if err := s.events.PublishEvent(ctx, ev); err != nil {
		s.logger.Warn("event publish failed")
	}
}
