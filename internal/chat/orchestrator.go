package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/pkg/logger"
)

// ErrSendInFlight is returned when a send is attempted while another one is
// still streaming for the same conversation.
var ErrSendInFlight = errors.New("a send is already in flight")

// Store is the conversation persistence the orchestrator writes through.
type Store interface {
	CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error)
	SaveMessage(ctx context.Context, userID, conversationID string, req *model.SaveMessageRequest) (*model.Message, error)
}

// Streamer opens a normalized text stream from the selected provider.
type Streamer interface {
	Stream(ctx context.Context, providerName string, req *model.ChatRequest) (io.ReadCloser, error)
}

// Sink receives the accumulated placeholder content after each fragment.
// This is the only place partial results become visible.
type Sink func(messageID, content string)

// SendResult describes the outcome of one send cycle.
type SendResult struct {
	// Conversation is set when the cycle created a new conversation.
	Conversation *model.Conversation `json:"conversation,omitempty"`

	// UserMessage is the persisted user message, nil on cooldown rejection.
	UserMessage *model.Message `json:"user_message,omitempty"`

	// AssistantMessage is the final assistant message: a persisted normal
	// message on success, an error-flagged unpersisted one on failure.
	AssistantMessage *model.Message `json:"assistant_message"`
}

// Orchestrator drives send-message cycles for one user. A single send is in
// flight at a time; fragments reach the sink in receipt order.
type Orchestrator struct {
	userID   string
	store    Store
	streamer Streamer
	gate     *Gate
	log      *logger.Logger

	// onSessionExpired forces sign-out when the session-expiry signal
	// surfaces mid-cycle.
	onSessionExpired func()

	mu                 sync.Mutex
	inFlight           bool
	activeConversation string
}

// NewOrchestrator creates an orchestrator bound to a user.
func NewOrchestrator(userID string, store Store, streamer Streamer, gate *Gate, log *logger.Logger, onSessionExpired func()) *Orchestrator {
	if log == nil {
		log = logger.NewNop()
	}
	if onSessionExpired == nil {
		onSessionExpired = func() {}
	}
	return &Orchestrator{
		userID:           userID,
		store:            store,
		streamer:         streamer,
		gate:             gate,
		log:              log,
		onSessionExpired: onSessionExpired,
	}
}

// SetActiveConversation switches the conversation subsequent sends append to.
// An empty id means the next send creates a new conversation.
func (o *Orchestrator) SetActiveConversation(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.activeConversation = id
}

// ActiveConversation returns the current conversation id.
func (o *Orchestrator) ActiveConversation() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.activeConversation
}

// Send runs one send cycle: cooldown gate, optimistic user message,
// placeholder assistant message, provider stream, final persistence. Every
// failure path ends in a readable error-flagged message except session
// expiry, which aborts the cycle entirely.
func (o *Orchestrator) Send(ctx context.Context, cfg model.AssistantConfig, text string, attachment *model.Attachment, sink Sink) (*SendResult, error) {
	o.mu.Lock()
	if o.inFlight {
		o.mu.Unlock()
		return nil, ErrSendInFlight
	}
	o.inFlight = true
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.inFlight = false
		o.mu.Unlock()
	}()

	if sink == nil {
		sink = func(string, string) {}
	}

	if !o.gate.Allow() {
		// Cooldown violation: synthesize a system error locally, touch
		// neither the store nor any endpoint.
		return &SendResult{AssistantMessage: systemErrorMessage(CooldownMessage)}, nil
	}

	providerName := cfg.SelectedProvider
	result := &SendResult{}

	userText := text
	if userText == "" && attachment != nil {
		userText = AttachmentFallbackText
	}

	userContent := SanitizeText(text)
	if attachment != nil {
		userContent += " [ARCHIVO_ADJUNTO]"
	}

	convID := o.ActiveConversation()
	if convID == "" {
		conv, err := o.store.CreateConversation(ctx, o.userID, text)
		if err != nil {
			return o.failed(result, err, providerName)
		}
		convID = conv.ID
		o.SetActiveConversation(convID)
		result.Conversation = conv
	}

	userMsg, err := o.store.SaveMessage(ctx, o.userID, convID, &model.SaveMessageRequest{
		Role:    model.RoleUser,
		Content: userContent,
	})
	if err != nil {
		return o.failed(result, err, providerName)
	}
	result.UserMessage = userMsg

	placeholderID := uuid.Must(uuid.NewV7()).String()

	req := &model.ChatRequest{
		System:      BuildSystemPrompt(cfg),
		UserContent: ReinforceUserContent(userText),
		Attachment:  attachment,
		Language:    cfg.Language,
	}

	stream, err := o.streamer.Stream(ctx, providerName, req)
	if err != nil {
		return o.failed(result, err, providerName)
	}
	defer stream.Close()

	var full string
	buf := make([]byte, 4096)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			full += SanitizeText(string(buf[:n]))
			sink(placeholderID, full)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return o.failed(result, readErr, providerName)
		}
	}

	if full == "" {
		full = "Error de recepción en el núcleo."
	}

	assistantMsg, err := o.store.SaveMessage(ctx, o.userID, convID, &model.SaveMessageRequest{
		Role:     model.RoleAssistant,
		Content:  full,
		Provider: providerName,
	})
	if err != nil {
		// The stream succeeded but the final save did not: surface it,
		// keep the streamed text visible, do not roll anything back.
		o.log.Warn("assistant message persistence failed",
			zap.String("conversation_id", convID),
			zap.Error(err),
		)
		return o.failed(result, err, providerName)
	}
	result.AssistantMessage = assistantMsg

	return result, nil
}

// failed routes a cycle failure through the classifier. Session expiry aborts
// without appending anything; every other error becomes a visible,
// error-flagged assistant message.
func (o *Orchestrator) failed(result *SendResult, err error, providerName string) (*SendResult, error) {
	if IsSessionExpired(err.Error()) {
		o.onSessionExpired()
		return nil, err
	}

	result.AssistantMessage = &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleAssistant,
		Content:   ParseErrorMessage(err.Error(), providerName),
		Provider:  providerName,
		IsError:   true,
		CreatedAt: time.Now(),
	}
	return result, nil
}

func systemErrorMessage(content string) *model.Message {
	return &model.Message{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Role:      model.RoleAssistant,
		Content:   content,
		Provider:  "SYSTEM",
		IsError:   true,
		CreatedAt: time.Now(),
	}
}
