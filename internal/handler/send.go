package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/chat"
	"github.com/adalparedes/adalcore/internal/middleware"
	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/provider"
	"github.com/adalparedes/adalcore/internal/service"
	"github.com/adalparedes/adalcore/pkg/logger"
)

// SendHandler runs the full orchestrated send cycle server-side: cooldown
// gate, conversation creation, message persistence and provider streaming in
// one request. Clients that prefer to manage persistence themselves use the
// relay endpoint instead.
type SendHandler struct {
	conversations *service.ConversationService
	messages      *service.MessageService
	registry      *provider.Registry
	cooldown      time.Duration
	idleTTL       time.Duration
	logger        *logger.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

// session pairs a user's orchestrator with its last use, so idle ones can
// be evicted instead of accumulating for the process lifetime.
type session struct {
	orch     *chat.Orchestrator
	lastSeen time.Time
}

// sessionIdleTTL bounds how long an unused per-user session is retained.
const sessionIdleTTL = 30 * time.Minute

// NewSendHandler creates the orchestrated send handler.
func NewSendHandler(
	convs *service.ConversationService,
	msgs *service.MessageService,
	registry *provider.Registry,
	cooldown time.Duration,
	log *logger.Logger,
) *SendHandler {
	return &SendHandler{
		conversations: convs,
		messages:      msgs,
		registry:      registry,
		cooldown:      cooldown,
		idleTTL:       sessionIdleTTL,
		logger:        log,
		sessions:      make(map[string]*session),
	}
}

// orchestratorStore adapts the services to the orchestrator's persistence
// interface. Tier and admin status travel in the request context.
type orchestratorStore struct {
	conversations *service.ConversationService
	messages      *service.MessageService
}

func (s *orchestratorStore) CreateConversation(ctx context.Context, userID, title string) (*model.Conversation, error) {
	return s.conversations.Create(ctx, userID, title, middleware.GetTier(ctx), middleware.IsAdmin(ctx))
}

func (s *orchestratorStore) SaveMessage(ctx context.Context, userID, conversationID string, req *model.SaveMessageRequest) (*model.Message, error) {
	return s.messages.Append(ctx, userID, conversationID, req)
}

// registryStreamer adapts the provider registry to the orchestrator's
// streamer interface.
type registryStreamer struct {
	registry *provider.Registry
}

func (r *registryStreamer) Stream(ctx context.Context, providerName string, req *model.ChatRequest) (io.ReadCloser, error) {
	adapter, ok := r.registry.Get(providerName)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
	if !adapter.Configured() {
		return nil, errors.New("API_KEY_MISSING")
	}
	return adapter.Stream(ctx, req)
}

// orchestrator returns the per-user orchestrator, creating it on first use so
// the cooldown window survives across requests. Sessions idle past the TTL
// are evicted on the way in, keeping the map bounded by recent users.
func (h *SendHandler) orchestrator(userID string) *chat.Orchestrator {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	for id, s := range h.sessions {
		if id != userID && now.Sub(s.lastSeen) > h.idleTTL {
			delete(h.sessions, id)
		}
	}

	if s, ok := h.sessions[userID]; ok {
		s.lastSeen = now
		return s.orch
	}
	o := chat.NewOrchestrator(
		userID,
		&orchestratorStore{conversations: h.conversations, messages: h.messages},
		&registryStreamer{registry: h.registry},
		chat.NewGate(h.cooldown, nil),
		h.logger,
		nil,
	)
	h.sessions[userID] = &session{orch: o, lastSeen: now}
	return o
}

type sendRequest struct {
	Config         model.AssistantConfig `json:"config"`
	Text           string                `json:"text"`
	Attachment     *model.Attachment     `json:"attachment,omitempty"`
	ConversationID string                `json:"conversationId,omitempty"`
}

// Send handles POST /api/v1/chat/send.
func (h *SendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Text == "" && req.Attachment == nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "request needs text or an attachment")
		return
	}
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
	}

	cfg := req.Config.Normalize(userID)

	o := h.orchestrator(userID)
	o.SetActiveConversation(req.ConversationID)

	result, err := o.Send(ctx, cfg, req.Text, req.Attachment, nil)
	if err != nil {
		if errors.Is(err, chat.ErrSendInFlight) {
			writeError(w, http.StatusConflict, "SEND_IN_FLIGHT", "ya hay un envío en curso")
			return
		}
		h.logger.Error("send cycle aborted", zap.String("user_id", userID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
