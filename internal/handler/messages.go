package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/middleware"
	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/service"
	"github.com/adalparedes/adalcore/pkg/logger"
)

// MessageHandler handles message persistence endpoints.
type MessageHandler struct {
	service *service.MessageService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.MessageService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations/{id}/messages.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	messages, err := h.service.List(ctx, middleware.GetUserID(ctx), conversationID)
	if err != nil {
		writeConversationError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListMessagesResponse{Messages: messages})
}

// Append handles POST /api/v1/conversations/{id}/messages.
func (h *MessageHandler) Append(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req model.SaveMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if req.Role != model.RoleUser && req.Role != model.RoleAssistant {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid message role")
		return
	}

	msg, err := h.service.Append(ctx, userID, conversationID, &req)
	if err != nil {
		h.logger.Error("failed to append message",
			zap.String("user_id", userID),
			zap.String("conversation_id", conversationID),
			zap.Error(err),
		)
		writeConversationError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
