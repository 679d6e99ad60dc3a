package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/middleware"
	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/provider"
	"github.com/adalparedes/adalcore/pkg/logger"
	"github.com/adalparedes/adalcore/pkg/metrics"
)

// ChatHandler relays chat requests to an upstream model provider and streams
// the normalized text fragments back as a plain text body.
type ChatHandler struct {
	registry *provider.Registry
	logger   *logger.Logger
}

// NewChatHandler creates a new chat relay handler.
func NewChatHandler(registry *provider.Registry, log *logger.Logger) *ChatHandler {
	return &ChatHandler{registry: registry, logger: log}
}

// chatBody is the relay request body. UserID is optional; when present it
// must match the session, which lets clients detect a stale token early.
type chatBody struct {
	model.ChatRequest
	UserID string `json:"userId,omitempty"`
}

// Relay handles POST /api/v1/chat/{provider}.
func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	adapter, ok := h.registry.Get(chi.URLParam(r, "provider"))
	if !ok {
		writeError(w, http.StatusBadRequest, "PROVIDER_UNKNOWN", "unknown provider")
		return
	}
	providerName := string(adapter.ID())

	var body chatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}

	if body.UserID != "" && body.UserID != middleware.GetUserID(ctx) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "fallo_integridad_usuario")
		return
	}

	if err := middleware.ValidateChatRequest(&body.ChatRequest); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	// Credential problems are a server misconfiguration; content problems
	// are the caller's. Validation runs first so a bad request never reads
	// as a 500.
	if !adapter.Configured() {
		h.logger.Error("provider credential missing", zap.String("provider", providerName))
		writeError(w, http.StatusInternalServerError, "API_KEY_MISSING",
			"Error de configuración del servidor: falta la clave de API.")
		return
	}

	start := time.Now()
	stream, err := adapter.Stream(ctx, &body.ChatRequest)
	if err != nil {
		var upstream *provider.UpstreamError
		if errors.As(err, &upstream) {
			h.logger.Error("upstream provider error",
				zap.String("provider", providerName),
				zap.Int("status", upstream.Status),
				zap.String("message", upstream.Message),
			)
			metrics.ProviderErrorsTotal.WithLabelValues(providerName, "upstream").Inc()
			writeError(w, http.StatusBadGateway, "EXTERNAL_API_ERROR", upstream.Error())
			return
		}
		h.logger.Error("provider request failed", zap.String("provider", providerName), zap.Error(err))
		metrics.ProviderErrorsTotal.WithLabelValues(providerName, "transport").Inc()
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	metrics.IncrementActiveStreams()
	defer metrics.DecrementActiveStreams()

	status := "ok"
	buf := make([]byte, 4096)
	for {
		n, readErr := stream.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				status = "client_gone"
				break
			}
			if flusher != nil {
				flusher.Flush()
			}
			metrics.StreamFragmentsTotal.WithLabelValues(providerName).Inc()
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				status = "upstream_error"
				h.logger.Warn("stream interrupted",
					zap.String("provider", providerName),
					zap.Error(readErr),
				)
			}
			break
		}
	}

	metrics.RecordStream(providerName, status, time.Since(start).Seconds())
}
