package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/commerce"
	"github.com/adalparedes/adalcore/internal/middleware"
	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/pkg/logger"
)

// CheckoutHandler handles payment session creation.
type CheckoutHandler struct {
	service *commerce.Service
	logger  *logger.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(svc *commerce.Service, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{service: svc, logger: log}
}

// Packs handles GET /api/v1/checkout/packs.
func (h *CheckoutHandler) Packs(w http.ResponseWriter, r *http.Request) {
	packs, err := h.service.Packs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to list packs")
		return
	}
	writeJSON(w, http.StatusOK, packs)
}

// Stripe handles POST /api/v1/checkout/stripe.
func (h *CheckoutHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	h.checkout(w, r, h.service.StripeCheckout)
}

// Crypto handles POST /api/v1/checkout/crypto.
func (h *CheckoutHandler) Crypto(w http.ResponseWriter, r *http.Request) {
	h.checkout(w, r, h.service.CryptoInvoice)
}

func (h *CheckoutHandler) checkout(
	w http.ResponseWriter,
	r *http.Request,
	create func(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error),
) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.PackCode == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "packCode is required")
		return
	}

	resp, err := create(ctx, userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, commerce.ErrUnknownPack):
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "unknown credit pack")
		case errors.Is(err, commerce.ErrGatewayNotConfigured):
			writeError(w, http.StatusInternalServerError, "API_KEY_MISSING",
				"Error de configuración del servidor: falta la clave de API.")
		default:
			h.logger.Error("checkout session failed", zap.String("user_id", userID), zap.Error(err))
			writeError(w, http.StatusBadGateway, "EXTERNAL_API_ERROR", "payment gateway error")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
