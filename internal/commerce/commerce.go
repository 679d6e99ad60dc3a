// Package commerce handles credit packs, checkout session creation and the
// credit transaction ledger. Pack pricing is always read from the store;
// client-submitted amounts are never trusted.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	stripe "github.com/stripe/stripe-go/v78"
	stripeclient "github.com/stripe/stripe-go/v78/client"
	"go.uber.org/zap"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
	"github.com/adalparedes/adalcore/pkg/metrics"
)

var (
	// ErrUnknownPack means the pack code is not in the catalog.
	ErrUnknownPack = errors.New("unknown credit pack")

	// ErrGatewayNotConfigured means the payment gateway credential is missing.
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
)

// Config holds gateway credentials and URLs.
type Config struct {
	StripeSecretKey   string
	NOWPaymentsAPIKey string
	NOWPaymentsURL    string
	SiteURL           string
}

// Notifier pushes a user-facing notification. The notification service
// implements it; a nil notifier disables the pushes.
type Notifier interface {
	Create(ctx context.Context, userID string, typ model.NotificationType, title, body string, metadata map[string]string) (*model.AppNotification, error)
}

// Service drives checkout and the credit ledger.
type Service struct {
	store      *store.Store
	cfg        Config
	stripe     *stripeclient.API
	httpClient *http.Client
	notifier   Notifier
	logger     *logger.Logger
}

// NewService creates a commerce service.
func NewService(st *store.Store, cfg Config, httpClient *http.Client, notifier Notifier, log *logger.Logger) *Service {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	svc := &Service{store: st, cfg: cfg, httpClient: httpClient, notifier: notifier, logger: log}
	if cfg.StripeSecretKey != "" {
		svc.stripe = &stripeclient.API{}
		svc.stripe.Init(cfg.StripeSecretKey, nil)
	}
	return svc
}

// OrderID builds a category-prefixed order id (MEM_xxxx_ref style).
func OrderID(category model.PaymentCategory, userID, ref string) string {
	short := userID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s_%s", category.OrderPrefix(), short, ref)
}

// StripeCheckout creates a Stripe Checkout Session for a credit pack,
// validating the price server-side.
func (s *Service) StripeCheckout(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if s.stripe == nil {
		return nil, ErrGatewayNotConfigured
	}

	pack, err := s.activePack(req.PackCode)
	if err != nil {
		return nil, err
	}

	orderID := OrderID(req.Category, userID, uuid.NewString())
	base := s.siteBase()

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(orderID),
		SuccessURL:        stripe.String(base + "dashboard?payment=success&type=" + string(req.Category)),
		CancelURL:         stripe.String(base + "dashboard?payment=cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String("usd"),
					UnitAmount: stripe.Int64(int64(math.Round(pack.PriceUSD * 100))),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(pack.Name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	if req.UserEmail != "" {
		params.CustomerEmail = stripe.String(req.UserEmail)
	}
	params.Context = ctx

	session, err := s.stripe.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create Stripe session: %w", err)
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("stripe", string(req.Category)).Inc()
	return &model.CheckoutResponse{
		SessionID:  session.ID,
		InvoiceURL: session.URL,
		OrderID:    orderID,
	}, nil
}

// nowPaymentsInvoice is the subset of the NOWPayments invoice response we use.
type nowPaymentsInvoice struct {
	ID         json.Number `json:"id"`
	InvoiceURL string      `json:"invoice_url"`
}

// CryptoInvoice creates a NOWPayments invoice for a credit pack.
func (s *Service) CryptoInvoice(ctx context.Context, userID string, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if s.cfg.NOWPaymentsAPIKey == "" {
		return nil, ErrGatewayNotConfigured
	}

	pack, err := s.activePack(req.PackCode)
	if err != nil {
		return nil, err
	}

	orderID := OrderID(req.Category, userID, uuid.NewString())
	base := s.siteBase()

	description := req.Description
	if description == "" {
		description = pack.Name
	}

	payload, err := json.Marshal(map[string]any{
		"price_amount":      math.Round(pack.PriceUSD*100) / 100,
		"price_currency":    "usd",
		"order_id":          orderID,
		"order_description": "[ADAL_CORE] " + description,
		"success_url":       base + "dashboard?payment=success&type=" + string(req.Category),
		"cancel_url":        base + "dashboard?payment=cancel",
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.NOWPaymentsURL+"/invoice", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", s.cfg.NOWPaymentsAPIKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to reach NOWPayments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
		return nil, fmt.Errorf("NOWPayments invoice failed (%d): %s", resp.StatusCode, string(body))
	}

	var invoice nowPaymentsInvoice
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return nil, fmt.Errorf("failed to decode NOWPayments response: %w", err)
	}

	metrics.CheckoutSessionsTotal.WithLabelValues("crypto", string(req.Category)).Inc()
	return &model.CheckoutResponse{
		SessionID:  invoice.ID.String(),
		InvoiceURL: invoice.InvoiceURL,
		OrderID:    orderID,
	}, nil
}

// ProcessTransaction records a successful payment: the pack is re-validated
// against the catalog, a ledger entry is written and the balance bumped in
// one store transaction.
func (s *Service) ProcessTransaction(ctx context.Context, userID, packCode, paymentMethod, externalRef string) (int64, error) {
	pack, err := s.activePack(packCode)
	if err != nil {
		return 0, err
	}

	txn := &model.CreditTransaction{
		ID:            uuid.Must(uuid.NewV7()).String(),
		UserID:        userID,
		PackCode:      pack.Code,
		CreditsDelta:  pack.Credits,
		AmountUSD:     pack.PriceUSD,
		PaymentMethod: paymentMethod,
		Status:        "success",
		ExternalRef:   externalRef,
		CreatedAt:     time.Now(),
	}

	balance, err := s.store.RecordTransaction(txn)
	if err != nil {
		return 0, err
	}

	s.logger.Info("credit transaction processed",
		zap.String("user_id", userID),
		zap.String("pack_code", pack.Code),
		zap.Int64("credits_delta", pack.Credits),
		zap.Int64("new_balance", balance),
	)

	if s.notifier != nil {
		_, err := s.notifier.Create(ctx, userID, model.NotificationPayment,
			"Pago confirmado",
			fmt.Sprintf("Tu compra de '%s' fue procesada. Nuevo saldo: %d créditos.", pack.Name, balance),
			map[string]string{"pack_code": pack.Code, "external_ref": externalRef},
		)
		if err != nil {
			s.logger.Warn("payment notification failed", zap.String("user_id", userID), zap.Error(err))
		}
	}
	return balance, nil
}

// Packs returns the active credit packs.
func (s *Service) Packs(ctx context.Context) ([]model.CreditPack, error) {
	return s.store.ListCreditPacks()
}

func (s *Service) activePack(code string) (*model.CreditPack, error) {
	pack, err := s.store.GetCreditPack(code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnknownPack
		}
		return nil, err
	}
	if !pack.IsActive {
		return nil, ErrUnknownPack
	}
	return pack, nil
}

func (s *Service) siteBase() string {
	if strings.HasSuffix(s.cfg.SiteURL, "/") {
		return s.cfg.SiteURL
	}
	return s.cfg.SiteURL + "/"
}
