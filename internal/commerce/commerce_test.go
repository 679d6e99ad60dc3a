package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adalparedes/adalcore/internal/model"
	"github.com/adalparedes/adalcore/internal/store"
	"github.com/adalparedes/adalcore/pkg/logger"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.PutCreditPack(&model.CreditPack{
		Code: "basic", Name: "Basic Pack", PriceUSD: 4.99, Credits: 100, IsActive: true,
	}))
	require.NoError(t, st.PutCreditPack(&model.CreditPack{
		Code: "retired", Name: "Retired", PriceUSD: 1.99, Credits: 10, IsActive: false,
	}))
	return st
}

func TestOrderIDPrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(OrderID(model.CategoryMembership, "user-12345678", "ref"), "MEM_"))
	assert.True(t, strings.HasPrefix(OrderID(model.CategoryCredits, "user-12345678", "ref"), "CRE_"))
	assert.True(t, strings.HasPrefix(OrderID(model.CategoryMerch, "user-12345678", "ref"), "MER_"))
	assert.True(t, strings.HasPrefix(OrderID(model.CategoryService, "user-12345678", "ref"), "SER_"))
	assert.True(t, strings.HasPrefix(OrderID(model.PaymentCategory("???"), "user-12345678", "ref"), "GEN_"))

	// Short user ids must not panic.
	assert.Contains(t, OrderID(model.CategoryCredits, "u1", "ref"), "u1")
}

func TestCryptoInvoiceUsesServerSidePrice(t *testing.T) {
	var gotBody map[string]any
	var gotAPIKey string

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/invoice", r.URL.Path)
		gotAPIKey = r.Header.Get("x-api-key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Write([]byte(`{"id":12345,"invoice_url":"https://nowpayments.io/payment/12345"}`))
	}))
	defer gateway.Close()

	svc := NewService(newTestStore(t), Config{
		NOWPaymentsAPIKey: "np-key",
		NOWPaymentsURL:    gateway.URL,
		SiteURL:           "https://portal.example.com",
	}, gateway.Client(), nil, logger.NewNop())

	resp, err := svc.CryptoInvoice(context.Background(), "user-1", &model.CheckoutRequest{
		PackCode: "basic",
		Category: model.CategoryCredits,
	})
	require.NoError(t, err)

	assert.Equal(t, "12345", resp.SessionID)
	assert.Equal(t, "https://nowpayments.io/payment/12345", resp.InvoiceURL)
	assert.True(t, strings.HasPrefix(resp.OrderID, "CRE_"))

	assert.Equal(t, "np-key", gotAPIKey)
	// The price comes from the catalog, never from the client.
	assert.InDelta(t, 4.99, gotBody["price_amount"].(float64), 0.001)
	assert.Contains(t, gotBody["order_description"], "[ADAL_CORE]")
	assert.Contains(t, gotBody["success_url"], "https://portal.example.com/dashboard?payment=success")
}

func TestCryptoInvoiceRejectsUnknownOrInactivePack(t *testing.T) {
	svc := NewService(newTestStore(t), Config{
		NOWPaymentsAPIKey: "np-key",
		NOWPaymentsURL:    "http://unused",
		SiteURL:           "https://portal.example.com",
	}, nil, nil, logger.NewNop())

	_, err := svc.CryptoInvoice(context.Background(), "user-1", &model.CheckoutRequest{PackCode: "nope"})
	assert.ErrorIs(t, err, ErrUnknownPack)

	_, err = svc.CryptoInvoice(context.Background(), "user-1", &model.CheckoutRequest{PackCode: "retired"})
	assert.ErrorIs(t, err, ErrUnknownPack)
}

func TestCheckoutWithoutGatewayCredential(t *testing.T) {
	svc := NewService(newTestStore(t), Config{SiteURL: "https://portal.example.com"}, nil, nil, logger.NewNop())

	_, err := svc.CryptoInvoice(context.Background(), "user-1", &model.CheckoutRequest{PackCode: "basic"})
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)

	_, err = svc.StripeCheckout(context.Background(), "user-1", &model.CheckoutRequest{PackCode: "basic"})
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}

type capturingNotifier struct {
	created []model.AppNotification
}

func (n *capturingNotifier) Create(ctx context.Context, userID string, typ model.NotificationType, title, body string, metadata map[string]string) (*model.AppNotification, error) {
	created := model.AppNotification{UserID: userID, Type: typ, Title: title, Body: body, Metadata: metadata}
	n.created = append(n.created, created)
	return &created, nil
}

func TestProcessTransactionCreditsBalance(t *testing.T) {
	st := newTestStore(t)
	notifier := &capturingNotifier{}
	svc := NewService(st, Config{}, nil, notifier, logger.NewNop())

	balance, err := svc.ProcessTransaction(context.Background(), "user-1", "basic", "stripe", "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), balance)

	balance, err = svc.ProcessTransaction(context.Background(), "user-1", "basic", "crypto", "inv_2")
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)

	stored, err := st.Balance("user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(200), stored)

	_, err = svc.ProcessTransaction(context.Background(), "user-1", "nope", "stripe", "cs_3")
	assert.ErrorIs(t, err, ErrUnknownPack)

	// One payment notification per successful transaction.
	require.Len(t, notifier.created, 2)
	assert.Equal(t, model.NotificationPayment, notifier.created[0].Type)
	assert.Contains(t, notifier.created[1].Body, "200")
}
