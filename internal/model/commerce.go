package model

import (
	"time"
)

// PaymentCategory tags what a checkout pays for.
type PaymentCategory string

const (
	CategoryCredits    PaymentCategory = "credits"
	CategoryMembership PaymentCategory = "membership"
	CategoryMerch      PaymentCategory = "merch"
	CategoryService    PaymentCategory = "service"
)

// OrderPrefix returns the order-id prefix for a category (MEM_, CRE_, ...).
func (c PaymentCategory) OrderPrefix() string {
	switch c {
	case CategoryMembership:
		return "MEM"
	case CategoryCredits:
		return "CRE"
	case CategoryMerch:
		return "MER"
	case CategoryService:
		return "SER"
	}
	return "GEN"
}

// CreditPack is a purchasable credit bundle. Packs are the server-side source
// of truth for pricing; client-submitted amounts are never trusted.
type CreditPack struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	PriceUSD  float64 `json:"price_usd"`
	Credits   int64   `json:"credits"`
	IsActive  bool    `json:"is_active"`
	SortOrder int     `json:"sort_order"`
}

// CreditTransaction is one entry in the credit ledger.
type CreditTransaction struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	PackCode      string    `json:"pack_code"`
	CreditsDelta  int64     `json:"credits_delta"`
	AmountUSD     float64   `json:"amount_usd"`
	PaymentMethod string    `json:"payment_method"`
	Status        string    `json:"status"`
	ExternalRef   string    `json:"external_ref"`
	CreatedAt     time.Time `json:"created_at"`
}

// CheckoutRequest is the body for both checkout endpoints.
type CheckoutRequest struct {
	PackCode    string          `json:"packCode"`
	Category    PaymentCategory `json:"category"`
	Description string          `json:"description,omitempty"`
	UserEmail   string          `json:"userEmail,omitempty"`
}

// CheckoutResponse carries the gateway redirect for a created session.
type CheckoutResponse struct {
	SessionID  string `json:"session_id,omitempty"`
	InvoiceURL string `json:"invoice_url"`
	OrderID    string `json:"order_id,omitempty"`
}
