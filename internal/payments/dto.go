package payments

import (
	"github.com/google/uuid"

	"github.com/tobiaseke/bulkroom-backend/internal/settlement"
)

// Checkout is the hosted payment session opened for an order. The client
// redirects the buyer to AuthorizationURL; settlement arrives via webhook.
type Checkout struct {
	OrderID          uuid.UUID `json:"order_id"`
	Reference        string    `json:"reference"`
	AuthorizationURL string    `json:"authorization_url"`
	AccessCode       string    `json:"access_code"`
	AmountSubunits   int64     `json:"amount_subunits"`
	Currency         string    `json:"currency"`
}

// Confirmation is the result of a synchronous post-redirect verification.
// Settled is true when the charge succeeded and reconciliation accepted it.
type Confirmation struct {
	OrderID       uuid.UUID          `json:"order_id"`
	Reference     string             `json:"reference"`
	GatewayStatus string             `json:"gateway_status"`
	Settled       bool               `json:"settled"`
	Outcome       settlement.Outcome `json:"outcome,omitempty"`
}

// SubaccountInput carries the bank details needed to register a wholesaler's
// settlement destination. Bank details are passed through, never stored.
type SubaccountInput struct {
	BankCode      string `json:"bank_code" validate:"required"`
	AccountNumber string `json:"account_number" validate:"required"`
	Description   string `json:"description"`
}
