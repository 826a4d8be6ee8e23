package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	"github.com/tobiaseke/bulkroom-backend/internal/settlement"
	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
	"github.com/tobiaseke/bulkroom-backend/pkg/paystack"
)

// gateway is the slice of the payment processor client checkout needs.
type gateway interface {
	InitializeTransaction(ctx context.Context, params paystack.TransactionInitParams) (*paystack.TransactionInit, error)
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
	CreateSubaccount(ctx context.Context, params paystack.SubaccountCreateParams) (*paystack.Subaccount, error)
}

// Service opens checkout sessions, verifies them after redirect, and
// registers wholesaler settlement destinations.
type Service interface {
	StartCheckout(ctx context.Context, orderID uuid.UUID) (*Checkout, error)
	ConfirmCheckout(ctx context.Context, orderID uuid.UUID) (*Confirmation, error)
	RegisterSubaccount(ctx context.Context, wholesalerID uuid.UUID, input SubaccountInput) (*models.Wholesaler, error)
}

type service struct {
	repo        orders.Repository
	parties     PartyRepository
	gateway     gateway
	reconciler  settlement.Service
	callbackURL string
	logg        *logger.Logger
}

// NewService builds the payments service. callbackURL may be empty, in which
// case the gateway falls back to the dashboard-configured redirect.
func NewService(repo orders.Repository, parties PartyRepository, gw gateway, reconciler settlement.Service, callbackURL string, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if parties == nil {
		return nil, fmt.Errorf("party repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if reconciler == nil {
		return nil, fmt.Errorf("settlement service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:        repo,
		parties:     parties,
		gateway:     gw,
		reconciler:  reconciler,
		callbackURL: strings.TrimSpace(callbackURL),
		logg:        logg,
	}, nil
}

// StartCheckout opens a split-settlement session for a pending order. The
// charge settles to the wholesaler's subaccount with the platform's cut held
// back as a flat transaction charge; metadata carries the order id so the
// webhook can locate the order even if the reference binding is lost.
func (s *service) StartCheckout(ctx context.Context, orderID uuid.UUID) (*Checkout, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeIllegalTransition, "checkout is only available for pending orders").
			WithDetails(map[string]any{"order_id": order.ID, "status": order.Status.String()})
	}

	wholesaler, err := s.parties.FindWholesaler(ctx, order.WholesalerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(wholesaler.SubaccountCode) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "wholesaler has no settlement subaccount registered").
			WithDetails(map[string]any{"wholesaler_id": wholesaler.ID})
	}

	retailer, err := s.parties.FindRetailer(ctx, order.RetailerID)
	if err != nil {
		return nil, err
	}

	// Re-initiating an order reuses its reference so at most one checkout
	// session can ever settle it.
	reference := newPaymentRef()
	if order.PaymentRef != nil {
		reference = *order.PaymentRef
	}

	amount := subunits(order.Total)
	platformCut := subunits(order.Total.Sub(order.WholesalerNet))

	session, err := s.gateway.InitializeTransaction(ctx, paystack.TransactionInitParams{
		Reference:         reference,
		AmountSubunits:    amount,
		Currency:          order.Currency.String(),
		Email:             checkoutEmail(retailer),
		SubaccountCode:    wholesaler.SubaccountCode,
		TransactionCharge: platformCut,
		Bearer:            "subaccount",
		CallbackURL:       s.callbackURL,
		Metadata:          map[string]any{"order_id": order.ID.String()},
	})
	if err != nil {
		return nil, err
	}

	if order.PaymentRef == nil {
		if err := s.repo.AttachPaymentRef(ctx, order.ID, reference); err != nil {
			return nil, err
		}
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"reference": reference,
		"amount":    amount,
	}), "checkout session opened")

	return &Checkout{
		OrderID:          order.ID,
		Reference:        reference,
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		AmountSubunits:   amount,
		Currency:         order.Currency.String(),
	}, nil
}

// ConfirmCheckout verifies the order's transaction against the gateway and,
// when the charge succeeded, feeds it through the same reconciliation path
// the webhook uses. Safe to call any number of times.
func (s *service) ConfirmCheckout(ctx context.Context, orderID uuid.UUID) (*Confirmation, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if order.PaymentRef == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout has not been started for this order").
			WithDetails(map[string]any{"order_id": order.ID})
	}
	reference := *order.PaymentRef

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	confirmation := &Confirmation{
		OrderID:       order.ID,
		Reference:     reference,
		GatewayStatus: tx.Status,
	}
	if !strings.EqualFold(tx.Status, "success") {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{"gateway_status": tx.Status}),
			"transaction not settled yet")
		return confirmation, nil
	}

	result, err := s.reconciler.Reconcile(ctx, settlement.PaymentEvent{
		EventID:        "verify:" + tx.Reference,
		Type:           "charge.success",
		Reference:      tx.Reference,
		AmountSubunits: tx.AmountSubunits,
		Currency:       tx.Currency,
		Metadata:       tx.Metadata,
	})
	if err != nil {
		return nil, err
	}

	confirmation.Settled = result.Outcome == settlement.OutcomeApplied ||
		result.Outcome == settlement.OutcomeAlreadyProcessed
	confirmation.Outcome = result.Outcome
	return confirmation, nil
}

// RegisterSubaccount creates the wholesaler's settlement destination at the
// gateway and records the issued code. A wholesaler that already has one is
// returned unchanged.
func (s *service) RegisterSubaccount(ctx context.Context, wholesalerID uuid.UUID, input SubaccountInput) (*models.Wholesaler, error) {
	if wholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}

	wholesaler, err := s.parties.FindWholesaler(ctx, wholesalerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(wholesaler.SubaccountCode) != "" {
		return wholesaler, nil
	}

	// The platform's cut is charged flat per transaction, so the subaccount
	// itself carries no percentage.
	sub, err := s.gateway.CreateSubaccount(ctx, paystack.SubaccountCreateParams{
		BusinessName:  wholesaler.BusinessName,
		BankCode:      input.BankCode,
		AccountNumber: input.AccountNumber,
		Description:   input.Description,
	})
	if err != nil {
		return nil, err
	}

	if err := s.parties.SaveWholesalerSubaccount(ctx, wholesaler.ID, sub.SubaccountCode); err != nil {
		return nil, err
	}
	wholesaler.SubaccountCode = sub.SubaccountCode

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"wholesaler_id": wholesaler.ID,
	}), "wholesaler subaccount registered")
	return wholesaler, nil
}

// checkoutEmail returns the address the gateway requires for a charge.
// Phone-first retailers without one get a routable placeholder.
func checkoutEmail(retailer *models.Retailer) string {
	if email := strings.TrimSpace(retailer.Email); email != "" {
		return email
	}
	return fmt.Sprintf("retailer-%s@checkout.bulkroom.africa", retailer.ID)
}

func newPaymentRef() string {
	return "BR-" + uuid.NewString()
}

// subunits converts a 2 dp amount to the currency's smallest unit.
func subunits(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
