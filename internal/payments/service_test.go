package payments

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	"github.com/tobiaseke/bulkroom-backend/internal/settlement"
	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
	"github.com/tobiaseke/bulkroom-backend/pkg/paystack"
)

type fakeGateway struct {
	initCalls []paystack.TransactionInitParams
	initErr   error

	verifyTx  *paystack.Transaction
	verifyErr error

	subCalls []paystack.SubaccountCreateParams
	sub      *paystack.Subaccount
}

func (f *fakeGateway) InitializeTransaction(_ context.Context, params paystack.TransactionInitParams) (*paystack.TransactionInit, error) {
	f.initCalls = append(f.initCalls, params)
	if f.initErr != nil {
		return nil, f.initErr
	}
	return &paystack.TransactionInit{
		AuthorizationURL: "https://checkout.paystack.com/" + params.Reference,
		AccessCode:       "AC_" + params.Reference,
		Reference:        params.Reference,
	}, nil
}

func (f *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*paystack.Transaction, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	tx := *f.verifyTx
	tx.Reference = reference
	return &tx, nil
}

func (f *fakeGateway) CreateSubaccount(_ context.Context, params paystack.SubaccountCreateParams) (*paystack.Subaccount, error) {
	f.subCalls = append(f.subCalls, params)
	return f.sub, nil
}

type fakeReconciler struct {
	events []settlement.PaymentEvent
	result *settlement.Result
	err    error
}

func (f *fakeReconciler) Reconcile(_ context.Context, event settlement.PaymentEvent) (*settlement.Result, error) {
	f.events = append(f.events, event)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newPaymentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	ddl := []string{`
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  wholesaler_id TEXT NOT NULL,
  retailer_id TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  fee_mode TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  subtotal NUMERIC NOT NULL,
  platform_fee NUMERIC NOT NULL,
  customer_fee NUMERIC NOT NULL,
  total NUMERIC NOT NULL,
  wholesaler_net NUMERIC NOT NULL,
  payment_ref TEXT UNIQUE,
  delivery TEXT,
  delivery_notes TEXT,
  refund_note TEXT,
  paid_at DATETIME,
  fulfilled_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price NUMERIC NOT NULL,
  qty INTEGER NOT NULL,
  line_total NUMERIC NOT NULL,
  position INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS wholesalers (
  id TEXT PRIMARY KEY,
  business_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  subaccount_code TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS retailers (
  id TEXT PRIMARY KEY,
  wholesaler_id TEXT NOT NULL,
  group_id TEXT,
  contact_name TEXT NOT NULL,
  email TEXT,
  phone TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

type paymentsFixture struct {
	db         *gorm.DB
	repo       orders.Repository
	gateway    *fakeGateway
	reconciler *fakeReconciler
	svc        Service
}

func newPaymentsFixture(t *testing.T) *paymentsFixture {
	t.Helper()

	db := newPaymentsTestDB(t)
	repo := orders.NewRepository(db)
	gw := &fakeGateway{
		sub: &paystack.Subaccount{SubaccountCode: "SUB_" + uuid.NewString()[:8], Active: true},
	}
	rec := &fakeReconciler{result: &settlement.Result{Outcome: settlement.OutcomeApplied}}

	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	svc, err := NewService(repo, NewPartyRepository(db), gw, rec, "https://shop.bulkroom.africa/checkout/done", logg)
	if err != nil {
		t.Fatalf("build payments service: %v", err)
	}
	return &paymentsFixture{db: db, repo: repo, gateway: gw, reconciler: rec, svc: svc}
}

func (f *paymentsFixture) seedWholesaler(t *testing.T, subaccountCode string) *models.Wholesaler {
	t.Helper()

	w := &models.Wholesaler{
		ID:             uuid.New(),
		BusinessName:   "Mama Nkechi Distribution",
		Email:          "sales@nkechi.example",
		Phone:          "+2348000000001",
		SubaccountCode: subaccountCode,
	}
	if err := f.db.Create(w).Error; err != nil {
		t.Fatalf("seed wholesaler: %v", err)
	}
	return w
}

func (f *paymentsFixture) seedRetailer(t *testing.T, wholesalerID uuid.UUID, email string) *models.Retailer {
	t.Helper()

	r := &models.Retailer{
		ID:           uuid.New(),
		WholesalerID: wholesalerID,
		ContactName:  "Corner Shop",
		Email:        email,
		Phone:        "+2348000000002",
	}
	if err := f.db.Create(r).Error; err != nil {
		t.Fatalf("seed retailer: %v", err)
	}
	return r
}

func (f *paymentsFixture) seedOrder(t *testing.T, wholesalerID, retailerID uuid.UUID, status enums.OrderStatus, ref string) *models.Order {
	t.Helper()

	order := &models.Order{
		WholesalerID:  wholesalerID,
		RetailerID:    retailerID,
		Currency:      enums.CurrencyNGN,
		FeeMode:       enums.FeeModeWholesalerFunded,
		Status:        status,
		Subtotal:      decimal.RequireFromString("10.00"),
		PlatformFee:   decimal.RequireFromString("0.50"),
		CustomerFee:   decimal.Zero,
		Total:         decimal.RequireFromString("10.00"),
		WholesalerNet: decimal.RequireFromString("9.50"),
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "Carton of goods", UnitPrice: decimal.RequireFromString("2.00"), Qty: 5, LineTotal: decimal.RequireFromString("10.00"), Position: 0},
		},
	}
	if ref != "" {
		order.PaymentRef = &ref
	}
	created, err := f.repo.CreateOrder(context.Background(), order)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return created
}

func TestStartCheckoutOpensSplitSession(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, "")

	checkout, err := f.svc.StartCheckout(ctx, order.ID)
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if checkout.AuthorizationURL == "" || checkout.AccessCode == "" {
		t.Fatalf("session fields missing: %+v", checkout)
	}
	if checkout.AmountSubunits != 1000 {
		t.Fatalf("amount = %d, want 1000", checkout.AmountSubunits)
	}

	if len(f.gateway.initCalls) != 1 {
		t.Fatalf("gateway called %d times, want 1", len(f.gateway.initCalls))
	}
	call := f.gateway.initCalls[0]
	if call.SubaccountCode != "SUB_NKECHI" {
		t.Fatalf("subaccount = %q, want SUB_NKECHI", call.SubaccountCode)
	}
	// 10.00 total, 9.50 wholesaler net: the platform holds back 50 subunits.
	if call.TransactionCharge != 50 {
		t.Fatalf("transaction charge = %d, want 50", call.TransactionCharge)
	}
	if call.Email != "shop@corner.example" {
		t.Fatalf("email = %q", call.Email)
	}
	if got := call.Metadata["order_id"]; got != order.ID.String() {
		t.Fatalf("metadata order_id = %v, want %s", got, order.ID)
	}

	// The reference is bound so the webhook can resolve the order by it.
	bound, err := f.repo.FindByPaymentRef(ctx, checkout.Reference)
	if err != nil {
		t.Fatalf("find by reference: %v", err)
	}
	if bound.ID != order.ID {
		t.Fatalf("reference bound to wrong order")
	}
}

func TestStartCheckoutReusesExistingReference(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	ref := "BR-" + uuid.NewString()
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, ref)

	checkout, err := f.svc.StartCheckout(ctx, order.ID)
	if err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if checkout.Reference != ref {
		t.Fatalf("reference = %q, want existing %q", checkout.Reference, ref)
	}
	if f.gateway.initCalls[0].Reference != ref {
		t.Fatalf("gateway got reference %q, want %q", f.gateway.initCalls[0].Reference, ref)
	}
}

func TestStartCheckoutRejectsSettledOrder(t *testing.T) {
	f := newPaymentsFixture(t)

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPaid, "BR-done")

	_, err := f.svc.StartCheckout(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIllegalTransition {
		t.Fatalf("expected ILLEGAL_TRANSITION, got %v", err)
	}
	if len(f.gateway.initCalls) != 0 {
		t.Fatalf("gateway must not be called for a settled order")
	}
}

func TestStartCheckoutRequiresRegisteredSubaccount(t *testing.T) {
	f := newPaymentsFixture(t)

	wholesaler := f.seedWholesaler(t, "")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, "")

	_, err := f.svc.StartCheckout(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected CONFLICT, got %v", err)
	}
}

func TestStartCheckoutSynthesizesEmailForPhoneFirstRetailer(t *testing.T) {
	f := newPaymentsFixture(t)

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "")
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, "")

	if _, err := f.svc.StartCheckout(context.Background(), order.ID); err != nil {
		t.Fatalf("start checkout: %v", err)
	}
	if f.gateway.initCalls[0].Email == "" {
		t.Fatalf("expected a placeholder email for retailer without one")
	}
}

func TestConfirmCheckoutReconcilesSuccessfulCharge(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	ref := "BR-" + uuid.NewString()
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, ref)

	f.gateway.verifyTx = &paystack.Transaction{
		Status:         "success",
		AmountSubunits: 1000,
		Currency:       "NGN",
		Metadata:       map[string]any{"order_id": order.ID.String()},
	}

	confirmation, err := f.svc.ConfirmCheckout(ctx, order.ID)
	if err != nil {
		t.Fatalf("confirm checkout: %v", err)
	}
	if !confirmation.Settled {
		t.Fatalf("expected settled confirmation, got %+v", confirmation)
	}
	if confirmation.Outcome != settlement.OutcomeApplied {
		t.Fatalf("outcome = %s, want applied", confirmation.Outcome)
	}

	if len(f.reconciler.events) != 1 {
		t.Fatalf("reconciler called %d times, want 1", len(f.reconciler.events))
	}
	event := f.reconciler.events[0]
	if event.Reference != ref || event.AmountSubunits != 1000 {
		t.Fatalf("unexpected event %+v", event)
	}
	if event.Type != "charge.success" {
		t.Fatalf("event type = %q", event.Type)
	}
}

func TestConfirmCheckoutLeavesUnsettledChargeAlone(t *testing.T) {
	f := newPaymentsFixture(t)

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, "BR-waiting")

	f.gateway.verifyTx = &paystack.Transaction{Status: "abandoned"}

	confirmation, err := f.svc.ConfirmCheckout(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("confirm checkout: %v", err)
	}
	if confirmation.Settled {
		t.Fatalf("abandoned charge must not settle")
	}
	if confirmation.GatewayStatus != "abandoned" {
		t.Fatalf("gateway status = %q", confirmation.GatewayStatus)
	}
	if len(f.reconciler.events) != 0 {
		t.Fatalf("reconciler must not run for an unsettled charge")
	}
}

func TestConfirmCheckoutRequiresStartedCheckout(t *testing.T) {
	f := newPaymentsFixture(t)

	wholesaler := f.seedWholesaler(t, "SUB_NKECHI")
	retailer := f.seedRetailer(t, wholesaler.ID, "shop@corner.example")
	order := f.seedOrder(t, wholesaler.ID, retailer.ID, enums.OrderStatusPending, "")

	_, err := f.svc.ConfirmCheckout(context.Background(), order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION, got %v", err)
	}
}

func TestRegisterSubaccountPersistsCode(t *testing.T) {
	f := newPaymentsFixture(t)
	ctx := context.Background()

	wholesaler := f.seedWholesaler(t, "")
	input := SubaccountInput{BankCode: "058", AccountNumber: "0123456789"}

	updated, err := f.svc.RegisterSubaccount(ctx, wholesaler.ID, input)
	if err != nil {
		t.Fatalf("register subaccount: %v", err)
	}
	if updated.SubaccountCode != f.gateway.sub.SubaccountCode {
		t.Fatalf("code = %q, want %q", updated.SubaccountCode, f.gateway.sub.SubaccountCode)
	}

	var reloaded models.Wholesaler
	if err := f.db.First(&reloaded, "id = ?", wholesaler.ID).Error; err != nil {
		t.Fatalf("reload wholesaler: %v", err)
	}
	if reloaded.SubaccountCode != f.gateway.sub.SubaccountCode {
		t.Fatalf("persisted code = %q", reloaded.SubaccountCode)
	}

	// Registering again is idempotent and does not hit the gateway twice.
	if _, err := f.svc.RegisterSubaccount(ctx, wholesaler.ID, input); err != nil {
		t.Fatalf("second register: %v", err)
	}
	if len(f.gateway.subCalls) != 1 {
		t.Fatalf("gateway called %d times, want 1", len(f.gateway.subCalls))
	}
}
