package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/internal/pricing"
	"github.com/tobiaseke/bulkroom-backend/internal/products"
	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newTestService(t *testing.T, db *gorm.DB) Service {
	t.Helper()

	schedule := pricing.FeeSchedule{
		Mode:           enums.FeeModeWholesalerFunded,
		CommissionRate: decimal.RequireFromString("0.05"),
	}
	svc, err := NewService(gormTxRunner{db: db}, NewRepository(db), products.NewRepository(db), schedule)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestBuildOrderHappyPath(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	wholesalerID := uuid.New()
	productA := seedTestProduct(t, db, wholesalerID, "2.00", 5, 10)
	productB := seedTestProduct(t, db, wholesalerID, "4.00", 1, 20)

	order, err := svc.BuildOrder(ctx, BuildOrderInput{
		WholesalerID: wholesalerID,
		RetailerID:   uuid.New(),
		Lines: []LineItemInput{
			{ProductID: productA.ID, Qty: 5},
			{ProductID: productB.ID, Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("build order: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("status = %s, want pending", order.Status)
	}
	if got := order.Subtotal.String(); got != "22" {
		t.Fatalf("subtotal = %s, want 22", got)
	}
	if got := order.PlatformFee.String(); got != "1.1" {
		t.Fatalf("platform fee = %s, want 1.1", got)
	}
	if !order.Total.Equal(order.Subtotal) {
		t.Fatalf("total = %s, want subtotal", order.Total)
	}
	if got := order.WholesalerNet.String(); got != "20.9" {
		t.Fatalf("wholesaler net = %s, want 20.9", got)
	}
	if len(order.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(order.Items))
	}
	if order.Items[0].Position != 0 || order.Items[1].Position != 1 {
		t.Fatalf("cart order not preserved: %+v", order.Items)
	}

	// Build time never touches stock.
	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", productA.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.StockQty != 10 {
		t.Fatalf("stock = %d, want 10 (untouched)", reloaded.StockQty)
	}
}

func TestBuildOrderSnapshotsPromoPrice(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	wholesalerID := uuid.New()
	product := seedTestProduct(t, db, wholesalerID, "10.00", 1, 50)
	promo := decimal.RequireFromString("8.00")
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Updates(map[string]any{"promo_price": promo, "promo_active": true}).Error; err != nil {
		t.Fatalf("activate promo: %v", err)
	}

	order, err := svc.BuildOrder(ctx, BuildOrderInput{
		WholesalerID: wholesalerID,
		RetailerID:   uuid.New(),
		Lines:        []LineItemInput{{ProductID: product.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("build order: %v", err)
	}
	if !order.Items[0].UnitPrice.Equal(promo) {
		t.Fatalf("unit price = %s, want promo 8.00", order.Items[0].UnitPrice)
	}

	// Later price changes must not affect the stored snapshot.
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		UpdateColumn("promo_active", false).Error; err != nil {
		t.Fatalf("deactivate promo: %v", err)
	}
	found, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !found.Items[0].UnitPrice.Equal(promo) {
		t.Fatalf("snapshot mutated: %s", found.Items[0].UnitPrice)
	}
}

func TestBuildOrderBelowMOQ(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)

	wholesalerID := uuid.New()
	product := seedTestProduct(t, db, wholesalerID, "2.00", 10, 100)

	_, err := svc.BuildOrder(context.Background(), BuildOrderInput{
		WholesalerID: wholesalerID,
		RetailerID:   uuid.New(),
		Lines:        []LineItemInput{{ProductID: product.ID, Qty: 4}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeBelowMOQ {
		t.Fatalf("expected BELOW_MINIMUM_ORDER_QUANTITY, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok || details["product"] != product.Name || details["moq"] != 10 {
		t.Fatalf("details must name the product and its MOQ: %v", typed.Details())
	}
}

func TestBuildOrderInsufficientStockAdvisory(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)

	wholesalerID := uuid.New()
	product := seedTestProduct(t, db, wholesalerID, "2.00", 1, 3)

	_, err := svc.BuildOrder(context.Background(), BuildOrderInput{
		WholesalerID: wholesalerID,
		RetailerID:   uuid.New(),
		Lines:        []LineItemInput{{ProductID: product.ID, Qty: 4}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected INSUFFICIENT_STOCK, got %v", err)
	}
}

func TestBuildOrderRejectsForeignOrInactiveProduct(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	wholesalerID := uuid.New()
	foreign := seedTestProduct(t, db, uuid.New(), "2.00", 1, 10)

	_, err := svc.BuildOrder(ctx, BuildOrderInput{
		WholesalerID: wholesalerID,
		RetailerID:   uuid.New(),
		Lines:        []LineItemInput{{ProductID: foreign.ID, Qty: 1}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidLineItem {
		t.Fatalf("expected INVALID_LINE_ITEM for foreign product, got %v", err)
	}

	inactive := seedTestProduct(t, db, wholesalerID, "2.00", 1, 10)
	if err := db.Model(&models.Product{}).Where("id = ?", inactive.ID).
		UpdateColumn("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product: %v", err)
	}
	_, err = svc.BuildOrder(ctx, BuildOrderInput{
		WholesalerID: wholesalerID,
		RetailerID:   uuid.New(),
		Lines:        []LineItemInput{{ProductID: inactive.ID, Qty: 1}},
	})
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInvalidLineItem {
		t.Fatalf("expected INVALID_LINE_ITEM for inactive product, got %v", err)
	}
}

func TestBuildOrderUnknownProduct(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)

	_, err := svc.BuildOrder(context.Background(), BuildOrderInput{
		WholesalerID: uuid.New(),
		RetailerID:   uuid.New(),
		Lines:        []LineItemInput{{ProductID: uuid.New(), Qty: 1}},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestCancelPendingOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	repo := NewRepository(db)
	order, err := repo.CreateOrder(ctx, buildTestOrder(uuid.New(), uuid.New(), enums.OrderStatusPending))
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledAt == nil {
		t.Fatalf("cancelled_at not set")
	}

	// Cancelling again is a soft no-op.
	again, err := svc.Cancel(ctx, order.ID)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if again.Status != enums.OrderStatusCancelled {
		t.Fatalf("status = %s, want cancelled", again.Status)
	}
}

func TestCancelPaidOrderIsIllegal(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	repo := NewRepository(db)
	order, err := repo.CreateOrder(ctx, buildTestOrder(uuid.New(), uuid.New(), enums.OrderStatusPaid))
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	_, err = svc.Cancel(ctx, order.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeIllegalTransition {
		t.Fatalf("expected ILLEGAL_TRANSITION, got %v", err)
	}
}

func TestFulfillPaidOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	repo := NewRepository(db)
	order, err := repo.CreateOrder(ctx, buildTestOrder(uuid.New(), uuid.New(), enums.OrderStatusPaid))
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}

	fulfilled, err := svc.Fulfill(ctx, order.ID)
	if err != nil {
		t.Fatalf("fulfill: %v", err)
	}
	if fulfilled.Status != enums.OrderStatusFulfilled {
		t.Fatalf("status = %s, want fulfilled", fulfilled.Status)
	}
	if fulfilled.FulfilledAt == nil {
		t.Fatalf("fulfilled_at not set")
	}
}

func TestRefundRestoresStock(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc := newTestService(t, db)
	ctx := context.Background()

	wholesalerID := uuid.New()
	product := seedTestProduct(t, db, wholesalerID, "2.00", 1, 5)

	repo := NewRepository(db)
	order := buildTestOrder(wholesalerID, uuid.New(), enums.OrderStatusPaid)
	order.Items = []models.OrderItem{
		{ProductID: product.ID, Name: product.Name, UnitPrice: product.UnitPrice, Qty: 3, LineTotal: decimal.RequireFromString("6.00"), Position: 0},
	}
	if _, err := repo.CreateOrder(ctx, order); err != nil {
		t.Fatalf("seed order: %v", err)
	}

	refunded, err := svc.Refund(ctx, order.ID, RefundInput{Note: "damaged in transit"})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != enums.OrderStatusRefunded {
		t.Fatalf("status = %s, want refunded", refunded.Status)
	}
	if refunded.RefundNote == nil || *refunded.RefundNote != "damaged in transit" {
		t.Fatalf("refund note missing")
	}

	var reloaded models.Product
	if err := db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	if reloaded.StockQty != 8 {
		t.Fatalf("stock = %d, want 8 after restore", reloaded.StockQty)
	}

	var movement models.StockMovement
	if err := db.First(&movement, "order_id = ?", order.ID).Error; err != nil {
		t.Fatalf("load movement: %v", err)
	}
	if movement.Delta != 3 || movement.Reason != enums.StockMovementOrderRefunded {
		t.Fatalf("unexpected movement %+v", movement)
	}
}
