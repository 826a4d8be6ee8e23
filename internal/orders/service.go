package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/internal/inventory"
	"github.com/tobiaseke/bulkroom-backend/internal/lifecycle"
	"github.com/tobiaseke/bulkroom-backend/internal/pricing"
	"github.com/tobiaseke/bulkroom-backend/internal/products"
	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockRestorer interface {
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason enums.StockMovementReason, orderID *uuid.UUID) error
}

type restoreEngine struct{}

func (restoreEngine) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason enums.StockMovementReason, orderID *uuid.UUID) error {
	return inventory.Restore(ctx, tx, productID, qty, reason, orderID)
}

type service struct {
	tx          txRunner
	repo        Repository
	productRepo products.Repository
	schedule    pricing.FeeSchedule
	restorer    stockRestorer
}

// NewService builds the orders service. The fee schedule is fixed at
// construction; each order freezes it into its stored money fields.
func NewService(tx txRunner, repo Repository, productRepo products.Repository, schedule pricing.FeeSchedule) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if !schedule.Mode.IsValid() {
		return nil, fmt.Errorf("fee schedule mode %q invalid", schedule.Mode)
	}
	return &service{
		tx:          tx,
		repo:        repo,
		productRepo: productRepo,
		schedule:    schedule,
		restorer:    restoreEngine{},
	}, nil
}

// BuildOrder turns a submitted cart into a pending order: per-line MOQ and
// advisory stock checks, price snapshot, one pricing pass, atomic persist.
// Stock is not deducted here; deduction happens at settlement.
func (s *service) BuildOrder(ctx context.Context, input BuildOrderInput) (*models.Order, error) {
	if input.WholesalerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wholesaler id required")
	}
	if input.RetailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retailer id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "order has no line items")
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency").
			WithDetails(map[string]any{"currency": currency.String()})
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		priceLines := make([]pricing.Line, len(input.Lines))
		items := make([]models.OrderItem, len(input.Lines))
		for i, line := range input.Lines {
			if line.Qty < 1 {
				return pkgerrors.New(pkgerrors.CodeInvalidLineItem, "line quantity must be at least 1").
					WithDetails(map[string]any{"product_id": line.ProductID, "qty": line.Qty})
			}

			product, err := productRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !product.IsActive || product.WholesalerID != input.WholesalerID {
				return pkgerrors.New(pkgerrors.CodeInvalidLineItem, "product is not orderable from this wholesaler").
					WithDetails(map[string]any{"product_id": product.ID, "product": product.Name})
			}
			if line.Qty < product.MOQ {
				return pkgerrors.New(pkgerrors.CodeBelowMOQ, "quantity below minimum order quantity").
					WithDetails(map[string]any{
						"product_id": product.ID,
						"product":    product.Name,
						"moq":        product.MOQ,
						"qty":        line.Qty,
					})
			}
			// Advisory only; the authoritative check is the conditional
			// deduction at settlement.
			if line.Qty > product.StockQty {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "quantity exceeds available stock").
					WithDetails(map[string]any{
						"product_id": product.ID,
						"product":    product.Name,
						"available":  product.StockQty,
						"qty":        line.Qty,
					})
			}

			priceLines[i] = pricing.Line{
				ProductID: product.ID,
				Name:      product.Name,
				UnitPrice: product.EffectiveUnitPrice(),
				Qty:       line.Qty,
			}
		}

		totals, err := pricing.ComputeOrderTotals(priceLines, s.schedule)
		if err != nil {
			return err
		}

		for i, line := range priceLines {
			items[i] = models.OrderItem{
				ProductID: line.ProductID,
				Name:      line.Name,
				UnitPrice: line.UnitPrice,
				Qty:       line.Qty,
				LineTotal: totals.LineTotals[i],
				Position:  i,
			}
		}

		order := &models.Order{
			WholesalerID:  input.WholesalerID,
			RetailerID:    input.RetailerID,
			Currency:      currency,
			FeeMode:       s.schedule.Mode,
			Status:        enums.OrderStatusPending,
			Subtotal:      totals.Subtotal,
			PlatformFee:   totals.PlatformFee,
			CustomerFee:   totals.CustomerFee,
			Total:         totals.Total,
			WholesalerNet: totals.WholesalerNet,
			Delivery:      input.Delivery,
			Items:         items,
		}
		if ref := strings.TrimSpace(input.PaymentRef); ref != "" {
			order.PaymentRef = &ref
		}
		if notes := strings.TrimSpace(input.DeliveryNotes); notes != "" {
			order.DeliveryNotes = &notes
		}

		created, err = repo.CreateOrder(ctx, order)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	return s.repo.FindByID(ctx, id)
}

// Cancel moves a pending or confirmed order to cancelled. Stock was never
// deducted for those states, so there is nothing to restore.
func (s *service) Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	now := time.Now().UTC()
	return s.applyTransition(ctx, id, enums.OrderStatusCancelled, map[string]any{"cancelled_at": now}, nil)
}

// Fulfill moves a paid order to fulfilled.
func (s *service) Fulfill(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	now := time.Now().UTC()
	return s.applyTransition(ctx, id, enums.OrderStatusFulfilled, map[string]any{"fulfilled_at": now}, nil)
}

// Refund moves a paid or fulfilled order to refunded and restores its stock.
func (s *service) Refund(ctx context.Context, id uuid.UUID, input RefundInput) (*models.Order, error) {
	set := map[string]any{}
	if note := strings.TrimSpace(input.Note); note != "" {
		set["refund_note"] = note
	}
	return s.applyTransition(ctx, id, enums.OrderStatusRefunded, set, func(ctx context.Context, tx *gorm.DB, order *models.Order) error {
		for _, item := range order.Items {
			if err := s.restorer.Restore(ctx, tx, item.ProductID, item.Qty, enums.StockMovementOrderRefunded, &order.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// applyTransition runs the full lifecycle protocol inside one transaction:
// load, validate against the state machine, conditional write keyed on the
// observed prior status, then the optional side effect. A guard mismatch
// after a legal validation means a concurrent writer won; the caller gets a
// conflict and can retry against the new state.
func (s *service) applyTransition(
	ctx context.Context,
	id uuid.UUID,
	target enums.OrderStatus,
	set map[string]any,
	sideEffect func(ctx context.Context, tx *gorm.DB, order *models.Order) error,
) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		outcome, err := lifecycle.Transition(order.Status, target)
		if err != nil {
			return err
		}
		if !outcome.Changed {
			// Already in the target state: soft success, no writes.
			result = order
			return nil
		}

		applied, err := repo.UpdateStatusConditional(ctx, order.ID, order.Status, target, set)
		if err != nil {
			return err
		}
		if !applied {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently, retry").
				WithDetails(map[string]any{"order_id": order.ID})
		}

		if sideEffect != nil {
			if err := sideEffect(ctx, tx, order); err != nil {
				return err
			}
		}

		result, err = repo.FindByID(ctx, order.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
