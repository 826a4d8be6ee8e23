package settlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/internal/inventory"
	"github.com/tobiaseke/bulkroom-backend/internal/lifecycle"
	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

// amountTolerance is one smallest currency unit. Only sub-unit conversion
// noise is absorbed; a discrepancy of a full unit or more is a mismatch.
var amountTolerance = decimal.New(1, -2)

// Outcome classifies what Reconcile did with an event.
type Outcome string

const (
	// OutcomeApplied means the order was transitioned to paid by this event.
	OutcomeApplied Outcome = "applied"
	// OutcomeAlreadyProcessed means a previous delivery already settled the
	// order; the retry was absorbed without writes.
	OutcomeAlreadyProcessed Outcome = "already_processed"
	// OutcomeIgnored means the event type does not assert a completed charge.
	OutcomeIgnored Outcome = "ignored"
)

// Shortfall records a stock deduction that failed after payment was applied.
// These are reported for manual reconciliation, never rolled back.
type Shortfall struct {
	ProductID uuid.UUID
	Qty       int
	Reason    string
}

// Result is the outcome of reconciling one payment event.
type Result struct {
	Outcome    Outcome
	OrderID    uuid.UUID
	Shortfalls []Shortfall
}

// Service reconciles asynchronous payment confirmations against orders.
type Service interface {
	Reconcile(ctx context.Context, event PaymentEvent) (*Result, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Notifier receives best-effort post-settlement notifications. Implementations
// must swallow their own failures.
type Notifier interface {
	OrderPaid(ctx context.Context, order *models.Order)
}

type noopNotifier struct{}

func (noopNotifier) OrderPaid(context.Context, *models.Order) {}

type stockDeductor interface {
	Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason enums.StockMovementReason, orderID *uuid.UUID) error
}

type deductEngine struct{}

func (deductEngine) Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason enums.StockMovementReason, orderID *uuid.UUID) error {
	return inventory.Deduct(ctx, tx, productID, qty, reason, orderID)
}

type service struct {
	tx       txRunner
	repo     orders.Repository
	builder  orders.Service
	deductor stockDeductor
	notifier Notifier
	logg     *logger.Logger
}

// NewService builds the settlement reconciler. notifier may be nil.
func NewService(tx txRunner, repo orders.Repository, builder orders.Service, notifier Notifier, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if builder == nil {
		return nil, fmt.Errorf("order builder required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &service{
		tx:       tx,
		repo:     repo,
		builder:  builder,
		deductor: deductEngine{},
		notifier: notifier,
		logg:     logg,
	}, nil
}

// Reconcile applies one payment confirmation. Deliveries are at-least-once
// and may arrive out of order; every path here is safe to retry.
func (s *service) Reconcile(ctx context.Context, event PaymentEvent) (*Result, error) {
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":  event.EventID,
		"event":     event.Type,
		"reference": event.Reference,
	})

	if !settleableEvents[event.Type] {
		s.logg.Info(ctx, "event type does not settle orders, ignoring")
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	if strings.TrimSpace(event.Reference) == "" {
		return nil, unresolvable(event, "event carries no payment reference")
	}

	order, err := s.resolveOrder(ctx, event)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID.String())

	if lifecycle.ReachedPayment(order.Status) {
		s.logg.Info(ctx, "order already settled, absorbing retry")
		return &Result{Outcome: OutcomeAlreadyProcessed, OrderID: order.ID}, nil
	}

	if err := s.checkAmount(order, event); err != nil {
		return nil, err
	}

	applied, err := s.markPaid(ctx, order, event.Reference)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent delivery won the conditional write.
		s.logg.Info(ctx, "order settled concurrently, absorbing retry")
		return &Result{Outcome: OutcomeAlreadyProcessed, OrderID: order.ID}, nil
	}

	// Payment is committed. Inventory problems past this point are reported,
	// never used to undo the settlement.
	result := &Result{Outcome: OutcomeApplied, OrderID: order.ID}
	result.Shortfalls = s.deductStock(ctx, order)

	paid, err := s.repo.FindByID(ctx, order.ID)
	if err == nil {
		s.notifier.OrderPaid(ctx, paid)
	} else {
		s.logg.Warn(ctx, "reloading settled order for notification failed")
	}

	return result, nil
}

// resolveOrder finds the order for an event: payment reference first, then
// explicit order id from metadata, then the pay-first build path. Metadata
// is only consulted when the reference alone does not resolve.
func (s *service) resolveOrder(ctx context.Context, event PaymentEvent) (*models.Order, error) {
	order, err := s.repo.FindByPaymentRef(ctx, event.Reference)
	if err == nil {
		return order, nil
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return nil, err
	}

	locator, err := ExtractLocator(event)
	if err != nil {
		return nil, err
	}

	if locator.OrderID != nil {
		order, err := s.repo.FindByID(ctx, *locator.OrderID)
		if err != nil {
			if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
				return nil, unresolvable(event, "metadata order_id matches no order")
			}
			return nil, err
		}
		if order.PaymentRef != nil && *order.PaymentRef != event.Reference {
			return nil, unresolvable(event, "order is bound to a different payment reference")
		}
		return order, nil
	}

	if !locator.HasBuildInfo() {
		return nil, unresolvable(event, "metadata resolves to neither an order nor a buildable cart")
	}

	s.logg.Info(ctx, "no order for reference, building from event cart")
	return s.builder.BuildOrder(ctx, orders.BuildOrderInput{
		WholesalerID: *locator.WholesalerID,
		RetailerID:   *locator.RetailerID,
		Currency:     enums.Currency(strings.ToUpper(strings.TrimSpace(event.Currency))),
		Lines:        locator.Lines,
		PaymentRef:   event.Reference,
	})
}

func (s *service) checkAmount(order *models.Order, event PaymentEvent) error {
	if event.Currency != "" && !strings.EqualFold(event.Currency, order.Currency.String()) {
		return pkgerrors.New(pkgerrors.CodeAmountMismatch, "settled currency does not match order").
			WithDetails(map[string]any{
				"order_id":       order.ID,
				"order_currency": order.Currency.String(),
				"event_currency": event.Currency,
			})
	}

	settled := decimal.New(event.AmountSubunits, -2)
	if order.Total.Sub(settled).Abs().GreaterThanOrEqual(amountTolerance) {
		return pkgerrors.New(pkgerrors.CodeAmountMismatch, "settled amount does not match order total").
			WithDetails(map[string]any{
				"order_id":  order.ID,
				"expected":  order.Total.String(),
				"settled":   settled.String(),
				"tolerance": amountTolerance.String(),
			})
	}
	return nil
}

// markPaid performs the single conditional write that settles an order. The
// guard on the observed prior status makes concurrent deliveries collapse to
// exactly one winner.
func (s *service) markPaid(ctx context.Context, order *models.Order, reference string) (bool, error) {
	// pending settles directly; the state machine admits the full
	// pending -> confirmed -> paid chain and there is no separate
	// vendor-acceptance step in this flow.
	if order.Status == enums.OrderStatusPending {
		if !lifecycle.CanTransition(enums.OrderStatusPending, enums.OrderStatusConfirmed) ||
			!lifecycle.CanTransition(enums.OrderStatusConfirmed, enums.OrderStatusPaid) {
			return false, pkgerrors.New(pkgerrors.CodeInternal, "lifecycle table no longer admits settlement chain")
		}
	} else if _, err := lifecycle.Transition(order.Status, enums.OrderStatusPaid); err != nil {
		return false, err
	}

	now := time.Now().UTC()
	set := map[string]any{
		"paid_at":     now,
		"payment_ref": reference,
	}

	var applied bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		applied, err = repo.UpdateStatusConditional(ctx, order.ID, order.Status, enums.OrderStatusPaid, set)
		return err
	})
	if err != nil {
		return false, err
	}
	if !applied {
		// Re-read to distinguish a retry from an unexpected state change.
		current, err := s.repo.FindByID(ctx, order.ID)
		if err != nil {
			return false, err
		}
		if lifecycle.ReachedPayment(current.Status) {
			return false, nil
		}
		return false, pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently during settlement").
			WithDetails(map[string]any{"order_id": order.ID, "status": current.Status.String()})
	}
	return true, nil
}

// deductStock removes each line's stock in its own transaction so one
// shortfall does not block the rest.
func (s *service) deductStock(ctx context.Context, order *models.Order) []Shortfall {
	var shortfalls []Shortfall
	for _, item := range order.Items {
		item := item
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			return s.deductor.Deduct(ctx, tx, item.ProductID, item.Qty, enums.StockMovementOrderConfirmed, &order.ID)
		})
		if err == nil {
			continue
		}

		reason := "deduction failed"
		if typed := pkgerrors.As(err); typed != nil {
			reason = string(typed.Code())
		}
		shortfalls = append(shortfalls, Shortfall{ProductID: item.ProductID, Qty: item.Qty, Reason: reason})
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"product_id": item.ProductID,
			"qty":        item.Qty,
		}), "stock deduction failed after settlement, flagged for manual reconciliation")
	}
	return shortfalls
}
