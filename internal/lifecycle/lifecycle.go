package lifecycle

import (
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

// transitions is the single source of truth for order status changes. Every
// status mutation in the codebase goes through Transition.
var transitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusPaid, enums.OrderStatusCancelled},
	enums.OrderStatusPaid:      {enums.OrderStatusFulfilled, enums.OrderStatusRefunded},
	enums.OrderStatusFulfilled: {enums.OrderStatusArchived, enums.OrderStatusRefunded},
	enums.OrderStatusCancelled: nil,
	enums.OrderStatusArchived:  nil,
	enums.OrderStatusRefunded:  nil,
}

// Result reports the outcome of a transition request.
type Result struct {
	// Changed is false when the order was already in the target state
	// (soft no-op for retried requests).
	Changed bool
	From    enums.OrderStatus
	To      enums.OrderStatus
}

// Transition validates a status change. Requesting the current status is a
// soft success with Changed=false; any move not in the table is
// ILLEGAL_TRANSITION.
func Transition(current, target enums.OrderStatus) (Result, error) {
	if !current.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "current order status is invalid").
			WithDetails(map[string]any{"status": current.String()})
	}
	if !target.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "target order status is invalid").
			WithDetails(map[string]any{"status": target.String()})
	}

	if current == target {
		return Result{Changed: false, From: current, To: target}, nil
	}

	for _, allowed := range transitions[current] {
		if allowed == target {
			return Result{Changed: true, From: current, To: target}, nil
		}
	}

	return Result{}, pkgerrors.New(pkgerrors.CodeIllegalTransition, "order status transition disallowed").
		WithDetails(map[string]any{"from": current.String(), "to": target.String()})
}

// CanTransition reports whether current may move to target (excluding the
// same-state no-op).
func CanTransition(current, target enums.OrderStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ReachedPayment reports whether the status is paid or any later state,
// meaning a settlement has already been applied to the order.
func ReachedPayment(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPaid, enums.OrderStatusFulfilled, enums.OrderStatusArchived, enums.OrderStatusRefunded:
		return true
	default:
		return false
	}
}
