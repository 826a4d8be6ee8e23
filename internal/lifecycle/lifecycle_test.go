package lifecycle

import (
	"testing"

	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

func TestTransitionAllowedPaths(t *testing.T) {
	allowed := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
	}{
		{enums.OrderStatusPending, enums.OrderStatusConfirmed},
		{enums.OrderStatusPending, enums.OrderStatusCancelled},
		{enums.OrderStatusConfirmed, enums.OrderStatusPaid},
		{enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
		{enums.OrderStatusPaid, enums.OrderStatusFulfilled},
		{enums.OrderStatusPaid, enums.OrderStatusRefunded},
		{enums.OrderStatusFulfilled, enums.OrderStatusArchived},
		{enums.OrderStatusFulfilled, enums.OrderStatusRefunded},
	}

	for _, tt := range allowed {
		result, err := Transition(tt.from, tt.to)
		if err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", tt.from, tt.to, err)
		}
		if !result.Changed {
			t.Fatalf("%s -> %s: expected Changed=true", tt.from, tt.to)
		}
		if result.From != tt.from || result.To != tt.to {
			t.Fatalf("%s -> %s: result mismatch %+v", tt.from, tt.to, result)
		}
	}
}

func TestTransitionSameStateIsSoftNoop(t *testing.T) {
	for _, status := range []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusPaid,
		enums.OrderStatusArchived,
	} {
		result, err := Transition(status, status)
		if err != nil {
			t.Fatalf("%s -> %s: unexpected error %v", status, status, err)
		}
		if result.Changed {
			t.Fatalf("%s -> %s: expected Changed=false", status, status)
		}
	}
}

func TestTransitionRejectsEveryIllegalPair(t *testing.T) {
	all := []enums.OrderStatus{
		enums.OrderStatusPending,
		enums.OrderStatusConfirmed,
		enums.OrderStatusPaid,
		enums.OrderStatusFulfilled,
		enums.OrderStatusArchived,
		enums.OrderStatusCancelled,
		enums.OrderStatusRefunded,
	}

	for _, from := range all {
		for _, to := range all {
			if from == to || CanTransition(from, to) {
				continue
			}
			_, err := Transition(from, to)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeIllegalTransition {
				t.Fatalf("%s -> %s: expected ILLEGAL_TRANSITION, got %v", from, to, err)
			}
		}
	}

	// Spot-check pairs that must be in the illegal set.
	for _, tt := range []struct{ from, to enums.OrderStatus }{
		{enums.OrderStatusPending, enums.OrderStatusPaid},
		{enums.OrderStatusPending, enums.OrderStatusFulfilled},
		{enums.OrderStatusPaid, enums.OrderStatusCancelled},
		{enums.OrderStatusCancelled, enums.OrderStatusConfirmed},
		{enums.OrderStatusRefunded, enums.OrderStatusPaid},
		{enums.OrderStatusArchived, enums.OrderStatusFulfilled},
	} {
		if CanTransition(tt.from, tt.to) {
			t.Fatalf("%s -> %s must be illegal", tt.from, tt.to)
		}
	}
}

func TestTransitionRejectsUnknownStatuses(t *testing.T) {
	_, err := Transition(enums.OrderStatus("shipped"), enums.OrderStatusPaid)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for unknown current, got %v", err)
	}

	_, err = Transition(enums.OrderStatusPending, enums.OrderStatus("shipped"))
	typed = pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected VALIDATION_ERROR for unknown target, got %v", err)
	}
}

func TestReachedPayment(t *testing.T) {
	paidOrBeyond := map[enums.OrderStatus]bool{
		enums.OrderStatusPending:   false,
		enums.OrderStatusConfirmed: false,
		enums.OrderStatusPaid:      true,
		enums.OrderStatusFulfilled: true,
		enums.OrderStatusArchived:  true,
		enums.OrderStatusCancelled: false,
		enums.OrderStatusRefunded:  true,
	}
	for status, want := range paidOrBeyond {
		if got := ReachedPayment(status); got != want {
			t.Fatalf("ReachedPayment(%s) = %v, want %v", status, got, want)
		}
	}
}
