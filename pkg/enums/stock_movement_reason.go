package enums

import "fmt"

// StockMovementReason records why a product's stock level changed.
type StockMovementReason string

const (
	StockMovementOrderConfirmed   StockMovementReason = "order-confirmed"
	StockMovementOrderCancelled   StockMovementReason = "order-cancelled"
	StockMovementOrderRefunded    StockMovementReason = "order-refunded"
	StockMovementManualAdjustment StockMovementReason = "manual-adjustment"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementOrderConfirmed,
	StockMovementOrderCancelled,
	StockMovementOrderRefunded,
	StockMovementManualAdjustment,
}

// String implements fmt.Stringer.
func (s StockMovementReason) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockMovementReason.
func (s StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
