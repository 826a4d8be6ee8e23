package enums

import "fmt"

// FeeMode selects who funds the platform's cut of an order.
type FeeMode string

const (
	// FeeModeWholesalerFunded deducts the commission from the wholesaler's
	// proceeds; the retailer pays exactly the subtotal.
	FeeModeWholesalerFunded FeeMode = "wholesaler_funded"
	// FeeModeCustomerFunded adds a surcharge on top of the subtotal, charged
	// to the retailer, while the commission still comes out of the
	// wholesaler's side.
	FeeModeCustomerFunded FeeMode = "customer_funded"
)

var validFeeModes = []FeeMode{
	FeeModeWholesalerFunded,
	FeeModeCustomerFunded,
}

// String implements fmt.Stringer.
func (f FeeMode) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FeeMode.
func (f FeeMode) IsValid() bool {
	for _, candidate := range validFeeModes {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFeeMode converts raw input into a FeeMode.
func ParseFeeMode(value string) (FeeMode, error) {
	for _, candidate := range validFeeModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fee mode %q", value)
}
