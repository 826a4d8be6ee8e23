package settlement

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

// PaymentEvent is the processor-agnostic view of one webhook delivery.
// Amounts arrive in the currency's smallest subunit.
type PaymentEvent struct {
	EventID        string
	Type           string
	Reference      string
	AmountSubunits int64
	Currency       string
	Metadata       map[string]any
}

// settleableEvents are the only event types that assert a completed charge.
var settleableEvents = map[string]bool{
	"charge.success":     true,
	"checkout.completed": true,
}

// Locator identifies which order a payment event belongs to. Either OrderID
// is present, or the pay-first fields carry enough to build the order now.
type Locator struct {
	OrderID      *uuid.UUID
	WholesalerID *uuid.UUID
	RetailerID   *uuid.UUID
	Lines        []orders.LineItemInput
}

// HasBuildInfo reports whether the locator can construct a new order.
func (l Locator) HasBuildInfo() bool {
	return l.WholesalerID != nil && l.RetailerID != nil && len(l.Lines) > 0
}

// ExtractLocator reads the order locator out of event metadata. Extraction is
// fail-closed: any missing or malformed field is UNRESOLVABLE_EVENT, never a
// guess. No unescaping or repair is attempted on the raw values.
func ExtractLocator(event PaymentEvent) (Locator, error) {
	meta := event.Metadata
	if len(meta) == 0 {
		return Locator{}, unresolvable(event, "event carries no metadata")
	}

	var locator Locator

	if raw, ok := meta["order_id"]; ok {
		id, err := parseUUIDField(raw)
		if err != nil {
			return Locator{}, unresolvable(event, "order_id is malformed")
		}
		locator.OrderID = &id
	}

	if raw, ok := meta["wholesaler_id"]; ok {
		id, err := parseUUIDField(raw)
		if err != nil {
			return Locator{}, unresolvable(event, "wholesaler_id is malformed")
		}
		locator.WholesalerID = &id
	}

	if raw, ok := meta["retailer_id"]; ok {
		id, err := parseUUIDField(raw)
		if err != nil {
			return Locator{}, unresolvable(event, "retailer_id is malformed")
		}
		locator.RetailerID = &id
	}

	if raw, ok := meta["lines"]; ok {
		lines, err := parseLinesField(raw)
		if err != nil {
			return Locator{}, unresolvable(event, err.Error())
		}
		locator.Lines = lines
	}

	if locator.OrderID == nil && !locator.HasBuildInfo() {
		return Locator{}, unresolvable(event, "metadata resolves to neither an order nor a buildable cart")
	}
	return locator, nil
}

func parseUUIDField(raw any) (uuid.UUID, error) {
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, errNotAString
	}
	return uuid.Parse(strings.TrimSpace(s))
}

var errNotAString = pkgerrors.New(pkgerrors.CodeUnresolvableEvent, "identifier field is not a string")

func parseLinesField(raw any) ([]orders.LineItemInput, error) {
	entries, ok := raw.([]any)
	if !ok || len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnresolvableEvent, "lines field is not a non-empty array")
	}

	lines := make([]orders.LineItemInput, len(entries))
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeUnresolvableEvent, "line entry is not an object")
		}
		productID, err := parseUUIDField(m["product_id"])
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnresolvableEvent, "line product_id is malformed")
		}
		qty, ok := numberAsInt(m["qty"])
		if !ok || qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeUnresolvableEvent, "line qty is malformed")
		}
		lines[i] = orders.LineItemInput{ProductID: productID, Qty: qty}
	}
	return lines, nil
}

// numberAsInt accepts the numeric shapes JSON decoding produces.
func numberAsInt(raw any) (int, bool) {
	switch v := raw.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, false
		}
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}

func unresolvable(event PaymentEvent, reason string) error {
	return pkgerrors.New(pkgerrors.CodeUnresolvableEvent, "payment event cannot be resolved to an order").
		WithDetails(map[string]any{
			"event_id":  event.EventID,
			"type":      event.Type,
			"reference": event.Reference,
			"reason":    reason,
		})
}
