package orders

import (
	"github.com/google/uuid"

	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	"github.com/tobiaseke/bulkroom-backend/pkg/types"
)

// LineItemInput is one requested cart row. Order of the slice is preserved
// into OrderItem.Position.
type LineItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// BuildOrderInput is everything needed to turn a submitted cart into a
// pending order.
type BuildOrderInput struct {
	WholesalerID  uuid.UUID       `json:"wholesaler_id" validate:"required"`
	RetailerID    uuid.UUID       `json:"retailer_id" validate:"required"`
	Currency      enums.Currency  `json:"currency"`
	Lines         []LineItemInput `json:"lines" validate:"required,min=1,dive"`
	Delivery      *types.Address  `json:"delivery"`
	DeliveryNotes string          `json:"delivery_notes"`

	// PaymentRef is set in the pay-first flow, where the charge already
	// exists before the order record does.
	PaymentRef string `json:"-"`
}

// RefundInput captures the operator note stored on a refunded order.
type RefundInput struct {
	Note string `json:"note"`
}
