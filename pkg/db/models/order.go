package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	"github.com/tobiaseke/bulkroom-backend/pkg/types"
)

// Order is the aggregate root for a retailer's purchase from one wholesaler.
// Monetary fields are frozen at build time from the fee schedule then in
// force; they never change when platform rates change. Orders are never
// deleted, only transitioned to a terminal status.
type Order struct {
	ID            uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WholesalerID  uuid.UUID         `gorm:"column:wholesaler_id;type:uuid;not null;index"`
	RetailerID    uuid.UUID         `gorm:"column:retailer_id;type:uuid;not null;index"`
	Currency      enums.Currency    `gorm:"column:currency;type:text;not null;default:'NGN'"`
	FeeMode       enums.FeeMode     `gorm:"column:fee_mode;type:text;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Subtotal      decimal.Decimal   `gorm:"column:subtotal;type:numeric(12,2);not null"`
	PlatformFee   decimal.Decimal   `gorm:"column:platform_fee;type:numeric(12,2);not null"`
	CustomerFee   decimal.Decimal   `gorm:"column:customer_fee;type:numeric(12,2);not null"`
	Total         decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	WholesalerNet decimal.Decimal   `gorm:"column:wholesaler_net;type:numeric(12,2);not null"`
	PaymentRef    *string           `gorm:"column:payment_ref;uniqueIndex"`
	Delivery      *types.Address    `gorm:"column:delivery;type:jsonb;serializer:json"`
	DeliveryNotes *string           `gorm:"column:delivery_notes"`
	RefundNote    *string           `gorm:"column:refund_note"`
	Items         []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaidAt        *time.Time        `gorm:"column:paid_at"`
	FulfilledAt   *time.Time        `gorm:"column:fulfilled_at"`
	CancelledAt   *time.Time        `gorm:"column:cancelled_at"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
