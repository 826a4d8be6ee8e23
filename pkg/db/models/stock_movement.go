package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
)

// StockMovement is the audit record for every stock adjustment: a signed
// delta, the level it produced, and the order that triggered it, if any.
type StockMovement struct {
	ID           uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Delta        int                       `gorm:"column:delta;not null"`
	ResultingQty int                       `gorm:"column:resulting_qty;not null"`
	Reason       enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	OrderID      *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	CreatedAt    time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
