package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a wholesaler's catalog listing. The settlement core only ever
// mutates StockQty; everything else belongs to the catalog CRUD surface.
type Product struct {
	ID           uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WholesalerID uuid.UUID        `gorm:"column:wholesaler_id;type:uuid;not null;index"`
	SKU          string           `gorm:"column:sku;not null"`
	Name         string           `gorm:"column:name;not null"`
	UnitPrice    decimal.Decimal  `gorm:"column:unit_price;type:numeric(12,2);not null"`
	PromoPrice   *decimal.Decimal `gorm:"column:promo_price;type:numeric(12,2)"`
	PromoActive  bool             `gorm:"column:promo_active;not null;default:false"`
	MOQ          int              `gorm:"column:moq;not null;default:1"`
	StockQty     int              `gorm:"column:stock_qty;not null;default:0"`
	IsActive     bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveUnitPrice returns the promo price while a promotion is active,
// otherwise the list price.
func (p Product) EffectiveUnitPrice() decimal.Decimal {
	if p.PromoActive && p.PromoPrice != nil {
		return *p.PromoPrice
	}
	return p.UnitPrice
}
