package models

import (
	"time"

	"github.com/google/uuid"
)

// Wholesaler is the selling tenant. SubaccountCode is the payment
// processor's destination account for split settlement.
type Wholesaler struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BusinessName   string    `gorm:"column:business_name;not null"`
	Email          string    `gorm:"column:email;not null"`
	Phone          string    `gorm:"column:phone;not null"`
	SubaccountCode string    `gorm:"column:subaccount_code"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
