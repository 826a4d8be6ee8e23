package models

import (
	"time"

	"github.com/google/uuid"
)

// Retailer is a wholesaler's customer. Group membership drives promotion
// broadcasts, which live outside this core.
type Retailer struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	WholesalerID uuid.UUID  `gorm:"column:wholesaler_id;type:uuid;not null;index"`
	GroupID      *uuid.UUID `gorm:"column:group_id;type:uuid"`
	ContactName  string     `gorm:"column:contact_name;not null"`
	Email        string     `gorm:"column:email"`
	Phone        string     `gorm:"column:phone;not null"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
