package models

import (
	"time"

	"github.com/google/uuid"
)

// Product rows are never hard-deleted; Active is flipped off instead so past
// jobs keep valid references.
type Product struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	MerchantAddress string    `gorm:"type:varchar(255);not null;index"`
	Name            string    `gorm:"type:varchar(255);not null"`
	Description     *string   `gorm:"type:text"`
	Price           string    `gorm:"type:varchar(100);not null"`
	Type            string    `gorm:"type:varchar(50);not null"`
	IntervalDays    int       `gorm:"not null;default:0"`
	Active          bool      `gorm:"not null;default:true;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (Product) TableName() string { return "products" }
