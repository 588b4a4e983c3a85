package models

import (
	"time"

	"github.com/google/uuid"
)

type Subscription struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey"`
	MerchantAddress   string     `gorm:"type:varchar(255);not null;index"`
	PayerAddress      string     `gorm:"type:varchar(255);not null;index"`
	ProductID         *uuid.UUID `gorm:"type:uuid;index"`
	Amount            string     `gorm:"type:varchar(100);not null"`
	IntervalDays      int        `gorm:"not null"`
	Status            string     `gorm:"type:varchar(50);not null;index"`
	SessionCredential *string    `gorm:"type:text"` // encrypted
	NextChargeAt      time.Time  `gorm:"not null;index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Subscription) TableName() string { return "subscriptions" }
