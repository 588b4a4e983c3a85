package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentJob is the persisted job record. Plan, quote and tx hashes are
// stored as JSON text so the record round-trips unchanged through sqlite in
// tests and postgres in production.
type PaymentJob struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PayerAddress     string     `gorm:"type:varchar(255);not null;index"`
	MerchantAddress  string     `gorm:"type:varchar(255);not null;index"`
	Amount           string     `gorm:"type:varchar(100);not null"`
	SourcePlan       *string    `gorm:"type:text"`
	Quote            *string    `gorm:"type:text"`
	Status           string     `gorm:"type:varchar(50);not null;index"`
	TxHashes         string     `gorm:"type:text;not null;default:'{}'"`
	Error            *string    `gorm:"type:text"`
	SkipConfirmation bool       `gorm:"not null;default:false"`
	SubscriptionID   *uuid.UUID `gorm:"type:uuid;index"`
	ExpiresAt        *time.Time `gorm:"index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time      `gorm:"index"`
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (PaymentJob) TableName() string { return "payment_jobs" }
