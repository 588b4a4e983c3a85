package models

import (
	"time"

	"github.com/google/uuid"
)

type WebhookDelivery struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	JobID     uuid.UUID `gorm:"type:uuid;not null;index"`
	URL       string    `gorm:"type:varchar(1024);not null"`
	EventType string    `gorm:"type:varchar(100);not null"`
	Payload   string    `gorm:"type:text;not null"`
	Attempts  int       `gorm:"not null;default:0"`
	LastError *string   `gorm:"type:text"`
	Status    string    `gorm:"type:varchar(50);not null;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (WebhookDelivery) TableName() string { return "webhook_deliveries" }
