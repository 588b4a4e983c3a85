package models

import (
	"time"

	"gorm.io/gorm"
)

type Merchant struct {
	Address       string  `gorm:"type:varchar(255);primaryKey"`
	DisplayName   string  `gorm:"type:varchar(255);not null"`
	LogoURL       *string `gorm:"type:varchar(1024)"`
	Slug          *string `gorm:"type:varchar(40);uniqueIndex"`
	WebhookURL    *string `gorm:"type:varchar(1024)"`
	WebhookSecret *string `gorm:"type:varchar(255)"`
	RevenueSplit  *string `gorm:"type:text"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Merchant) TableName() string { return "merchants" }
