package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// ProductType represents product billing type
type ProductType string

const (
	ProductTypeOneTime      ProductType = "one_time"
	ProductTypeSubscription ProductType = "subscription"
)

// Product belongs to exactly one merchant. Products are deactivated, never
// hard-deleted, so past jobs keep their references.
type Product struct {
	ID              uuid.UUID   `json:"id"`
	MerchantAddress string      `json:"merchantAddress"`
	Name            string      `json:"name"`
	Description     null.String `json:"description,omitempty"`
	Price           string      `json:"price"` // settlement units, decimal string
	Type            ProductType `json:"type"`
	IntervalDays    int         `json:"intervalDays,omitempty"` // subscription products only
	Active          bool        `json:"active"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// CreateProductInput represents input for product creation
type CreateProductInput struct {
	Name         string      `json:"name" binding:"required,min=1,max=255"`
	Description  string      `json:"description,omitempty"`
	Price        string      `json:"price" binding:"required"`
	Type         ProductType `json:"type" binding:"required"`
	IntervalDays int         `json:"intervalDays,omitempty"`
}
