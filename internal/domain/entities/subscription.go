package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// SubscriptionStatus represents subscription lifecycle state
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription links a merchant and a payer to a recurring charge. The
// session credential (encrypted at rest) lets the billing sweep create
// auto-executing payment jobs on the payer's behalf once the payer has
// authorized the subscription.
type Subscription struct {
	ID                uuid.UUID          `json:"id"`
	MerchantAddress   string             `json:"merchantAddress"`
	PayerAddress      string             `json:"payerAddress"`
	ProductID         *uuid.UUID         `json:"productId,omitempty"`
	Amount            string             `json:"amount"` // settlement units per charge
	IntervalDays      int                `json:"intervalDays"`
	Status            SubscriptionStatus `json:"status"`
	SessionCredential null.String        `json:"-"` // encrypted, absent until authorized
	NextChargeAt      time.Time          `json:"nextChargeAt"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Authorized reports whether the payer has attached a session credential.
func (s *Subscription) Authorized() bool {
	return s.SessionCredential.Valid && s.SessionCredential.String != ""
}

// CreateSubscriptionInput represents input for subscription creation
type CreateSubscriptionInput struct {
	MerchantAddress string     `json:"merchantAddress" binding:"required"`
	PayerAddress    string     `json:"payerAddress" binding:"required"`
	ProductID       *uuid.UUID `json:"productId,omitempty"`
	Amount          string     `json:"amount" binding:"required"`
	IntervalDays    int        `json:"intervalDays" binding:"required,min=1"`
}

// AuthorizeSubscriptionInput carries the payer's session credential
type AuthorizeSubscriptionInput struct {
	SessionCredential string `json:"sessionCredential" binding:"required"`
}
