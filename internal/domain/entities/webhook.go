package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
)

// WebhookDeliveryStatus represents delivery lifecycle
type WebhookDeliveryStatus string

const (
	WebhookDeliveryStatusPending   WebhookDeliveryStatus = "PENDING"
	WebhookDeliveryStatusDelivered WebhookDeliveryStatus = "DELIVERED"
	WebhookDeliveryStatusFailed    WebhookDeliveryStatus = "FAILED"
)

// WebhookDelivery is one attempted notification to a merchant endpoint.
// Attempts and last error are retained for observability.
type WebhookDelivery struct {
	ID        uuid.UUID             `json:"id"`
	JobID     uuid.UUID             `json:"jobId"`
	URL       string                `json:"url"`
	EventType string                `json:"eventType"`
	Payload   string                `json:"payload"`
	Attempts  int                   `json:"attempts"`
	LastError null.String           `json:"lastError,omitempty"`
	Status    WebhookDeliveryStatus `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}
