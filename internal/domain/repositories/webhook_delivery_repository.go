package repositories

import (
	"context"

	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
)

// WebhookDeliveryRepository records notification attempts
type WebhookDeliveryRepository interface {
	Create(ctx context.Context, delivery *entities.WebhookDelivery) error
	Update(ctx context.Context, delivery *entities.WebhookDelivery) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.WebhookDelivery, error)
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entities.WebhookDelivery, error)
}
