package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
)

// SubscriptionRepository defines subscription data operations. AdvanceSchedule
// moves next_charge_at forward in its own write so the schedule cannot be
// stuck by a failed charge.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entities.Subscription) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Subscription, error)
	ListByPayer(ctx context.Context, payerAddress string) ([]*entities.Subscription, error)
	SetSessionCredential(ctx context.Context, id uuid.UUID, encryptedCredential string) error
	Cancel(ctx context.Context, id uuid.UUID) error
	FindDue(ctx context.Context, now time.Time, limit int) ([]*entities.Subscription, error)
	AdvanceSchedule(ctx context.Context, id uuid.UUID, nextChargeAt time.Time) error
}
