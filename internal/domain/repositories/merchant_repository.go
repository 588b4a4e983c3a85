package repositories

import (
	"context"

	"stablepay.backend/internal/domain/entities"
)

// MerchantRepository defines merchant data operations
type MerchantRepository interface {
	Create(ctx context.Context, merchant *entities.Merchant) error
	GetByAddress(ctx context.Context, address string) (*entities.Merchant, error)
	GetBySlug(ctx context.Context, slug string) (*entities.Merchant, error)
	Update(ctx context.Context, merchant *entities.Merchant) error
	ClaimSlug(ctx context.Context, address, slug string) error
}
