package repositories

import (
	"context"

	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
)

// ProductRepository defines product data operations. Products are soft
// deleted: Deactivate flips the active flag, rows are never removed.
type ProductRepository interface {
	Create(ctx context.Context, product *entities.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Product, error)
	ListByMerchant(ctx context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}
