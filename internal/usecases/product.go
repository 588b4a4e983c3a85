package usecases

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/pkg/utils"
)

// ProductUsecase handles merchant product catalogs
type ProductUsecase struct {
	products  repositories.ProductRepository
	merchants repositories.MerchantRepository
}

// NewProductUsecase creates a new product usecase
func NewProductUsecase(products repositories.ProductRepository, merchants repositories.MerchantRepository) *ProductUsecase {
	return &ProductUsecase{products: products, merchants: merchants}
}

// Create adds a product to a merchant's catalog
func (u *ProductUsecase) Create(ctx context.Context, merchantAddress string, input *entities.CreateProductInput) (*entities.Product, error) {
	addr := utils.NormalizeAddress(merchantAddress)
	if _, err := u.merchants.GetByAddress(ctx, addr); err != nil {
		return nil, err
	}

	if price, err := decimal.NewFromString(input.Price); err != nil || price.Sign() <= 0 {
		return nil, domainerrors.ErrInvalidAmount
	}

	switch input.Type {
	case entities.ProductTypeOneTime:
		if input.IntervalDays != 0 {
			return nil, domainerrors.BadRequest("one-time products cannot have a billing interval")
		}
	case entities.ProductTypeSubscription:
		if input.IntervalDays < 1 {
			return nil, domainerrors.BadRequest("subscription products need a billing interval of at least one day")
		}
	default:
		return nil, domainerrors.BadRequest("product type must be one_time or subscription")
	}

	product := &entities.Product{
		ID:              utils.GenerateUUIDv7(),
		MerchantAddress: addr,
		Name:            input.Name,
		Price:           input.Price,
		Type:            input.Type,
		IntervalDays:    input.IntervalDays,
		Active:          true,
	}
	if input.Description != "" {
		product.Description = null.StringFrom(input.Description)
	}

	if err := u.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// Get returns a product by ID
func (u *ProductUsecase) Get(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	return u.products.GetByID(ctx, id)
}

// List returns a merchant's products. Buyers see active products only;
// merchants can include deactivated ones.
func (u *ProductUsecase) List(ctx context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error) {
	return u.products.ListByMerchant(ctx, utils.NormalizeAddress(merchantAddress), includeInactive)
}

// Deactivate retires a product. The row is kept so past jobs stay valid.
func (u *ProductUsecase) Deactivate(ctx context.Context, merchantAddress string, id uuid.UUID) error {
	product, err := u.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !utils.SameAddress(product.MerchantAddress, merchantAddress) {
		return domainerrors.Forbidden("product belongs to another merchant")
	}
	return u.products.Deactivate(ctx, id)
}
