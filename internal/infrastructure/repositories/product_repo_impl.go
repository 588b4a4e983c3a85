package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/models"
)

// ProductRepository implements product data operations
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create persists a new product
func (r *ProductRepository) Create(ctx context.Context, product *entities.Product) error {
	m := toProductModel(product)
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	product.CreatedAt = m.CreatedAt
	product.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets a product by ID
func (r *ProductRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Product, error) {
	var m models.Product
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toProductEntity(&m), nil
}

// ListByMerchant lists a merchant's products, active only unless
// includeInactive is set.
func (r *ProductRepository) ListByMerchant(ctx context.Context, merchantAddress string, includeInactive bool) ([]*entities.Product, error) {
	db := GetDB(ctx, r.db)
	query := db.WithContext(ctx).Where("merchant_address = ?", merchantAddress)
	if !includeInactive {
		query = query.Where("active = ?", true)
	}

	var ms []models.Product
	if err := query.Order("created_at DESC").Find(&ms).Error; err != nil {
		return nil, err
	}

	products := make([]*entities.Product, 0, len(ms))
	for i := range ms {
		products = append(products, toProductEntity(&ms[i]))
	}
	return products, nil
}

// Deactivate flips the active flag off. Rows are never hard-deleted.
func (r *ProductRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Update("active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toProductModel(product *entities.Product) *models.Product {
	m := &models.Product{
		ID:              product.ID,
		MerchantAddress: product.MerchantAddress,
		Name:            product.Name,
		Price:           product.Price,
		Type:            string(product.Type),
		IntervalDays:    product.IntervalDays,
		Active:          product.Active,
		CreatedAt:       product.CreatedAt,
		UpdatedAt:       product.UpdatedAt,
	}
	if product.Description.Valid {
		s := product.Description.String
		m.Description = &s
	}
	return m
}

func toProductEntity(m *models.Product) *entities.Product {
	return &entities.Product{
		ID:              m.ID,
		MerchantAddress: m.MerchantAddress,
		Name:            m.Name,
		Description:     null.StringFromPtr(m.Description),
		Price:           m.Price,
		Type:            entities.ProductType(m.Type),
		IntervalDays:    m.IntervalDays,
		Active:          m.Active,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}
