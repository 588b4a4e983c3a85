package repositories

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/models"
)

// MerchantRepository implements merchant data operations
type MerchantRepository struct {
	db *gorm.DB
}

// NewMerchantRepository creates a new merchant repository
func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

// Create persists a new merchant
func (r *MerchantRepository) Create(ctx context.Context, merchant *entities.Merchant) error {
	m := toMerchantModel(merchant)
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.Conflict("merchant already registered")
		}
		return err
	}
	merchant.CreatedAt = m.CreatedAt
	merchant.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByAddress gets a merchant by wallet address
func (r *MerchantRepository) GetByAddress(ctx context.Context, address string) (*entities.Merchant, error) {
	var m models.Merchant
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("address = ?", address).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toMerchantEntity(&m), nil
}

// GetBySlug gets a merchant by claimed slug
func (r *MerchantRepository) GetBySlug(ctx context.Context, slug string) (*entities.Merchant, error) {
	var m models.Merchant
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("slug = ?", slug).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toMerchantEntity(&m), nil
}

// Update saves mutable merchant fields
func (r *MerchantRepository) Update(ctx context.Context, merchant *entities.Merchant) error {
	m := toMerchantModel(merchant)
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Merchant{}).
		Where("address = ?", merchant.Address).
		Updates(map[string]interface{}{
			"display_name":   m.DisplayName,
			"logo_url":       m.LogoURL,
			"webhook_url":    m.WebhookURL,
			"webhook_secret": m.WebhookSecret,
			"revenue_split":  m.RevenueSplit,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// ClaimSlug assigns a slug to a merchant. The unique index on slug is the
// source of truth for first-claim-wins.
func (r *MerchantRepository) ClaimSlug(ctx context.Context, address, slug string) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Merchant{}).
		Where("address = ?", address).
		Update("slug", slug)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return domainerrors.ErrSlugTaken
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// isUniqueViolation matches both the postgres and sqlite unique constraint
// errors so behavior is the same in tests and production.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func toMerchantModel(merchant *entities.Merchant) *models.Merchant {
	m := &models.Merchant{
		Address:     merchant.Address,
		DisplayName: merchant.DisplayName,
		CreatedAt:   merchant.CreatedAt,
		UpdatedAt:   merchant.UpdatedAt,
	}
	if merchant.LogoURL.Valid {
		s := merchant.LogoURL.String
		m.LogoURL = &s
	}
	if merchant.Slug.Valid {
		s := merchant.Slug.String
		m.Slug = &s
	}
	if merchant.WebhookURL.Valid {
		s := merchant.WebhookURL.String
		m.WebhookURL = &s
	}
	if merchant.WebhookSecret.Valid {
		s := merchant.WebhookSecret.String
		m.WebhookSecret = &s
	}
	if merchant.RevenueSplit.Valid {
		s := string(merchant.RevenueSplit.JSON)
		m.RevenueSplit = &s
	}
	return m
}

func toMerchantEntity(m *models.Merchant) *entities.Merchant {
	merchant := &entities.Merchant{
		Address:     m.Address,
		DisplayName: m.DisplayName,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	if m.LogoURL != nil {
		merchant.LogoURL.SetValid(*m.LogoURL)
	}
	if m.Slug != nil {
		merchant.Slug.SetValid(*m.Slug)
	}
	if m.WebhookURL != nil {
		merchant.WebhookURL.SetValid(*m.WebhookURL)
	}
	if m.WebhookSecret != nil {
		merchant.WebhookSecret.SetValid(*m.WebhookSecret)
	}
	if m.RevenueSplit != nil {
		merchant.RevenueSplit.SetValid([]byte(*m.RevenueSplit))
	}
	return merchant
}
