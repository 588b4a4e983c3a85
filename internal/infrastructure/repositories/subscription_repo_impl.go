package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/models"
)

// SubscriptionRepository implements subscription data operations
type SubscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Create persists a new subscription
func (r *SubscriptionRepository) Create(ctx context.Context, sub *entities.Subscription) error {
	m := toSubscriptionModel(sub)
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	sub.CreatedAt = m.CreatedAt
	sub.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets a subscription by ID
func (r *SubscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Subscription, error) {
	var m models.Subscription
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toSubscriptionEntity(&m), nil
}

// ListByPayer lists subscriptions for a payer
func (r *SubscriptionRepository) ListByPayer(ctx context.Context, payerAddress string) ([]*entities.Subscription, error) {
	var ms []models.Subscription
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("payer_address = ?", payerAddress).
		Order("created_at DESC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	subs := make([]*entities.Subscription, 0, len(ms))
	for i := range ms {
		subs = append(subs, toSubscriptionEntity(&ms[i]))
	}
	return subs, nil
}

// SetSessionCredential attaches the payer's encrypted session credential
func (r *SubscriptionRepository) SetSessionCredential(ctx context.Context, id uuid.UUID, encryptedCredential string) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, string(entities.SubscriptionStatusActive)).
		Update("session_credential", encryptedCredential)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// Cancel closes a subscription. Cancellation is terminal.
func (r *SubscriptionRepository) Cancel(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, string(entities.SubscriptionStatusActive)).
		Updates(map[string]interface{}{
			"status":             string(entities.SubscriptionStatusCancelled),
			"session_credential": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// FindDue returns active subscriptions whose next charge time has passed
func (r *SubscriptionRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*entities.Subscription, error) {
	var ms []models.Subscription
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_charge_at <= ?", string(entities.SubscriptionStatusActive), now).
		Order("next_charge_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}

	subs := make([]*entities.Subscription, 0, len(ms))
	for i := range ms {
		subs = append(subs, toSubscriptionEntity(&ms[i]))
	}
	return subs, nil
}

// AdvanceSchedule moves next_charge_at forward. Written separately from the
// charge itself so one failed charge cannot wedge the schedule.
func (r *SubscriptionRepository) AdvanceSchedule(ctx context.Context, id uuid.UUID, nextChargeAt time.Time) error {
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.Subscription{}).
		Where("id = ?", id).
		Update("next_charge_at", nextChargeAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

func toSubscriptionModel(sub *entities.Subscription) *models.Subscription {
	m := &models.Subscription{
		ID:              sub.ID,
		MerchantAddress: sub.MerchantAddress,
		PayerAddress:    sub.PayerAddress,
		ProductID:       sub.ProductID,
		Amount:          sub.Amount,
		IntervalDays:    sub.IntervalDays,
		Status:          string(sub.Status),
		NextChargeAt:    sub.NextChargeAt,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
	if sub.SessionCredential.Valid {
		s := sub.SessionCredential.String
		m.SessionCredential = &s
	}
	return m
}

func toSubscriptionEntity(m *models.Subscription) *entities.Subscription {
	return &entities.Subscription{
		ID:                m.ID,
		MerchantAddress:   m.MerchantAddress,
		PayerAddress:      m.PayerAddress,
		ProductID:         m.ProductID,
		Amount:            m.Amount,
		IntervalDays:      m.IntervalDays,
		Status:            entities.SubscriptionStatus(m.Status),
		SessionCredential: null.StringFromPtr(m.SessionCredential),
		NextChargeAt:      m.NextChargeAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}
