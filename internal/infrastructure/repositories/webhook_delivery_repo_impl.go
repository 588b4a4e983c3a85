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

// WebhookDeliveryRepository records merchant notification attempts
type WebhookDeliveryRepository struct {
	db *gorm.DB
}

// NewWebhookDeliveryRepository creates a new webhook delivery repository
func NewWebhookDeliveryRepository(db *gorm.DB) *WebhookDeliveryRepository {
	return &WebhookDeliveryRepository{db: db}
}

// Create persists a new delivery record
func (r *WebhookDeliveryRepository) Create(ctx context.Context, delivery *entities.WebhookDelivery) error {
	m := toWebhookDeliveryModel(delivery)
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	delivery.CreatedAt = m.CreatedAt
	delivery.UpdatedAt = m.UpdatedAt
	return nil
}

// Update saves the delivery's attempt count, status and last error
func (r *WebhookDeliveryRepository) Update(ctx context.Context, delivery *entities.WebhookDelivery) error {
	m := toWebhookDeliveryModel(delivery)
	db := GetDB(ctx, r.db)
	result := db.WithContext(ctx).Model(&models.WebhookDelivery{}).
		Where("id = ?", delivery.ID).
		Updates(map[string]interface{}{
			"attempts":   m.Attempts,
			"status":     m.Status,
			"last_error": m.LastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// GetByID gets a delivery record by ID
func (r *WebhookDeliveryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.WebhookDelivery, error) {
	var m models.WebhookDelivery
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toWebhookDeliveryEntity(&m), nil
}

// ListByJob lists delivery records for a job
func (r *WebhookDeliveryRepository) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entities.WebhookDelivery, error) {
	var ms []models.WebhookDelivery
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("created_at ASC").
		Find(&ms).Error; err != nil {
		return nil, err
	}

	deliveries := make([]*entities.WebhookDelivery, 0, len(ms))
	for i := range ms {
		deliveries = append(deliveries, toWebhookDeliveryEntity(&ms[i]))
	}
	return deliveries, nil
}

func toWebhookDeliveryModel(delivery *entities.WebhookDelivery) *models.WebhookDelivery {
	m := &models.WebhookDelivery{
		ID:        delivery.ID,
		JobID:     delivery.JobID,
		URL:       delivery.URL,
		EventType: delivery.EventType,
		Payload:   delivery.Payload,
		Attempts:  delivery.Attempts,
		Status:    string(delivery.Status),
		CreatedAt: delivery.CreatedAt,
		UpdatedAt: delivery.UpdatedAt,
	}
	if delivery.LastError.Valid {
		s := delivery.LastError.String
		m.LastError = &s
	}
	return m
}

func toWebhookDeliveryEntity(m *models.WebhookDelivery) *entities.WebhookDelivery {
	return &entities.WebhookDelivery{
		ID:        m.ID,
		JobID:     m.JobID,
		URL:       m.URL,
		EventType: m.EventType,
		Payload:   m.Payload,
		Attempts:  m.Attempts,
		LastError: null.StringFromPtr(m.LastError),
		Status:    entities.WebhookDeliveryStatus(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
