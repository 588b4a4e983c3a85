package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"
	"gorm.io/gorm"
	"stablepay.backend/internal/domain/entities"
	domainerrors "stablepay.backend/internal/domain/errors"
	"stablepay.backend/internal/infrastructure/models"
)

// JobRepository implements the payment job store
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create persists a new payment job
func (r *JobRepository) Create(ctx context.Context, job *entities.PaymentJob) error {
	m, err := toJobModel(job)
	if err != nil {
		return err
	}

	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	job.CreatedAt = m.CreatedAt
	job.UpdatedAt = m.UpdatedAt
	return nil
}

// GetByID gets a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error) {
	var m models.PaymentJob
	db := GetDB(ctx, r.db)
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainerrors.ErrNotFound
		}
		return nil, err
	}
	return toJobEntity(&m)
}

// GetByPayer gets jobs for a payer with pagination
func (r *JobRepository) GetByPayer(ctx context.Context, payerAddress string, limit, offset int) ([]*entities.PaymentJob, int, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.PaymentJob{}).
		Where("payer_address = ?", payerAddress).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ms []models.PaymentJob
	if err := r.db.WithContext(ctx).
		Where("payer_address = ?", payerAddress).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&ms).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]*entities.PaymentJob, 0, len(ms))
	for i := range ms {
		job, err := toJobEntity(&ms[i])
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}

	return jobs, int(total), nil
}

// Update applies a merge-style partial update: only fields present in the
// JobUpdate mutate, txHashes are merged with the stored map (keys never
// removed). Runs in its own transaction so the read-merge-write is atomic.
func (r *JobRepository) Update(ctx context.Context, id uuid.UUID, update *entities.JobUpdate) error {
	db := GetDB(ctx, r.db)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.PaymentJob
		if err := tx.Where("id = ?", id).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrNotFound
			}
			return err
		}

		fields := map[string]interface{}{
			"updated_at": time.Now(),
		}

		if update.Status != nil {
			fields["status"] = string(*update.Status)
		}
		if update.Error != nil {
			if *update.Error == "" {
				fields["error"] = nil
			} else {
				fields["error"] = *update.Error
			}
		}
		if update.ExpiresAt != nil {
			fields["expires_at"] = *update.ExpiresAt
		}
		if update.Plan != nil {
			raw, err := json.Marshal(update.Plan)
			if err != nil {
				return fmt.Errorf("marshal source plan: %w", err)
			}
			fields["source_plan"] = string(raw)
		}
		if update.Quote != nil {
			raw, err := json.Marshal(update.Quote)
			if err != nil {
				return fmt.Errorf("marshal quote: %w", err)
			}
			fields["quote"] = string(raw)
		}
		if len(update.TxHashes) > 0 {
			current := entities.TxHashes{}
			if m.TxHashes != "" {
				if err := json.Unmarshal([]byte(m.TxHashes), &current); err != nil {
					return fmt.Errorf("unmarshal stored tx hashes: %w", err)
				}
			}
			merged, err := json.Marshal(current.Merged(update.TxHashes))
			if err != nil {
				return fmt.Errorf("marshal tx hashes: %w", err)
			}
			fields["tx_hashes"] = string(merged)
		}

		q := tx.Model(&models.PaymentJob{}).Where("id = ?", id)
		if update.ExpectStatus != nil {
			q = q.Where("status = ?", string(*update.ExpectStatus))
		}
		result := q.Updates(fields)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			if update.ExpectStatus != nil {
				return fmt.Errorf("%w: job is no longer %s", domainerrors.ErrInvalidTransition, *update.ExpectStatus)
			}
			return domainerrors.ErrNotFound
		}
		return nil
	})
}

// FindExpirable returns pre-execution jobs whose expiry deadline has passed.
func (r *JobRepository) FindExpirable(ctx context.Context, now time.Time, limit int) ([]*entities.PaymentJob, error) {
	statuses := []string{
		string(entities.JobStatusScanning),
		string(entities.JobStatusRouting),
		string(entities.JobStatusAwaitingConfirmation),
	}

	var ms []models.PaymentJob
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND expires_at IS NOT NULL AND expires_at < ?", statuses, now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toJobEntities(ms)
}

// FindStuck returns mid-execution jobs that have not progressed since olderThan.
func (r *JobRepository) FindStuck(ctx context.Context, olderThan time.Time, limit int) ([]*entities.PaymentJob, error) {
	statuses := []string{
		string(entities.JobStatusSwapping),
		string(entities.JobStatusGatewayDepositing),
		string(entities.JobStatusGatewayTransferring),
		string(entities.JobStatusMinting),
		string(entities.JobStatusPaying),
	}

	var ms []models.PaymentJob
	if err := r.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?", statuses, olderThan).
		Order("updated_at ASC").
		Limit(limit).
		Find(&ms).Error; err != nil {
		return nil, err
	}
	return toJobEntities(ms)
}

func toJobEntities(ms []models.PaymentJob) ([]*entities.PaymentJob, error) {
	jobs := make([]*entities.PaymentJob, 0, len(ms))
	for i := range ms {
		job, err := toJobEntity(&ms[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func toJobModel(job *entities.PaymentJob) (*models.PaymentJob, error) {
	txHashes := job.TxHashes
	if txHashes == nil {
		txHashes = entities.TxHashes{}
	}
	rawHashes, err := json.Marshal(txHashes)
	if err != nil {
		return nil, fmt.Errorf("marshal tx hashes: %w", err)
	}

	m := &models.PaymentJob{
		ID:               job.ID,
		PayerAddress:     job.PayerAddress,
		MerchantAddress:  job.MerchantAddress,
		Amount:           job.Amount,
		Status:           string(job.Status),
		TxHashes:         string(rawHashes),
		SkipConfirmation: job.SkipConfirmation,
		SubscriptionID:   job.SubscriptionID,
		ExpiresAt:        job.ExpiresAt,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}

	if job.SourcePlan != nil {
		raw, err := json.Marshal(job.SourcePlan)
		if err != nil {
			return nil, fmt.Errorf("marshal source plan: %w", err)
		}
		s := string(raw)
		m.SourcePlan = &s
	}
	if job.Quote != nil {
		raw, err := json.Marshal(job.Quote)
		if err != nil {
			return nil, fmt.Errorf("marshal quote: %w", err)
		}
		s := string(raw)
		m.Quote = &s
	}
	if job.Error.Valid {
		s := job.Error.String
		m.Error = &s
	}

	return m, nil
}

func toJobEntity(m *models.PaymentJob) (*entities.PaymentJob, error) {
	job := &entities.PaymentJob{
		ID:               m.ID,
		PayerAddress:     m.PayerAddress,
		MerchantAddress:  m.MerchantAddress,
		Amount:           m.Amount,
		Status:           entities.JobStatus(m.Status),
		TxHashes:         entities.TxHashes{},
		Error:            null.StringFromPtr(m.Error),
		SkipConfirmation: m.SkipConfirmation,
		SubscriptionID:   m.SubscriptionID,
		ExpiresAt:        m.ExpiresAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}

	if m.TxHashes != "" {
		if err := json.Unmarshal([]byte(m.TxHashes), &job.TxHashes); err != nil {
			return nil, fmt.Errorf("unmarshal tx hashes: %w", err)
		}
	}
	if m.SourcePlan != nil && *m.SourcePlan != "" {
		var plan entities.SourcePlan
		if err := json.Unmarshal([]byte(*m.SourcePlan), &plan); err != nil {
			return nil, fmt.Errorf("unmarshal source plan: %w", err)
		}
		job.SourcePlan = &plan
	}
	if m.Quote != nil && *m.Quote != "" {
		var quote entities.Quote
		if err := json.Unmarshal([]byte(*m.Quote), &quote); err != nil {
			return nil, fmt.Errorf("unmarshal quote: %w", err)
		}
		job.Quote = &quote
	}

	return job, nil
}
