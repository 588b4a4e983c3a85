package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"stablepay.backend/internal/domain/entities"
)

// JobRepository defines the payment job store contract. Update applies merge
// semantics: only fields present in the JobUpdate mutate, txHashes merge.
type JobRepository interface {
	Create(ctx context.Context, job *entities.PaymentJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.PaymentJob, error)
	GetByPayer(ctx context.Context, payerAddress string, limit, offset int) ([]*entities.PaymentJob, int, error)
	Update(ctx context.Context, id uuid.UUID, update *entities.JobUpdate) error
	FindExpirable(ctx context.Context, now time.Time, limit int) ([]*entities.PaymentJob, error)
	FindStuck(ctx context.Context, olderThan time.Time, limit int) ([]*entities.PaymentJob, error)
}
