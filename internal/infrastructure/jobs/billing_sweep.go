package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"stablepay.backend/internal/domain/entities"
	"stablepay.backend/internal/usecases"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/metrics"
)

// SubscriptionTicker finds due subscriptions and applies a charge function
// to each. Satisfied by usecases.SubscriptionUsecase.
type SubscriptionTicker interface {
	Tick(ctx context.Context, limit int, charge usecases.ChargeFunc) (int, error)
}

// SubscriptionCharger opens an auto-executing payment job for a due
// subscription. Satisfied by usecases.PaymentOrchestrator.
type SubscriptionCharger interface {
	CreateSubscriptionJob(ctx context.Context, sub *entities.Subscription) (*entities.PaymentJob, error)
}

// BillingSweep drives recurring charges: each tick charges every due,
// authorized subscription by opening a skip-confirmation payment job.
type BillingSweep struct {
	ticker   SubscriptionTicker
	charger  SubscriptionCharger
	interval time.Duration
	stop     chan struct{}
}

// NewBillingSweep creates the billing sweep
func NewBillingSweep(ticker SubscriptionTicker, charger SubscriptionCharger, interval time.Duration) *BillingSweep {
	return &BillingSweep{
		ticker:   ticker,
		charger:  charger,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep until ctx ends or Stop is called.
func (s *BillingSweep) Start(ctx context.Context) {
	logger.Info(ctx, "billing sweep started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop terminates the sweep loop.
func (s *BillingSweep) Stop() {
	close(s.stop)
}

func (s *BillingSweep) sweep(ctx context.Context) {
	metrics.SweepRuns.WithLabelValues("billing").Inc()

	charged, err := s.ticker.Tick(ctx, sweepBatchSize, func(ctx context.Context, sub *entities.Subscription) error {
		job, err := s.charger.CreateSubscriptionJob(ctx, sub)
		if err != nil {
			return err
		}
		metrics.SweepActions.WithLabelValues("billing", "charged").Inc()
		logger.Info(ctx, "subscription charged",
			zap.String("subscription_id", sub.ID.String()),
			zap.String("job_id", job.ID.String()))
		return nil
	})
	if err != nil {
		logger.Error(ctx, "billing sweep failed", zap.Error(err))
		return
	}
	if charged > 0 {
		logger.Info(ctx, "billing sweep complete", zap.Int("charged", charged))
	}
}
