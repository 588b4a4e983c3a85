package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
	"stablepay.backend/internal/domain/entities"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/metrics"
)

const sweepBatchSize = 100

// ExpirySweep moves pre-execution jobs whose confirmation window has lapsed
// to EXPIRED. Jobs that already started executing are never expired; the
// stuck sweep owns those.
type ExpirySweep struct {
	repo     repositories.JobRepository
	interval time.Duration
	stop     chan struct{}
}

// NewExpirySweep creates the expiry sweep
func NewExpirySweep(repo repositories.JobRepository, interval time.Duration) *ExpirySweep {
	return &ExpirySweep{
		repo:     repo,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep until ctx ends or Stop is called.
func (s *ExpirySweep) Start(ctx context.Context) {
	logger.Info(ctx, "expiry sweep started", zap.Duration("interval", s.interval))

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
func (s *ExpirySweep) Stop() {
	close(s.stop)
}

func (s *ExpirySweep) sweep(ctx context.Context) {
	metrics.SweepRuns.WithLabelValues("expiry").Inc()

	expirable, err := s.repo.FindExpirable(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		logger.Error(ctx, "expiry sweep query failed", zap.Error(err))
		return
	}

	for _, job := range expirable {
		expired := entities.JobStatusExpired
		was := job.Status
		// guarded on the status the query saw: a job the payer confirmed in
		// the meantime is no longer expirable
		if err := s.repo.Update(ctx, job.ID, &entities.JobUpdate{Status: &expired, ExpectStatus: &was}); err != nil {
			logger.Error(ctx, "expiry sweep update failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
			continue
		}
		metrics.SweepActions.WithLabelValues("expiry", "expired").Inc()
		metrics.JobTransitions.WithLabelValues(string(expired)).Inc()
		logger.Info(ctx, "job expired",
			zap.String("job_id", job.ID.String()),
			zap.String("was", string(job.Status)))
	}
}
