package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"stablepay.backend/internal/domain/entities"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/metrics"
)

// StuckSweep fails executing jobs that have not made durable progress within
// the stuck timeout. Failing a job hands control back to the payer: recorded
// step hashes survive, so a retry resumes instead of re-spending.
type StuckSweep struct {
	repo     repositories.JobRepository
	timeout  time.Duration
	interval time.Duration
	stop     chan struct{}
}

// NewStuckSweep creates the stuck-job sweep
func NewStuckSweep(repo repositories.JobRepository, timeout, interval time.Duration) *StuckSweep {
	return &StuckSweep{
		repo:     repo,
		timeout:  timeout,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start runs the sweep until ctx ends or Stop is called.
func (s *StuckSweep) Start(ctx context.Context) {
	logger.Info(ctx, "stuck sweep started",
		zap.Duration("interval", s.interval),
		zap.Duration("timeout", s.timeout))

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
func (s *StuckSweep) Stop() {
	close(s.stop)
}

func (s *StuckSweep) sweep(ctx context.Context) {
	metrics.SweepRuns.WithLabelValues("stuck").Inc()

	stuck, err := s.repo.FindStuck(ctx, time.Now().Add(-s.timeout), sweepBatchSize)
	if err != nil {
		logger.Error(ctx, "stuck sweep query failed", zap.Error(err))
		return
	}

	for _, job := range stuck {
		failed := entities.JobStatusFailed
		was := job.Status
		msg := fmt.Sprintf("stuck in %s for over %s", job.Status, s.timeout)
		// conditional on the status the query saw: a job that progressed (or
		// completed) since then is no longer stuck and is left alone
		if err := s.repo.Update(ctx, job.ID, &entities.JobUpdate{Status: &failed, ExpectStatus: &was, Error: &msg}); err != nil {
			logger.Error(ctx, "stuck sweep update failed",
				zap.String("job_id", job.ID.String()),
				zap.Error(err))
			continue
		}
		metrics.SweepActions.WithLabelValues("stuck", "failed").Inc()
		metrics.JobTransitions.WithLabelValues(string(failed)).Inc()
		logger.Warn(ctx, "job marked stuck",
			zap.String("job_id", job.ID.String()),
			zap.String("was", string(job.Status)))
	}
}
