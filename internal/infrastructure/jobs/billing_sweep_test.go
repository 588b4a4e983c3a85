package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stablepay.backend/internal/domain/entities"
	"stablepay.backend/internal/usecases"
	"stablepay.backend/pkg/utils"
)

type tickerStub struct {
	due     []*entities.Subscription
	tickErr error
	limit   int
}

func (s *tickerStub) Tick(ctx context.Context, limit int, charge usecases.ChargeFunc) (int, error) {
	if s.tickErr != nil {
		return 0, s.tickErr
	}
	s.limit = limit
	charged := 0
	for _, sub := range s.due {
		if err := charge(ctx, sub); err != nil {
			continue
		}
		charged++
	}
	return charged, nil
}

type chargerStub struct {
	jobs      []*entities.PaymentJob
	createErr error
}

func (s *chargerStub) CreateSubscriptionJob(ctx context.Context, sub *entities.Subscription) (*entities.PaymentJob, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	job := &entities.PaymentJob{
		ID:              utils.GenerateUUIDv7(),
		PayerAddress:    sub.PayerAddress,
		MerchantAddress: sub.MerchantAddress,
		Amount:          sub.Amount,
		Status:          entities.JobStatusComplete,
		SubscriptionID:  &sub.ID,
	}
	s.jobs = append(s.jobs, job)
	return job, nil
}

func dueSubscription() *entities.Subscription {
	return &entities.Subscription{
		ID:              utils.GenerateUUIDv7(),
		MerchantAddress: "0x2222222222222222222222222222222222222222",
		PayerAddress:    "0x1111111111111111111111111111111111111111",
		Amount:          "25",
		IntervalDays:    30,
		Status:          entities.SubscriptionStatusActive,
	}
}

func TestBillingSweep_ChargesDueSubscriptions(t *testing.T) {
	ticker := &tickerStub{due: []*entities.Subscription{dueSubscription(), dueSubscription()}}
	charger := &chargerStub{}

	s := NewBillingSweep(ticker, charger, time.Millisecond)
	s.sweep(context.Background())

	require.Len(t, charger.jobs, 2)
	assert.Equal(t, sweepBatchSize, ticker.limit)
	assert.Equal(t, "25", charger.jobs[0].Amount)
	require.NotNil(t, charger.jobs[0].SubscriptionID)
}

func TestBillingSweep_ChargeFailureIsIsolated(t *testing.T) {
	ticker := &tickerStub{due: []*entities.Subscription{dueSubscription()}}
	charger := &chargerStub{createErr: errors.New("insufficient funds")}

	s := NewBillingSweep(ticker, charger, time.Millisecond)
	s.sweep(context.Background()) // must not panic
	assert.Empty(t, charger.jobs)
}

func TestBillingSweep_TickErrorLogged(t *testing.T) {
	ticker := &tickerStub{tickErr: errors.New("db down")}

	s := NewBillingSweep(ticker, &chargerStub{}, time.Millisecond)
	s.sweep(context.Background())
}

func TestBillingSweep_StopsByStop(t *testing.T) {
	s := NewBillingSweep(&tickerStub{}, &chargerStub{}, time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweep did not stop on Stop")
	}
}
