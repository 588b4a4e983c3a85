package usecases

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-jose/go-jose/v3"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"
	"stablepay.backend/internal/domain/entities"
	"stablepay.backend/internal/domain/repositories"
	"stablepay.backend/pkg/logger"
	"stablepay.backend/pkg/metrics"
	"stablepay.backend/pkg/utils"
)

const webhookAttempts = 3

// WebhookDispatcher notifies merchant endpoints of job lifecycle events.
// Delivery is best-effort: three attempts with doubling backoff, every
// attempt recorded on the delivery row. A dead endpoint never affects the
// job itself.
type WebhookDispatcher struct {
	merchants  repositories.MerchantRepository
	deliveries repositories.WebhookDeliveryRepository
	httpClient *http.Client
	// sleep is a test hook for the backoff between attempts
	sleep func(time.Duration)
}

// NewWebhookDispatcher creates a webhook dispatcher
func NewWebhookDispatcher(merchants repositories.MerchantRepository, deliveries repositories.WebhookDeliveryRepository) *WebhookDispatcher {
	return &WebhookDispatcher{
		merchants:  merchants,
		deliveries: deliveries,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		sleep:      time.Sleep,
	}
}

// SetHTTPClient overrides the underlying HTTP client. Used by tests.
func (d *WebhookDispatcher) SetHTTPClient(hc *http.Client) {
	d.httpClient = hc
}

// webhookEvent is the payload posted to the merchant endpoint
type webhookEvent struct {
	Event     string             `json:"event"`
	JobID     string             `json:"jobId"`
	Status    entities.JobStatus `json:"status"`
	Payer     string             `json:"payerAddress"`
	Amount    string             `json:"amount"`
	TxHashes  entities.TxHashes  `json:"txHashes"`
	Quote     *entities.Quote    `json:"quote,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// Dispatch sends one event to the job's merchant, if the merchant has a
// webhook URL registered. Failures are recorded, never returned.
func (d *WebhookDispatcher) Dispatch(ctx context.Context, job *entities.PaymentJob, eventType string) {
	merchant, err := d.merchants.GetByAddress(ctx, job.MerchantAddress)
	if err != nil || !merchant.WebhookURL.Valid || merchant.WebhookURL.String == "" {
		return // unregistered merchants simply get no notifications
	}

	payload, err := json.Marshal(webhookEvent{
		Event:     eventType,
		JobID:     job.ID.String(),
		Status:    job.Status,
		Payer:     job.PayerAddress,
		Amount:    job.Amount,
		TxHashes:  job.TxHashes,
		Quote:     job.Quote,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		logger.Error(ctx, "webhook payload marshal failed", zap.Error(err))
		return
	}

	delivery := &entities.WebhookDelivery{
		ID:        utils.GenerateUUIDv7(),
		JobID:     job.ID,
		URL:       merchant.WebhookURL.String,
		EventType: eventType,
		Payload:   string(payload),
		Status:    entities.WebhookDeliveryStatusPending,
	}
	if err := d.deliveries.Create(ctx, delivery); err != nil {
		logger.Error(ctx, "webhook delivery record failed", zap.Error(err))
		return
	}

	d.deliver(ctx, delivery, merchant.WebhookSecret, payload)
}

// deliver makes up to three attempts with 1s/2s/4s backoff.
func (d *WebhookDispatcher) deliver(ctx context.Context, delivery *entities.WebhookDelivery, secret null.String, payload []byte) {
	backoff := time.Second
	var lastErr error

	for attempt := 1; attempt <= webhookAttempts; attempt++ {
		if attempt > 1 {
			d.sleep(backoff)
			backoff *= 2
		}
		delivery.Attempts = attempt

		if lastErr = d.send(ctx, delivery.URL, secret, payload); lastErr == nil {
			delivery.Status = entities.WebhookDeliveryStatusDelivered
			delivery.LastError = null.String{}
			if err := d.deliveries.Update(ctx, delivery); err != nil {
				logger.Error(ctx, "webhook delivery update failed", zap.Error(err))
			}
			metrics.WebhookDeliveries.WithLabelValues("delivered").Inc()
			return
		}

		delivery.LastError = null.StringFrom(lastErr.Error())
		logger.Warn(ctx, "webhook attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(lastErr))
	}

	delivery.Status = entities.WebhookDeliveryStatusFailed
	if err := d.deliveries.Update(ctx, delivery); err != nil {
		logger.Error(ctx, "webhook delivery update failed", zap.Error(err))
	}
	metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
}

func (d *WebhookDispatcher) send(ctx context.Context, url string, secret null.String, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	if secret.Valid && secret.String != "" {
		signature, err := signPayload(secret.String, payload)
		if err != nil {
			return fmt.Errorf("sign webhook payload: %w", err)
		}
		req.Header.Set("X-Webhook-Signature", signature)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// signPayload produces a compact JWS over the payload with the merchant's
// webhook secret, letting the merchant verify origin and integrity.
func signPayload(secret string, payload []byte) (string, error) {
	signer, err := jose.NewSigner(jose.SigningKey{
		Algorithm: jose.HS256,
		Key:       []byte(secret),
	}, nil)
	if err != nil {
		return "", err
	}
	obj, err := signer.Sign(payload)
	if err != nil {
		return "", err
	}
	return obj.CompactSerialize()
}
