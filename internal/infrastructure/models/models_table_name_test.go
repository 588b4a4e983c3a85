package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	assert.Equal(t, "payment_jobs", PaymentJob{}.TableName())
	assert.Equal(t, "merchants", Merchant{}.TableName())
	assert.Equal(t, "products", Product{}.TableName())
	assert.Equal(t, "subscriptions", Subscription{}.TableName())
	assert.Equal(t, "webhook_deliveries", WebhookDelivery{}.TableName())
}
