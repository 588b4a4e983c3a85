package repositories

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", t.Name(), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "open sqlite")
	return db
}

func mustExec(t *testing.T, db *gorm.DB, q string, args ...interface{}) {
	t.Helper()
	require.NoError(t, db.Exec(q, args...).Error, "exec failed: query=%s", q)
}

func createPaymentJobTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE payment_jobs (
		id TEXT PRIMARY KEY,
		payer_address TEXT NOT NULL,
		merchant_address TEXT NOT NULL,
		amount TEXT NOT NULL,
		source_plan TEXT,
		quote TEXT,
		status TEXT NOT NULL,
		tx_hashes TEXT NOT NULL DEFAULT '{}',
		error TEXT,
		skip_confirmation BOOLEAN NOT NULL DEFAULT FALSE,
		subscription_id TEXT,
		expires_at DATETIME,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createMerchantTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE merchants (
		address TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		logo_url TEXT,
		slug TEXT UNIQUE,
		webhook_url TEXT,
		webhook_secret TEXT,
		revenue_split TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	);`)
}

func createProductTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE products (
		id TEXT PRIMARY KEY,
		merchant_address TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL,
		type TEXT NOT NULL,
		interval_days INTEGER NOT NULL DEFAULT 0,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createSubscriptionTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE subscriptions (
		id TEXT PRIMARY KEY,
		merchant_address TEXT NOT NULL,
		payer_address TEXT NOT NULL,
		product_id TEXT,
		amount TEXT NOT NULL,
		interval_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		session_credential TEXT,
		next_charge_at DATETIME NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}

func createWebhookDeliveryTable(t *testing.T, db *gorm.DB) {
	mustExec(t, db, `CREATE TABLE webhook_deliveries (
		id TEXT PRIMARY KEY,
		job_id TEXT NOT NULL,
		url TEXT NOT NULL,
		event_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		last_error TEXT,
		status TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	);`)
}
