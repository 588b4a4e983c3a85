package repositories

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "tx_db"

// WithTransaction runs fn inside a single gorm transaction. Repository calls
// made with the context fn receives share that transaction through GetDB; an
// error from fn rolls everything back.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey, tx))
	})
}

// GetDB returns the transaction bound to ctx by WithTransaction, falling back
// to the repository's own handle when none is bound.
func GetDB(ctx context.Context, fallback *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx
	}
	return fallback
}
