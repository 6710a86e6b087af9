package repo

import (
	"context"

	"gorm.io/gorm"
)

type GormRepo struct {
	DB *gorm.DB
}

// WithTx runs fn inside a single database transaction. Every multi-row
// mutation of the order/payment/inventory core goes through here so the
// reserve-check-write sequence is all-or-nothing.
func (r *GormRepo) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.DB.WithContext(ctx).Transaction(fn)
}
