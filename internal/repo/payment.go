package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/models"
)

func (r *GormRepo) CreatePayment(tx *gorm.DB, payment *models.Payment) error {
	return tx.Create(payment).Error
}

func (r *GormRepo) GetPayment(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetPaymentByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("reference = ?", reference).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.DB.WithContext(ctx).Where("order_id = ?", orderID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepo) SavePayment(tx *gorm.DB, payment *models.Payment) error {
	return tx.Save(payment).Error
}

// IncrementPaymentRetry counts a duplicate webhook delivery.
func (r *GormRepo) IncrementPaymentRetry(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1")).Error
}

// ListStalePendingPayments returns payments still pending that were
// initiated before the cutoff. Used by the expiry sweep.
func (r *GormRepo) ListStalePendingPayments(ctx context.Context, cutoff time.Time, limit int) ([]models.Payment, error) {
	var out []models.Payment
	err := r.DB.WithContext(ctx).
		Where("status = ? AND initiated_at < ?", models.PaymentStatusPending, cutoff).
		Order("initiated_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
