package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/models"
)

var (
	// ErrInsufficientStock is returned when a reservation asks for more
	// than is currently available.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStockMismatch is returned when a release or consume would move
	// more than was reserved. That is a programming error and is
	// surfaced, never clamped.
	ErrStockMismatch = errors.New("stock counter mismatch")
)

// Reserve decrements available and increments reserved in one conditional
// UPDATE. The WHERE guard makes the check-and-decrement atomic at the
// storage layer, so two orders racing for the last unit cannot both win.
func (r *GormRepo) Reserve(tx *gorm.DB, productID uuid.UUID, qty int) error {
	res := tx.Model(&models.InventoryRecord{}).
		Where("product_id = ? AND available >= ?", productID, qty).
		Updates(map[string]any{
			"available": gorm.Expr("available - ?", qty),
			"reserved":  gorm.Expr("reserved + ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

// Release returns previously reserved quantity to available.
func (r *GormRepo) Release(tx *gorm.DB, productID uuid.UUID, qty int) error {
	res := tx.Model(&models.InventoryRecord{}).
		Where("product_id = ? AND reserved >= ?", productID, qty).
		Updates(map[string]any{
			"available": gorm.Expr("available + ?", qty),
			"reserved":  gorm.Expr("reserved - ?", qty),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockMismatch
	}
	return nil
}

// Consume removes delivered quantity from reserved. Available is untouched;
// it was already decremented at reservation time.
func (r *GormRepo) Consume(tx *gorm.DB, productID uuid.UUID, qty int) error {
	res := tx.Model(&models.InventoryRecord{}).
		Where("product_id = ? AND reserved >= ?", productID, qty).
		Update("reserved", gorm.Expr("reserved - ?", qty))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStockMismatch
	}
	return nil
}

func (r *GormRepo) GetInventory(ctx context.Context, productID uuid.UUID) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	if err := r.DB.WithContext(ctx).Where("product_id = ?", productID).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *GormRepo) CreateInventory(tx *gorm.DB, rec *models.InventoryRecord) error {
	return tx.Create(rec).Error
}
