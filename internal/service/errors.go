package service

import (
	"errors"

	"github.com/kodjomensah/warimarket/internal/repo"
)

var (
	ErrValidation = errors.New("validation") // 400
	ErrNotFound   = errors.New("not found")  // 404
	ErrForbidden  = errors.New("forbidden")  // 403
	ErrConflict   = errors.New("conflict")   // 409

	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrOrderNotCancellable = errors.New("order not cancellable")
	ErrInvalidRefundAmount = errors.New("invalid refund amount")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrConflictingWebhook  = errors.New("conflicting webhook")

	ErrInsufficientStock = repo.ErrInsufficientStock
	ErrStockMismatch     = repo.ErrStockMismatch
)
