package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/events"
	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

// paymentTransitions mirrors the order table: pending is the only state a
// webhook or sweep may move out of. Refunded is reachable solely through
// ProcessRefund.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentStatusPending: {
		models.PaymentStatusCompleted,
		models.PaymentStatusFailed,
		models.PaymentStatusExpired,
	},
}

func canTransitionPayment(from, to models.PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PaymentService struct {
	Repo     *repo.GormRepo
	Producer *events.Producer
	Orders   *OrderService
}

// CreatePayment opens a pending payment record for an order. The fee is
// computed once here from the method's schedule; net is amount minus fee.
func (s *PaymentService) CreatePayment(ctx context.Context, order *models.Order, method models.PaymentMethod, currency string) (*models.Payment, error) {
	if order == nil {
		return nil, fmt.Errorf("%w: order required", ErrValidation)
	}
	if currency == "" {
		currency = "XOF"
	}

	fee, err := ComputeFee(method, order.Total)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		ID:          uuid.New(),
		Reference:   PaymentReference(now),
		OrderID:     order.ID,
		BuyerID:     order.BuyerID,
		StoreID:     order.StoreID,
		Method:      method,
		Amount:      order.Total,
		Currency:    currency,
		FeeAmount:   fee,
		NetAmount:   order.Total - fee,
		Status:      models.PaymentStatusPending,
		InitiatedAt: now,
	}

	err = s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		return s.Repo.CreatePayment(tx, payment)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment.Reference, map[string]any{
		"type":       "payment_initiated",
		"payment_id": payment.ID,
		"reference":  payment.Reference,
		"order_id":   payment.OrderID,
		"method":     payment.Method,
		"amount":     payment.Amount,
	})
	return payment, nil
}

// UpdateStatus applies a terminal provider result to a pending payment.
// Moving out of completed or refunded is rejected; only ProcessRefund may
// touch a completed payment.
func (s *PaymentService) UpdateStatus(ctx context.Context, paymentID uuid.UUID, newStatus models.PaymentStatus, externalID, failureReason string) (*models.Payment, error) {
	var payment *models.Payment
	err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.getPaymentTx(tx, paymentID)
		if err != nil {
			return err
		}

		return s.applyStatusTx(tx, payment, newStatus, externalID, failureReason)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment.Reference, map[string]any{
		"type":       "payment_" + string(newStatus),
		"payment_id": payment.ID,
		"reference":  payment.Reference,
		"order_id":   payment.OrderID,
		"status":     payment.Status,
	})
	return payment, nil
}

// ProcessRefund refunds up to the completed amount, once. A full refund
// moves the payment to refunded and the order to refunded; a partial one
// leaves the payment completed with the refund recorded and marks the order
// partially refunded.
func (s *PaymentService) ProcessRefund(ctx context.Context, paymentID uuid.UUID, amount int64, reason string) (*models.Payment, error) {
	var payment *models.Payment
	err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		payment, err = s.getPaymentTx(tx, paymentID)
		if err != nil {
			return err
		}

		if payment.Status != models.PaymentStatusCompleted {
			return fmt.Errorf("%w: payment status %s", ErrInvalidRefundAmount, payment.Status)
		}
		if amount <= 0 || amount > payment.Amount {
			return fmt.Errorf("%w: %d against %d", ErrInvalidRefundAmount, amount, payment.Amount)
		}
		if payment.RefundAmount != 0 {
			return fmt.Errorf("%w: payment already refunded", ErrConflict)
		}

		order, err := s.Repo.GetOrderTx(tx, payment.OrderID)
		if err != nil {
			return wrapNotFound(err, "order")
		}
		if order.Status != models.OrderStatusDelivered {
			return fmt.Errorf("%w: order status %s", ErrInvalidRefundAmount, order.Status)
		}

		now := time.Now().UTC()
		payment.RefundAmount = amount
		payment.RefundReason = reason
		payment.RefundedAt = &now

		orderStatus := models.OrderStatusPartiallyRefunded
		if amount == payment.Amount {
			payment.Status = models.PaymentStatusRefunded
			orderStatus = models.OrderStatusRefunded
		}
		if err := s.Repo.SavePayment(tx, payment); err != nil {
			return err
		}

		order.Status = orderStatus
		return s.Repo.SaveOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment.Reference, map[string]any{
		"type":          "payment_refund",
		"payment_id":    payment.ID,
		"reference":     payment.Reference,
		"order_id":      payment.OrderID,
		"refund_amount": payment.RefundAmount,
	})
	return payment, nil
}

// ExpirePending moves payments stuck in pending past the window to expired
// and cancels their orders, releasing the reserved stock. Each payment is
// handled in its own transaction so one failure does not stall the sweep.
func (s *PaymentService) ExpirePending(ctx context.Context, window time.Duration) (int, error) {
	const batchSize = 100
	cutoff := time.Now().UTC().Add(-window)

	stale, err := s.Repo.ListStalePendingPayments(ctx, cutoff, batchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range stale {
		p := stale[i]
		err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
			payment, err := s.getPaymentTx(tx, p.ID)
			if err != nil {
				return err
			}
			if payment.Status != models.PaymentStatusPending {
				return nil
			}

			now := time.Now().UTC()
			payment.Status = models.PaymentStatusExpired
			payment.ExpiredAt = &now
			if err := s.Repo.SavePayment(tx, payment); err != nil {
				return err
			}

			return s.Orders.CancelBySystem(ctx, tx, payment.OrderID, "payment expired")
		})
		if err != nil {
			logging.FromContext(ctx).Error("payment_expiry_failed", "payment_id", p.ID, "error", err)
			continue
		}
		expired++

		s.publish(ctx, p.Reference, map[string]any{
			"type":       "payment_expired",
			"payment_id": p.ID,
			"reference":  p.Reference,
			"order_id":   p.OrderID,
		})
	}
	return expired, nil
}

func (s *PaymentService) GetPayment(ctx context.Context, actor Actor, paymentID uuid.UUID) (*models.Payment, error) {
	payment, err := s.Repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, wrapNotFound(err, "payment")
	}
	if payment.BuyerID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: not your payment", ErrForbidden)
	}
	return payment, nil
}

// applyStatusTx is the one place a payment's status field is mutated
// outside the refund path. Caller owns the transaction.
func (s *PaymentService) applyStatusTx(tx *gorm.DB, payment *models.Payment, newStatus models.PaymentStatus, externalID, failureReason string) error {
	if !canTransitionPayment(payment.Status, newStatus) {
		return fmt.Errorf("%w: payment %s -> %s", ErrInvalidTransition, payment.Status, newStatus)
	}

	now := time.Now().UTC()
	payment.Status = newStatus
	switch newStatus {
	case models.PaymentStatusCompleted:
		payment.CompletedAt = &now
		payment.ExternalID = externalID
	case models.PaymentStatusFailed:
		payment.FailedAt = &now
		payment.ExternalID = externalID
		payment.FailureReason = failureReason
	case models.PaymentStatusExpired:
		payment.ExpiredAt = &now
	}
	return s.Repo.SavePayment(tx, payment)
}

func (s *PaymentService) getPaymentTx(tx *gorm.DB, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := tx.Where("id = ?", id).First(&p).Error; err != nil {
		return nil, wrapNotFound(err, "payment")
	}
	return &p, nil
}

func (s *PaymentService) publish(ctx context.Context, key string, event map[string]any) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pctx, events.TopicPaymentEvents, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicPaymentEvents, "error", err)
	}
}
