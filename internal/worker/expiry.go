package worker

import (
	"context"
	"time"

	"github.com/kodjomensah/warimarket/internal/service"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

// ExpiryWorker periodically expires payments stuck in pending longer than
// the window, cancelling their orders and releasing reserved stock.
type ExpiryWorker struct {
	Payments *service.PaymentService
	Interval time.Duration
	Window   time.Duration
}

func NewExpiryWorker(payments *service.PaymentService, interval, window time.Duration) *ExpiryWorker {
	return &ExpiryWorker{
		Payments: payments,
		Interval: interval,
		Window:   window,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) {
	l := logging.FromContext(ctx).With("worker", "payment_expiry")
	l.Info("worker_started", "interval", w.Interval.String(), "window", w.Window.String())

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Info("worker_stopped")
			return
		case <-ticker.C:
			n, err := w.Payments.ExpirePending(ctx, w.Window)
			if err != nil {
				l.Error("sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("payments_expired", "count", n)
			}
		}
	}
}
