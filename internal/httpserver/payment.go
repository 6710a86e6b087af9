package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kodjomensah/warimarket/internal/service"
	"github.com/kodjomensah/warimarket/internal/transport"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

const signatureHeader = "X-Webhook-Signature"

type PaymentHTTP struct {
	Svc      *service.PaymentService
	Webhooks *service.WebhookService
}

func (h *PaymentHTTP) GetPayment(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	payment, err := h.Svc.GetPayment(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, payment)
}

// Refund is an administrative action, gated by RequireAdmin in the router.
func (h *PaymentHTTP) Refund(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.refund")

	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req transport.RefundRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	payment, err := h.Svc.ProcessRefund(ctx, id, req.Amount, req.Reason)
	if err != nil {
		l.Warn("refund_error", "payment_id", id, "error", err)
		return httpError(err)
	}

	l.Info("refund_success", "payment_id", payment.ID, "refund_amount", payment.RefundAmount)
	return c.JSON(http.StatusOK, payment)
}

// ProviderWebhook ingests a provider callback. The raw body is read before
// any parsing so the signature covers exactly the delivered bytes.
func (h *PaymentHTTP) ProviderWebhook(c echo.Context) error {
	ctx := c.Request().Context()
	provider := c.Param("provider")
	l := logging.FromContext(ctx).With("handler", "payment.webhook", "provider", provider)

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	payment, err := h.Webhooks.ProcessWebhook(ctx, provider, body, c.Request().Header.Get(signatureHeader))
	if err != nil {
		l.Warn("webhook_error", "error", err)
		return httpError(err)
	}

	l.Info("webhook_processed", "reference", payment.Reference, "status", payment.Status)
	return c.JSON(http.StatusOK, map[string]any{
		"reference": payment.Reference,
		"status":    payment.Status,
	})
}
