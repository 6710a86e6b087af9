package httpserver

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/service"
	"github.com/kodjomensah/warimarket/internal/transport"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

type OrderHTTP struct {
	Svc      *service.OrderService
	Payments *service.PaymentService
}

// CreateOrder runs checkout: the order is created with stock reserved, then
// a pending payment record is opened for it.
func (h *OrderHTTP) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.create_order")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req transport.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_order_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	method, err := service.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		l.Warn("create_order_error", "status", 400, "error", err)
		return httpError(err)
	}

	order, err := h.Svc.CreateOrder(ctx, actor, req)
	if err != nil {
		l.Warn("create_order_error", "error", err)
		return httpError(err)
	}

	payment, err := h.Payments.CreatePayment(ctx, order, method, req.Currency)
	if err != nil {
		l.Error("create_payment_error", "order_id", order.ID, "error", err)
		return httpError(err)
	}

	l.Info("create_order_success", "order_id", order.ID, "number", order.Number)
	return c.JSON(http.StatusCreated, transport.CheckoutResponse{Order: order, Payment: payment})
}

func (h *OrderHTTP) GetOrder(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	order, err := h.Svc.GetOrder(c.Request().Context(), actor, id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) ListOrders(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	limit := parseIntDefault(c.QueryParam("limit"), 20)
	offset := parseIntDefault(c.QueryParam("offset"), 0)

	orders, err := h.Svc.ListOrders(c.Request().Context(), actor, limit, offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (h *OrderHTTP) ConfirmOrder(c echo.Context) error {
	return h.transition(c, "order.confirm_order", h.Svc.Confirm)
}

func (h *OrderHTTP) DeliverOrder(c echo.Context) error {
	return h.transition(c, "order.deliver_order", h.Svc.Deliver)
}

func (h *OrderHTTP) ShipOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.ship_order")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req transport.ShipOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Ship(ctx, actor, id, req.TrackingNumber, req.Carrier)
	if err != nil {
		l.Warn("ship_order_error", "order_id", id, "error", err)
		return httpError(err)
	}

	l.Info("ship_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) CancelOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.cancel_order")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req transport.CancelOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Cancel(ctx, actor, id, req.Reason)
	if err != nil {
		l.Warn("cancel_order_error", "order_id", id, "error", err)
		return httpError(err)
	}

	l.Info("cancel_order_success", "order_id", order.ID)
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) RateOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.rate_order")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req transport.RateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Rate(ctx, actor, id, req.Rating, req.Comment)
	if err != nil {
		l.Warn("rate_order_error", "order_id", id, "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, order)
}

func (h *OrderHTTP) transition(c echo.Context, handler string, fn func(ctx context.Context, actor service.Actor, id uuid.UUID) (*models.Order, error)) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", handler)

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}

	order, err := fn(ctx, actor, id)
	if err != nil {
		l.Warn("transition_error", "order_id", id, "error", err)
		return httpError(err)
	}

	l.Info("transition_success", "order_id", order.ID, "status", order.Status)
	return c.JSON(http.StatusOK, order)
}
