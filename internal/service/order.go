package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/events"
	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/internal/transport"
	"github.com/kodjomensah/warimarket/pkg/logging"
)

// Actor is the authenticated caller an operation runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == "admin" }

// orderTransitions is the single source of truth for legal status moves.
// Transitions must be strictly adjacent: skipping a state is rejected even
// when every intermediate move would have been legal.
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:   {models.OrderStatusDelivered},
	models.OrderStatusDelivered: {models.OrderStatusRefunded, models.OrderStatusPartiallyRefunded},
}

func canTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type OrderService struct {
	Repo     *repo.GormRepo
	Producer *events.Producer
}

// CreateOrder validates the checkout request, snapshots unit prices and
// reserves stock for every line item inside one transaction. If any single
// reservation fails the whole order rolls back.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req transport.CreateOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	if req.ShippingAddress == "" {
		return nil, fmt.Errorf("%w: shipping_address required", ErrValidation)
	}
	if req.ShippingFee < 0 {
		return nil, fmt.Errorf("%w: shipping_fee must be >= 0", ErrValidation)
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	for i := range req.Items {
		if req.Items[i].ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product_id required", ErrValidation)
		}
		if req.Items[i].Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
		ids = append(ids, req.Items[i].ProductID)
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:              uuid.New(),
		Number:          OrderNumber(now),
		BuyerID:         actor.UserID,
		ShippingAddress: req.ShippingAddress,
		ShippingFee:     req.ShippingFee,
		Status:          models.OrderStatusPending,
		CreatedAt:       now,
	}

	err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := s.Repo.GetProductsTx(tx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]models.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		var total int64
		for i := range req.Items {
			product, ok := byID[req.Items[i].ProductID]
			if !ok {
				return fmt.Errorf("%w: product %s", ErrNotFound, req.Items[i].ProductID)
			}
			if order.StoreID == uuid.Nil {
				order.StoreID = product.StoreID
			} else if order.StoreID != product.StoreID {
				return fmt.Errorf("%w: items must belong to a single store", ErrValidation)
			}

			lineTotal := int64(req.Items[i].Quantity) * product.Price
			order.Items = append(order.Items, models.OrderItem{
				OrderID:   order.ID,
				ProductID: product.ID,
				Quantity:  req.Items[i].Quantity,
				UnitPrice: product.Price,
				LineTotal: lineTotal,
			})
			total += lineTotal

			if err := s.Repo.Reserve(tx, product.ID, req.Items[i].Quantity); err != nil {
				if errors.Is(err, repo.ErrInsufficientStock) {
					return fmt.Errorf("%w: product %s", repo.ErrInsufficientStock, product.ID)
				}
				return err
			}
		}

		order.Total = total + order.ShippingFee
		return s.Repo.CreateOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":     "order_created",
		"order_id": order.ID,
		"number":   order.Number,
		"buyer_id": order.BuyerID,
		"store_id": order.StoreID,
		"total":    order.Total,
	})
	return order, nil
}

// Confirm moves pending -> confirmed. Store staff or admin only.
func (s *OrderService) Confirm(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderStatusConfirmed, nil)
}

// Ship moves confirmed -> shipped and records the optional tracking info.
func (s *OrderService) Ship(ctx context.Context, actor Actor, orderID uuid.UUID, tracking, carrier string) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderStatusShipped, func(tx *gorm.DB, order *models.Order) error {
		order.TrackingNumber = tracking
		order.Carrier = carrier
		return nil
	})
}

// Deliver moves shipped -> delivered and consumes the reserved stock for
// every line item. Available counters stay untouched; they were decremented
// at reservation time.
func (s *OrderService) Deliver(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	return s.advance(ctx, actor, orderID, models.OrderStatusDelivered, func(tx *gorm.DB, order *models.Order) error {
		for _, item := range order.Items {
			if err := s.Repo.Consume(tx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

// advance applies one forward transition under the store-actor check.
func (s *OrderService) advance(ctx context.Context, actor Actor, orderID uuid.UUID, to models.OrderStatus, mutate func(tx *gorm.DB, order *models.Order) error) (*models.Order, error) {
	var order *models.Order
	err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.Repo.GetOrderTx(tx, orderID)
		if err != nil {
			return wrapNotFound(err, "order")
		}

		if err := s.requireStoreActor(tx, actor, order.StoreID); err != nil {
			return err
		}
		if !canTransition(order.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, to)
		}

		if mutate != nil {
			if err := mutate(tx, order); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		order.Status = to
		switch to {
		case models.OrderStatusConfirmed:
			order.ConfirmedAt = &now
		case models.OrderStatusShipped:
			order.ShippedAt = &now
		case models.OrderStatusDelivered:
			order.DeliveredAt = &now
		}
		return s.Repo.SaveOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":     "order_" + string(to),
		"order_id": order.ID,
		"status":   order.Status,
	})
	return order, nil
}

// Cancel releases every reserved line item exactly once. A second cancel of
// an already-cancelled order is a no-op, not an error. Cancelling past the
// shippable point is rejected.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uuid.UUID, reason string) (*models.Order, error) {
	var order *models.Order
	var noop bool
	err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.Repo.GetOrderTx(tx, orderID)
		if err != nil {
			return wrapNotFound(err, "order")
		}

		if order.BuyerID != actor.UserID {
			if err := s.requireStoreActor(tx, actor, order.StoreID); err != nil {
				return err
			}
		}

		if order.Status == models.OrderStatusCancelled {
			noop = true
			return nil
		}
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
			return fmt.Errorf("%w: status %s", ErrOrderNotCancellable, order.Status)
		}

		return s.cancelTx(tx, order, reason)
	})
	if err != nil {
		return nil, err
	}
	if noop {
		return order, nil
	}

	s.publish(ctx, order.ID.String(), map[string]any{
		"type":     "order_cancelled",
		"order_id": order.ID,
		"reason":   reason,
	})
	return order, nil
}

// CancelBySystem cancels a still-cancellable order without an actor check.
// Used when a payment fails or expires. Orders already past confirmed (or
// already cancelled) are left alone.
func (s *OrderService) CancelBySystem(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, reason string) error {
	order, err := s.Repo.GetOrderTx(tx, orderID)
	if err != nil {
		return wrapNotFound(err, "order")
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
		return nil
	}
	return s.cancelTx(tx, order, reason)
}

func (s *OrderService) cancelTx(tx *gorm.DB, order *models.Order, reason string) error {
	for _, item := range order.Items {
		if err := s.Repo.Release(tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	order.Status = models.OrderStatusCancelled
	order.CancelledAt = &now
	order.CancelReason = reason
	return s.Repo.SaveOrder(tx, order)
}

// Rate attaches the buyer's one-time rating to a delivered order.
func (s *OrderService) Rate(ctx context.Context, actor Actor, orderID uuid.UUID, rating int, comment string) (*models.Order, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	var order *models.Order
	err := s.Repo.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		order, err = s.Repo.GetOrderTx(tx, orderID)
		if err != nil {
			return wrapNotFound(err, "order")
		}

		if order.BuyerID != actor.UserID {
			return fmt.Errorf("%w: only the buyer may rate an order", ErrForbidden)
		}
		if order.DeliveredAt == nil {
			return fmt.Errorf("%w: order not delivered", ErrValidation)
		}
		if order.RatedAt != nil {
			return fmt.Errorf("%w: order already rated", ErrConflict)
		}

		now := time.Now().UTC()
		order.Rating = &rating
		order.RatingComment = comment
		order.RatedAt = &now
		return s.Repo.SaveOrder(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, orderID)
	if err != nil {
		return nil, wrapNotFound(err, "order")
	}
	if order.BuyerID != actor.UserID && !actor.IsAdmin() {
		if err := s.requireStoreActor(s.Repo.DB.WithContext(ctx), actor, order.StoreID); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor Actor, limit, offset int) ([]models.Order, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.ListOrders(ctx, actor.UserID, limit, offset)
}

// requireStoreActor passes admins and the owning store's account.
func (s *OrderService) requireStoreActor(tx *gorm.DB, actor Actor, storeID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	var store models.Store
	if err := tx.Where("id = ?", storeID).First(&store).Error; err != nil {
		return wrapNotFound(err, "store")
	}
	if store.OwnerID != actor.UserID {
		return fmt.Errorf("%w: not a store actor", ErrForbidden)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, key string, event map[string]any) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pctx, events.TopicOrderEvents, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "topic", events.TopicOrderEvents, "error", err)
	}
}

func wrapNotFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}
