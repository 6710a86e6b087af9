package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/transport"
)

func TestCreateOrder_TotalsAndReservation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	pagne := env.seedProduct(t, "Pagne wax 6 yards", 15000, 10)
	sandals := env.seedProduct(t, "Sandales cuir", 25000, 5)

	order, err := env.Orders.CreateOrder(t.Context(), env.Buyer, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: pagne.ID, Quantity: 2},
			{ProductID: sandals.ID, Quantity: 1},
		},
		ShippingAddress: "Cocody, Abidjan",
		ShippingFee:     1500,
	})
	require.NoError(t, err)

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, env.Buyer.UserID, order.BuyerID)
	assert.Equal(t, env.Store.ID, order.StoreID)
	assert.NotEmpty(t, order.Number)
	require.Len(t, order.Items, 2)

	assert.Equal(t, int64(15000), order.Items[0].UnitPrice)
	assert.Equal(t, int64(30000), order.Items[0].LineTotal)
	assert.Equal(t, int64(25000), order.Items[1].LineTotal)
	assert.Equal(t, int64(56500), order.Total)

	inv := env.inventory(t, pagne.ID)
	assert.Equal(t, 8, inv.Available)
	assert.Equal(t, 2, inv.Reserved)

	inv = env.inventory(t, sandals.ID)
	assert.Equal(t, 4, inv.Available)
	assert.Equal(t, 1, inv.Reserved)
}

func TestCreateOrder_PriceSnapshotSurvivesRepricing(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Beurre de karité 500g", 4000, 10)

	order, err := env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(product.ID, 2))
	require.NoError(t, err)

	require.NoError(t, env.DB.Model(&models.Product{}).
		Where("id = ?", product.ID).
		Update("price", int64(9000)).Error)

	reloaded := env.reloadOrder(t, order.ID)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, int64(4000), reloaded.Items[0].UnitPrice)
	assert.Equal(t, int64(8000), reloaded.Total)
}

func TestCreateOrder_Validation(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Attiéké 1kg", 1000, 10)

	tests := []struct {
		name string
		req  transport.CreateOrderRequest
	}{
		{
			name: "no items",
			req:  transport.CreateOrderRequest{ShippingAddress: "Plateau"},
		},
		{
			name: "zero quantity",
			req: transport.CreateOrderRequest{
				Items:           []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 0}},
				ShippingAddress: "Plateau",
			},
		},
		{
			name: "missing product id",
			req: transport.CreateOrderRequest{
				Items:           []transport.CreateOrderItem{{Quantity: 1}},
				ShippingAddress: "Plateau",
			},
		},
		{
			name: "missing address",
			req: transport.CreateOrderRequest{
				Items: []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
			},
		},
		{
			name: "negative shipping fee",
			req: transport.CreateOrderRequest{
				Items:           []transport.CreateOrderItem{{ProductID: product.ID, Quantity: 1}},
				ShippingAddress: "Plateau",
				ShippingFee:     -100,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Orders.CreateOrder(t.Context(), env.Buyer, tc.req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(uuid.New(), 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateOrder_SingleStoreOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	local := env.seedProduct(t, "Bissap 1L", 1500, 10)

	otherStore := &models.Store{ID: uuid.New(), OwnerID: uuid.New(), Name: "Chez Kofi", City: "Accra"}
	require.NoError(t, env.DB.Create(otherStore).Error)
	foreign := &models.Product{ID: uuid.New(), StoreID: otherStore.ID, Name: "Kente", Price: 40000}
	require.NoError(t, env.DB.Create(foreign).Error)
	require.NoError(t, env.DB.Create(&models.InventoryRecord{ProductID: foreign.ID, Available: 5}).Error)

	_, err := env.Orders.CreateOrder(t.Context(), env.Buyer, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: local.ID, Quantity: 1},
			{ProductID: foreign.ID, Quantity: 1},
		},
		ShippingAddress: "Plateau",
	})
	assert.ErrorIs(t, err, ErrValidation)

	// the local reservation must have rolled back with the order
	inv := env.inventory(t, local.ID)
	assert.Equal(t, 10, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestCreateOrder_InsufficientStockRollsBackAllItems(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	plenty := env.seedProduct(t, "Savon noir", 500, 100)
	scarce := env.seedProduct(t, "Bronze ashanti", 80000, 1)

	_, err := env.Orders.CreateOrder(t.Context(), env.Buyer, transport.CreateOrderRequest{
		Items: []transport.CreateOrderItem{
			{ProductID: plenty.ID, Quantity: 10},
			{ProductID: scarce.ID, Quantity: 2},
		},
		ShippingAddress: "Plateau",
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	inv := env.inventory(t, plenty.ID)
	assert.Equal(t, 100, inv.Available)
	assert.Equal(t, 0, inv.Reserved)

	var count int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrder_StockNeverGoesNegative(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Panier tressé", 3500, 4)

	_, err := env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(product.ID, 2))
	require.NoError(t, err)
	_, err = env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(product.ID, 2))
	require.NoError(t, err)

	_, err = env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(product.ID, 2))
	require.ErrorIs(t, err, ErrInsufficientStock)

	inv := env.inventory(t, product.ID)
	assert.Equal(t, 0, inv.Available)
	assert.Equal(t, 4, inv.Reserved)
}

func TestOrderTransitions_HappyPath(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Chaise en teck", 45000, 3)
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 2))
	require.NoError(t, err)

	order, err = env.Orders.Confirm(ctx, env.Owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, order.Status)
	assert.NotNil(t, order.ConfirmedAt)

	order, err = env.Orders.Ship(ctx, env.Owner, order.ID, "TRK-778", "Sonatt Express")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status)
	assert.Equal(t, "TRK-778", order.TrackingNumber)
	assert.Equal(t, "Sonatt Express", order.Carrier)
	assert.NotNil(t, order.ShippedAt)

	order, err = env.Orders.Deliver(ctx, env.Owner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, order.Status)
	assert.NotNil(t, order.DeliveredAt)

	// delivery consumes the reservation without touching available
	inv := env.inventory(t, product.ID)
	assert.Equal(t, 1, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestOrderTransitions_NoSkipping(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Tam-tam", 22000, 5)
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 1))
	require.NoError(t, err)

	_, err = env.Orders.Ship(ctx, env.Owner, order.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.Orders.Deliver(ctx, env.Owner, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.Orders.Confirm(ctx, env.Owner, order.ID)
	require.NoError(t, err)
	_, err = env.Orders.Deliver(ctx, env.Owner, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// repeating the current state is also not adjacent
	_, err = env.Orders.Confirm(ctx, env.Owner, order.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestOrderTransitions_StoreActorOnly(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Collier perles", 6000, 5)
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 1))
	require.NoError(t, err)

	_, err = env.Orders.Confirm(ctx, env.Buyer, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	stranger := Actor{UserID: uuid.New(), Role: "user"}
	_, err = env.Orders.Confirm(ctx, stranger, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	// admins pass the store check
	_, err = env.Orders.Confirm(ctx, env.Admin, order.ID)
	assert.NoError(t, err)
}

func TestCancel_ReleasesStockExactlyOnce(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Djembé", 30000, 10)
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 3))
	require.NoError(t, err)

	order, err = env.Orders.Cancel(ctx, env.Buyer, order.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, order.Status)
	assert.Equal(t, "changed my mind", order.CancelReason)
	assert.NotNil(t, order.CancelledAt)

	inv := env.inventory(t, product.ID)
	assert.Equal(t, 10, inv.Available)
	assert.Equal(t, 0, inv.Reserved)

	// second cancel is a no-op, not a second release
	order, err = env.Orders.Cancel(ctx, env.Buyer, order.ID, "again")
	require.NoError(t, err)
	assert.Equal(t, "changed my mind", order.CancelReason)

	inv = env.inventory(t, product.ID)
	assert.Equal(t, 10, inv.Available)
	assert.Equal(t, 0, inv.Reserved)
}

func TestCancel_AfterShipmentRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Statuette baoulé", 55000, 5)
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 1))
	require.NoError(t, err)
	_, err = env.Orders.Confirm(ctx, env.Owner, order.ID)
	require.NoError(t, err)
	_, err = env.Orders.Ship(ctx, env.Owner, order.ID, "TRK-1", "")
	require.NoError(t, err)

	_, err = env.Orders.Cancel(ctx, env.Buyer, order.ID, "too late")
	assert.ErrorIs(t, err, ErrOrderNotCancellable)
}

func TestCancel_StrangerForbidden(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Boubou brodé", 18000, 5)

	order, err := env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(product.ID, 1))
	require.NoError(t, err)

	stranger := Actor{UserID: uuid.New(), Role: "user"}
	_, err = env.Orders.Cancel(t.Context(), stranger, order.ID, "")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRate(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Thé à la menthe", 2500, 10)
	ctx := t.Context()

	order, _ := env.deliveredOrder(t, product, 1)

	_, err := env.Orders.Rate(ctx, env.Buyer, order.ID, 0, "")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.Orders.Rate(ctx, env.Buyer, order.ID, 6, "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.Orders.Rate(ctx, env.Owner, order.ID, 5, "")
	assert.ErrorIs(t, err, ErrForbidden)

	rated, err := env.Orders.Rate(ctx, env.Buyer, order.ID, 4, "bon vendeur")
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, 4, *rated.Rating)
	assert.Equal(t, "bon vendeur", rated.RatingComment)
	assert.NotNil(t, rated.RatedAt)

	_, err = env.Orders.Rate(ctx, env.Buyer, order.ID, 5, "encore")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRate_UndeliveredRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Huile de palme 1L", 1800, 10)

	order, err := env.Orders.CreateOrder(t.Context(), env.Buyer, orderRequest(product.ID, 1))
	require.NoError(t, err)

	_, err = env.Orders.Rate(t.Context(), env.Buyer, order.ID, 5, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetOrder_Visibility(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Café Touba 250g", 3000, 10)
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 1))
	require.NoError(t, err)

	for _, actor := range []Actor{env.Buyer, env.Owner, env.Admin} {
		got, err := env.Orders.GetOrder(ctx, actor, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ID, got.ID)
	}

	stranger := Actor{UserID: uuid.New(), Role: "user"}
	_, err = env.Orders.GetOrder(ctx, stranger, order.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.Orders.GetOrder(ctx, env.Buyer, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrders_BuyerScoped(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	product := env.seedProduct(t, "Gari 1kg", 900, 50)
	ctx := t.Context()

	for range 3 {
		_, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, 1))
		require.NoError(t, err)
	}
	other := Actor{UserID: uuid.New(), Role: "user"}
	_, err := env.Orders.CreateOrder(ctx, other, orderRequest(product.ID, 1))
	require.NoError(t, err)

	mine, err := env.Orders.ListOrders(ctx, env.Buyer, 20, 0)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	theirs, err := env.Orders.ListOrders(ctx, other, 20, 0)
	require.NoError(t, err)
	assert.Len(t, theirs, 1)
}
