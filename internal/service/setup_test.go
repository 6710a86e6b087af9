package service

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/internal/transport"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err, "open in-memory db")

	// one connection so every query sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Store{},
		&models.Product{},
		&models.InventoryRecord{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	require.NoError(t, err, "migrate tables")

	return db
}

type testEnv struct {
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Orders   *OrderService
	Payments *PaymentService
	Webhooks *WebhookService
	Catalog  *CatalogService
	Auth     *AuthService

	Owner Actor
	Buyer Actor
	Admin Actor

	Store *models.Store
}

const testWebhookSecret = "test-webhook-secret"

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	r := &repo.GormRepo{DB: db}

	orders := &OrderService{Repo: r}
	payments := &PaymentService{Repo: r, Orders: orders}

	env := &testEnv{
		DB:       db,
		Repo:     r,
		Orders:   orders,
		Payments: payments,
		Webhooks: &WebhookService{
			Repo:     r,
			Payments: payments,
			Orders:   orders,
			Secrets:  map[string][]byte{"mtn_momo": []byte(testWebhookSecret)},
		},
		Catalog: &CatalogService{Repo: r},
		Auth: &AuthService{
			Repo:          r,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
		Owner: Actor{UserID: uuid.New(), Role: "user"},
		Buyer: Actor{UserID: uuid.New(), Role: "user"},
		Admin: Actor{UserID: uuid.New(), Role: "admin"},
	}

	env.Store = &models.Store{
		ID:        uuid.New(),
		OwnerID:   env.Owner.UserID,
		Name:      "Boutique Adjoa",
		City:      "Abidjan",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(env.Store).Error)

	return env
}

// seedProduct creates a product in env.Store together with its inventory row.
func (env *testEnv) seedProduct(t *testing.T, name string, price int64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{
		ID:        uuid.New(),
		StoreID:   env.Store.ID,
		Name:      name,
		Price:     price,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, env.DB.Create(product).Error)
	require.NoError(t, env.DB.Create(&models.InventoryRecord{
		ProductID: product.ID,
		Available: stock,
	}).Error)
	return product
}

func (env *testEnv) inventory(t *testing.T, productID uuid.UUID) *models.InventoryRecord {
	t.Helper()

	rec, err := env.Repo.GetInventory(t.Context(), productID)
	require.NoError(t, err)
	return rec
}

func (env *testEnv) reloadOrder(t *testing.T, orderID uuid.UUID) *models.Order {
	t.Helper()

	order, err := env.Repo.GetOrder(t.Context(), orderID)
	require.NoError(t, err)
	return order
}

func (env *testEnv) reloadPayment(t *testing.T, paymentID uuid.UUID) *models.Payment {
	t.Helper()

	payment, err := env.Repo.GetPayment(t.Context(), paymentID)
	require.NoError(t, err)
	return payment
}

func orderRequest(productID uuid.UUID, qty int) transport.CreateOrderRequest {
	return transport.CreateOrderRequest{
		Items:           []transport.CreateOrderItem{{ProductID: productID, Quantity: qty}},
		ShippingAddress: "Cocody, Abidjan",
	}
}

// deliveredOrder walks a fresh order through the full forward path and
// returns it in delivered state alongside its completed payment.
func (env *testEnv) deliveredOrder(t *testing.T, product *models.Product, qty int) (*models.Order, *models.Payment) {
	t.Helper()
	ctx := t.Context()

	order, err := env.Orders.CreateOrder(ctx, env.Buyer, orderRequest(product.ID, qty))
	require.NoError(t, err)

	payment, err := env.Payments.CreatePayment(ctx, order, models.PaymentMethodMTNMoMo, "XOF")
	require.NoError(t, err)
	payment, err = env.Payments.UpdateStatus(ctx, payment.ID, models.PaymentStatusCompleted, "MP-1", "")
	require.NoError(t, err)

	_, err = env.Orders.Confirm(ctx, env.Owner, order.ID)
	require.NoError(t, err)
	_, err = env.Orders.Ship(ctx, env.Owner, order.ID, "TRK-1", "DHL")
	require.NoError(t, err)
	order, err = env.Orders.Deliver(ctx, env.Owner, order.ID)
	require.NoError(t, err)

	return order, payment
}
