package httpserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kodjomensah/warimarket/internal/models"
	"github.com/kodjomensah/warimarket/internal/repo"
	"github.com/kodjomensah/warimarket/internal/service"
	"github.com/kodjomensah/warimarket/pkg/tokens"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "test-webhook-secret"
)

type testServer struct {
	Echo     *echo.Echo
	DB       *gorm.DB
	Repo     *repo.GormRepo
	Orders   *service.OrderService
	Payments *service.PaymentService

	Owner uuid.UUID
	Buyer uuid.UUID
	Admin uuid.UUID
	Store *models.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Store{},
		&models.Product{},
		&models.InventoryRecord{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	))

	r := &repo.GormRepo{DB: db}
	orderSvc := &service.OrderService{Repo: r}
	paymentSvc := &service.PaymentService{Repo: r, Orders: orderSvc}
	webhookSvc := &service.WebhookService{
		Repo:     r,
		Payments: paymentSvc,
		Orders:   orderSvc,
		Secrets:  map[string][]byte{"mtn_momo": []byte(testWebhookSecret)},
	}
	authSvc := &service.AuthService{
		Repo:          r,
		JWTSecret:     []byte(testJWTSecret),
		RefreshSecret: []byte("test-refresh-secret"),
	}
	catalogSvc := &service.CatalogService{Repo: r}

	e := echo.New()
	Register(e, &Deps{
		AuthHandler:    &AuthHTTP{Svc: authSvc},
		CatalogHandler: &CatalogHTTP{Svc: catalogSvc},
		OrderHandler:   &OrderHTTP{Svc: orderSvc, Payments: paymentSvc},
		PaymentHandler: &PaymentHTTP{Svc: paymentSvc, Webhooks: webhookSvc},
		JWTSecret:      []byte(testJWTSecret),
	})

	ts := &testServer{
		Echo:     e,
		DB:       db,
		Repo:     r,
		Orders:   orderSvc,
		Payments: paymentSvc,
		Owner:    uuid.New(),
		Buyer:    uuid.New(),
		Admin:    uuid.New(),
	}

	ts.Store = &models.Store{ID: uuid.New(), OwnerID: ts.Owner, Name: "Marché Sandaga", City: "Dakar"}
	require.NoError(t, db.Create(ts.Store).Error)

	return ts
}

func (ts *testServer) seedProduct(t *testing.T, name string, price int64, stock int) *models.Product {
	t.Helper()

	product := &models.Product{ID: uuid.New(), StoreID: ts.Store.ID, Name: name, Price: price}
	require.NoError(t, ts.DB.Create(product).Error)
	require.NoError(t, ts.DB.Create(&models.InventoryRecord{ProductID: product.ID, Available: stock}).Error)
	return product
}

func (ts *testServer) token(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()

	tok, err := tokens.SignAccessToken([]byte(testJWTSecret), userID.String(), role, time.Now().Add(time.Hour))
	require.NoError(t, err)
	return tok
}

type request struct {
	method string
	path   string
	body   any
	token  string
	header http.Header
}

func (ts *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if raw, ok := r.body.([]byte); ok {
		body = bytes.NewReader(raw)
	} else if r.body != nil {
		data, err := json.Marshal(r.body)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	req := httptest.NewRequest(r.method, r.path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if r.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+r.token)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	rec := httptest.NewRecorder()
	ts.Echo.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}
