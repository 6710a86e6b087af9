package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	middleware "github.com/kodjomensah/warimarket/pkg/middleware/auth"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	OrderHandler   *OrderHTTP
	PaymentHandler *PaymentHTTP
	JWTSecret      []byte
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMW := middleware.NewAuthMiddleware(d.JWTSecret)

	auth := e.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)

	products := e.Group("/catalog/products")
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)
	products.GET("/:id/inventory", d.CatalogHandler.GetInventory)
	products.POST("", d.CatalogHandler.CreateProduct, authMW.RequireAuth)
	products.PATCH("/:id", d.CatalogHandler.PatchProduct, authMW.RequireAuth)

	orders := e.Group("/orders", authMW.RequireAuth)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)
	orders.POST("/:id/confirm", d.OrderHandler.ConfirmOrder)
	orders.POST("/:id/ship", d.OrderHandler.ShipOrder)
	orders.POST("/:id/deliver", d.OrderHandler.DeliverOrder)
	orders.POST("/:id/cancel", d.OrderHandler.CancelOrder)
	orders.POST("/:id/rating", d.OrderHandler.RateOrder)

	payments := e.Group("/payments")
	payments.GET("/:id", d.PaymentHandler.GetPayment, authMW.RequireAuth)
	payments.POST("/:id/refund", d.PaymentHandler.Refund, authMW.RequireAdmin)

	// Provider callbacks authenticate with an HMAC signature, not a JWT.
	e.POST("/webhooks/payments/:provider", d.PaymentHandler.ProviderWebhook)
}
