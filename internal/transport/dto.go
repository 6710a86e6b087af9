package transport

import (
	"github.com/google/uuid"

	"github.com/kodjomensah/warimarket/internal/models"
)

type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type CreateOrderRequest struct {
	Items           []CreateOrderItem `json:"items"`
	ShippingAddress string            `json:"shipping_address"`
	ShippingFee     int64             `json:"shipping_fee"`
	PaymentMethod   string            `json:"payment_method"`
	Currency        string            `json:"currency"`
}

type CheckoutResponse struct {
	Order   *models.Order   `json:"order"`
	Payment *models.Payment `json:"payment"`
}

type ShipOrderRequest struct {
	TrackingNumber string `json:"tracking_number"`
	Carrier        string `json:"carrier"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

type RateOrderRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type RefundRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type TokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type CreateProductRequest struct {
	StoreID      uuid.UUID `json:"store_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Price        int64     `json:"price"`
	InitialStock int       `json:"initial_stock"`
}

type PatchProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price"`
}

// PaymentWebhook is the provider callback body. Providers differ in field
// naming but every integrated one is bridged to this shape upstream.
type PaymentWebhook struct {
	Reference     string `json:"reference"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Amount        int64  `json:"amount"`
	Message       string `json:"message"`
}
