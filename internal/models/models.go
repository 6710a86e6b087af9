package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusConfirmed         OrderStatus = "confirmed"
	OrderStatusShipped           OrderStatus = "shipped"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodMTNMoMo        PaymentMethod = "mtn_momo"
	PaymentMethodOrangeMoney    PaymentMethod = "orange_money"
	PaymentMethodMoovMoney      PaymentMethod = "moov_money"
	PaymentMethodWave           PaymentMethod = "wave"
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodBankTransfer   PaymentMethod = "bank_transfer"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodOther          PaymentMethod = "other"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Username     string    `gorm:"uniqueIndex;not null"     json:"username"`
	PasswordHash string    `gorm:"not null"                 json:"-"`
	Role         string    `gorm:"not null"                 json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
	Revoked   bool      `gorm:"default:false"       json:"revoked"`
}

type Store struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	OwnerID   uuid.UUID `gorm:"type:uuid;index;not null" json:"owner_id"`
	Name      string    `gorm:"not null"                 json:"name"`
	City      string    `json:"city"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	StoreID     uuid.UUID `gorm:"type:uuid;index;not null" json:"store_id"`
	Name        string    `gorm:"not null"                 json:"name"`
	Description string    `json:"description"`
	// Price in minor currency units (XOF has none, so whole francs).
	Price     int64     `gorm:"not null"                 json:"price"`
	CreatedAt time.Time `json:"created_at"`
}

// InventoryRecord is the authoritative stock counter for one product.
// Available never goes below zero; reservation moves quantity from
// available to reserved, delivery consumes it from reserved.
type InventoryRecord struct {
	ProductID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"product_id"`
	Available         int       `gorm:"not null;check:available>=0" json:"available"`
	Reserved          int       `gorm:"not null;check:reserved>=0"  json:"reserved"`
	LowStockThreshold int       `gorm:"not null;default:5"   json:"low_stock_threshold"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type OrderItem struct {
	ID        uint      `gorm:"primaryKey"               json:"id"`
	OrderID   uuid.UUID `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null"       json:"product_id"`
	Quantity  int       `gorm:"not null;check:quantity>0" json:"quantity"`
	// UnitPrice is snapshotted from the product at order time and never
	// follows later price changes.
	UnitPrice int64 `gorm:"not null" json:"unit_price"`
	LineTotal int64 `gorm:"not null" json:"line_total"`
}

type Order struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey"     json:"id"`
	Number          string      `gorm:"uniqueIndex;not null"     json:"number"`
	BuyerID         uuid.UUID   `gorm:"type:uuid;index;not null" json:"buyer_id"`
	StoreID         uuid.UUID   `gorm:"type:uuid;index;not null" json:"store_id"`
	Items           []OrderItem `json:"items"`
	ShippingAddress string      `gorm:"not null"                 json:"shipping_address"`
	ShippingFee     int64       `gorm:"not null"                 json:"shipping_fee"`
	Total           int64       `gorm:"not null"                 json:"total"`
	Status          OrderStatus `gorm:"not null;index"           json:"status"`
	CancelReason    string      `json:"cancel_reason,omitempty"`
	TrackingNumber  string      `json:"tracking_number,omitempty"`
	Carrier         string      `json:"carrier,omitempty"`
	Rating          *int        `json:"rating,omitempty"`
	RatingComment   string      `json:"rating_comment,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
	ConfirmedAt     *time.Time  `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time  `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time  `json:"cancelled_at,omitempty"`
	RatedAt         *time.Time  `json:"rated_at,omitempty"`
}

type Payment struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"       json:"id"`
	Reference string        `gorm:"uniqueIndex;not null"       json:"reference"`
	OrderID   uuid.UUID     `gorm:"type:uuid;uniqueIndex;not null" json:"order_id"`
	BuyerID   uuid.UUID     `gorm:"type:uuid;index;not null"   json:"buyer_id"`
	StoreID   uuid.UUID     `gorm:"type:uuid;index;not null"   json:"store_id"`
	Method    PaymentMethod `gorm:"not null"                   json:"method"`
	Amount    int64         `gorm:"not null"                   json:"amount"`
	Currency  string        `gorm:"not null"                   json:"currency"`
	FeeAmount int64         `gorm:"not null"                   json:"fee_amount"`
	NetAmount int64         `gorm:"not null"                   json:"net_amount"`
	Status    PaymentStatus `gorm:"not null;index"             json:"status"`
	// ExternalID is the provider-assigned transaction id reported by the
	// webhook that settled this payment.
	ExternalID      string     `json:"external_id,omitempty"`
	ProviderPayload string     `json:"provider_payload,omitempty"`
	FailureReason   string     `json:"failure_reason,omitempty"`
	RefundAmount    int64      `json:"refund_amount"`
	RefundReason    string     `json:"refund_reason,omitempty"`
	RetryCount      int        `gorm:"not null;default:0"      json:"retry_count"`
	InitiatedAt     time.Time  `gorm:"not null"                json:"initiated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	FailedAt        *time.Time `json:"failed_at,omitempty"`
	ExpiredAt       *time.Time `json:"expired_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`
}
