// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Status represents the fulfilment status of an order
type Status string

const (
	StatusPlaced    Status = "placed"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus represents payment reconciliation state
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// PaymentMethod represents how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodPrepaid PaymentMethod = "prepaid"
)

// ParseStatus validates a fulfilment status string
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPlaced, StatusShipped, StatusDelivered, StatusCancelled:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

// Order represents one checkout attempt. Items, customer, address and coupon
// fields are snapshots frozen at creation time and never re-derived.
type Order struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	OrderNumber   string        `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID        *uint         `gorm:"index" json:"user_id"` // Nullable for guest orders
	CustomerName  string        `gorm:"size:255" json:"customer_name"`
	CustomerEmail string        `gorm:"not null;size:255" json:"customer_email"`
	CustomerPhone string        `gorm:"size:20" json:"customer_phone"`
	Status        Status        `gorm:"not null;default:'placed'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'pending'" json:"payment_status"`
	PaymentMethod PaymentMethod `gorm:"not null;size:20" json:"payment_method"`

	// Financial snapshot, in minor units
	SubtotalAmount int64  `gorm:"not null" json:"subtotal_amount"`
	DiscountAmount int64  `gorm:"default:0" json:"discount_amount"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	Currency       string `gorm:"size:3;default:'INR'" json:"currency"`

	// Coupon snapshot
	Coupon CouponSnapshot `gorm:"embedded;embeddedPrefix:coupon_" json:"coupon"`

	// Shipping snapshot
	ShippingAddress Address `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`

	// Gateway reconciliation. RazorpayOrderID is the gateway's own record of
	// the expected payment; RazorpayPaymentID is set at most once, by the
	// winner of the verify/webhook race.
	RazorpayOrderID   string `gorm:"index;size:64" json:"razorpay_order_id,omitempty"`
	RazorpayPaymentID string `gorm:"size:64" json:"razorpay_payment_id,omitempty"`
	FailureReason     string `gorm:"size:255" json:"failure_reason,omitempty"`

	// Timestamps
	PaidAt      *time.Time     `json:"paid_at"`
	ShippedAt   *time.Time     `json:"shipped_at"`
	DeliveredAt *time.Time     `json:"delivered_at"`
	CancelledAt *time.Time     `json:"cancelled_at"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"items"`
}

// OrderItem is a fully priced line snapshot
type OrderItem struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	OrderID          uint      `gorm:"not null;index" json:"order_id"`
	ProductID        uint      `gorm:"not null;index" json:"product_id"`
	ProductVariantID *uint     `gorm:"index" json:"product_variant_id"`
	SKU              string    `gorm:"size:100" json:"sku"`
	Name             string    `gorm:"not null;size:255" json:"name"`
	Quantity         int       `gorm:"not null" json:"quantity"`
	Price            int64     `gorm:"not null" json:"price"`       // Unit price in minor units
	TotalPrice       int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	Image            string    `gorm:"size:500" json:"image"`
	SelectedOptions  string    `gorm:"type:text" json:"selected_options"` // JSON map
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CouponSnapshot freezes the applied coupon into the order
type CouponSnapshot struct {
	Code           string  `gorm:"size:50" json:"code,omitempty"`
	Type           string  `gorm:"size:20" json:"type,omitempty"`
	Value          float64 `json:"value,omitempty"`
	DiscountAmount int64   `json:"discount_amount,omitempty"`
}

// Address represents the shipping address snapshot (embedded in Order)
type Address struct {
	Line1   string `gorm:"size:255" json:"line1"`
	Line2   string `gorm:"size:255" json:"line2"`
	City    string `gorm:"size:100" json:"city"`
	State   string `gorm:"size:100" json:"state"`
	Pincode string `gorm:"size:20" json:"pincode"`
	Country string `gorm:"size:2" json:"country"`
	Phone   string `gorm:"size:20" json:"phone"`
}

// TableName overrides
func (Order) TableName() string     { return "orders" }
func (OrderItem) TableName() string { return "order_items" }

// Business methods for Order

// IsPaid reports whether the payment has been reconciled
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// CanBeCancelled checks if the order can still be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status == StatusPlaced || o.Status == StatusShipped
}

// GetFormattedTotal returns the total amount as a major-unit float
func (o *Order) GetFormattedTotal() float64 {
	return float64(o.TotalAmount) / 100
}
