package model

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderType distinguishes recurring subscription orders from one-time
// storefront purchases.
type OrderType string

const (
	OrderTypeSubscription OrderType = "subscription"
	OrderTypeOneTime      OrderType = "one_time"
)

// Scan implements sql.Scanner interface
func (o *OrderType) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*o = OrderType(v)
	case []byte:
		*o = OrderType(v)
	default:
		*o = OrderTypeOneTime
	}
	return nil
}

// Value implements driver.Valuer interface
func (o OrderType) Value() (driver.Value, error) {
	return string(o), nil
}

// OrderStatus represents the fulfillment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusRoasting   OrderStatus = "roasting"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (o *OrderStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*o = OrderStatus(v)
	case []byte:
		*o = OrderStatus(v)
	default:
		*o = OrderStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (o OrderStatus) Value() (driver.Value, error) {
	return string(o), nil
}

// Order is a fulfillment order. Monetary amounts are integer minor-currency
// units. Shipping details are copied inline at creation time so later address
// edits do not retroactively alter historical orders.
type Order struct {
	ID             uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber    string      `gorm:"unique;not null;size:40" json:"order_number"`
	UserID         uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	SubscriptionID *uint64     `gorm:"index" json:"subscription_id,omitempty"`
	Type           OrderType   `gorm:"type:order_type;not null;default:'one_time'" json:"type"`
	Status         OrderStatus `gorm:"type:order_status;not null;default:'pending';index" json:"status"`

	SubtotalCents int64 `gorm:"not null" json:"subtotal_cents"`
	ShippingCents int64 `gorm:"not null" json:"shipping_cents"`
	TaxCents      int64 `gorm:"not null" json:"tax_cents"`
	TotalCents    int64 `gorm:"not null" json:"total_cents"`

	// Shipping snapshot
	ShipRecipient  string `gorm:"size:200" json:"ship_recipient"`
	ShipStreet     string `gorm:"size:200" json:"ship_street"`
	ShipCity       string `gorm:"size:100" json:"ship_city"`
	ShipRegion     string `gorm:"size:100" json:"ship_region"`
	ShipPostalCode string `gorm:"size:20" json:"ship_postal_code"`
	ShipCountry    string `gorm:"size:2" json:"ship_country"`

	// ProviderInvoiceID links a recurring order to the billing cycle that
	// paid for it. Paired with SubscriptionID in a unique index to keep order
	// generation idempotent per invoice.
	ProviderInvoiceID *string `gorm:"size:100" json:"provider_invoice_id,omitempty"`

	CreatedAt time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:now()" json:"updated_at"`

	// Relations
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line item owned exclusively by its order.
type OrderItem struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     uint64    `gorm:"not null;index" json:"order_id"`
	ProductID   uint64    `gorm:"not null" json:"product_id"`
	ProductName string    `gorm:"not null;size:200" json:"product_name"`
	Quantity    int       `gorm:"not null" json:"quantity"`
	PriceCents  int64     `gorm:"not null" json:"price_cents"`
	CreatedAt   time.Time `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (OrderItem) TableName() string {
	return "order_items"
}

// NewOrderNumber generates a human-readable order number of the form
// ORD-<unix-epoch>-<6-hex-uppercase>.
func NewOrderNumber(now time.Time) string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing is effectively unreachable; fall back to time.
		return fmt.Sprintf("ORD-%d-%06X", now.Unix(), now.UnixNano()&0xFFFFFF)
	}
	return fmt.Sprintf("ORD-%d-%s", now.Unix(), strings.ToUpper(hex.EncodeToString(buf)))
}

// ComputeTotals recomputes the monetary fields from the line items. Totals
// are never trusted from external input.
func (o *Order) ComputeTotals(shippingCents, taxCents int64) {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += int64(item.Quantity) * item.PriceCents
	}
	o.SubtotalCents = subtotal
	o.ShippingCents = shippingCents
	o.TaxCents = taxCents
	o.TotalCents = subtotal + shippingCents + taxCents
}

// SnapshotAddress copies the shipping address fields onto the order.
func (o *Order) SnapshotAddress(a *Address) {
	if a == nil {
		return
	}
	o.ShipRecipient = a.Recipient
	o.ShipStreet = a.Street
	o.ShipCity = a.City
	o.ShipRegion = a.Region
	o.ShipPostalCode = a.PostalCode
	o.ShipCountry = a.Country
}
