package repository

import (
	"context"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// OrderRepository stores fulfillment orders and their line items.
type OrderRepository interface {
	// Create persists an order with its items.
	Create(ctx context.Context, order *model.Order) error

	// CreateForDelivery persists a recurring order and advances the owning
	// subscription's next delivery date in one transaction, so a crash
	// between the two cannot produce an order without a date advance.
	CreateForDelivery(ctx context.Context, order *model.Order, sub *model.Subscription) error

	// GetBySubscriptionInvoice finds the order generated for a given billing
	// cycle. Returns (nil, nil) when absent.
	GetBySubscriptionInvoice(ctx context.Context, subscriptionID uint64, invoiceID string) (*model.Order, error)

	// GetByNumber retrieves an order by its order number. Returns (nil, nil)
	// when absent.
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error)
}
