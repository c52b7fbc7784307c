package repository

import (
	"context"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// ProductRepository reads and adjusts the coffee catalog.
type ProductRepository interface {
	// GetByID retrieves a product. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uint64) (*model.Product, error)

	// ListActiveInStock returns every active product with stock remaining.
	ListActiveInStock(ctx context.Context) ([]*model.Product, error)

	// DecrementStock reduces stock for a product, never below zero.
	DecrementStock(ctx context.Context, productID uint64, quantity int) error
}

// PlanRepository reads subscription plans.
type PlanRepository interface {
	// GetByID retrieves a plan. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uint64) (*model.Plan, error)

	// GetByProviderPriceID maps a provider price back to a plan. Returns
	// (nil, nil) when absent.
	GetByProviderPriceID(ctx context.Context, priceID string) (*model.Plan, error)

	// ListActive returns plans available for purchase.
	ListActive(ctx context.Context) ([]*model.Plan, error)
}
