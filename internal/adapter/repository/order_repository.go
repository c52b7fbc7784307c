package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beanbound/beanbound/internal/domain/model"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

type orderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB, logger *zap.Logger) domainRepo.OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

// Create persists an order with its items
func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	err := r.db.WithContext(ctx).Create(order).Error
	if err != nil {
		r.logger.Error("Failed to create order",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create order: %w", err)
	}

	return nil
}

// CreateForDelivery persists a recurring order and advances the owning
// subscription's next delivery date in one transaction.
func (r *orderRepository) CreateForDelivery(ctx context.Context, order *model.Order, sub *model.Subscription) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		result := tx.Model(&model.Subscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]interface{}{
				"next_delivery_date": sub.NextDeliveryDate,
				"updated_at":         time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to advance next delivery date: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("subscription not found: %d", sub.ID)
		}

		return nil
	})

	if err != nil {
		r.logger.Error("Failed to create delivery order",
			zap.String("order_number", order.OrderNumber),
			zap.Uint64("subscription_id", sub.ID),
			zap.Error(err))
		return err
	}

	return nil
}

// GetBySubscriptionInvoice finds the order generated for a billing cycle
func (r *orderRepository) GetBySubscriptionInvoice(ctx context.Context, subscriptionID uint64, invoiceID string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("subscription_id = ? AND provider_invoice_id = ?", subscriptionID, invoiceID).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get order by subscription invoice",
			zap.Uint64("subscription_id", subscriptionID),
			zap.String("invoice_id", invoiceID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

// GetByNumber retrieves an order by its order number
func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get order by number",
			zap.String("order_number", orderNumber),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}
