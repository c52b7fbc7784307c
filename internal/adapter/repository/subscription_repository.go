package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beanbound/beanbound/internal/domain/model"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) domainRepo.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves a subscription by internal ID
func (r *subscriptionRepository) GetByID(ctx context.Context, id uint64) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		First(&sub, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by ID",
			zap.Uint64("subscription_id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetByProviderID retrieves a subscription by provider subscription ID
func (r *subscriptionRepository) GetByProviderID(ctx context.Context, providerSubscriptionID string) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("provider_subscription_id = ?", providerSubscriptionID).
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get subscription by provider ID",
			zap.String("provider_subscription_id", providerSubscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// GetActiveForUser retrieves the user's current non-cancelled subscription
func (r *subscriptionRepository) GetActiveForUser(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("user_id = ? AND status <> ?", userID, model.SubscriptionStatusCancelled).
		Order("created_at DESC").
		First(&sub).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get active subscription for user",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return &sub, nil
}

// Create persists a new subscription record
func (r *subscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	err := r.db.WithContext(ctx).Create(sub).Error
	if err != nil {
		r.logger.Error("Failed to create subscription",
			zap.String("user_id", sub.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// Update persists status, counter and delivery-date changes
func (r *subscriptionRepository) Update(ctx context.Context, sub *model.Subscription) error {
	result := r.db.WithContext(ctx).
		Model(&model.Subscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":               sub.Status,
			"next_delivery_date":   sub.NextDeliveryDate,
			"failed_payment_count": sub.FailedPaymentCount,
			"cancelled_at":         sub.CancelledAt,
			"shipping_address_id":  sub.ShippingAddressID,
			"payment_method_id":    sub.PaymentMethodID,
			"updated_at":           time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to update subscription",
			zap.Uint64("subscription_id", sub.ID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to update subscription: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("subscription not found: %d", sub.ID)
	}

	return nil
}

// ListDue returns active subscriptions due for delivery as of the given time
func (r *subscriptionRepository) ListDue(ctx context.Context, asOf time.Time) ([]*model.Subscription, error) {
	var subs []*model.Subscription

	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where("status = ? AND next_delivery_date <= ?", model.SubscriptionStatusActive, asOf).
		Order("next_delivery_date ASC").
		Find(&subs).Error

	if err != nil {
		r.logger.Error("Failed to list due subscriptions",
			zap.Time("as_of", asOf),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list due subscriptions: %w", err)
	}

	return subs, nil
}
