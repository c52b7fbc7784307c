package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// SubscriptionRepository stores the authoritative local subscription records.
type SubscriptionRepository interface {
	// GetByID retrieves a subscription by internal ID, plan preloaded.
	// Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uint64) (*model.Subscription, error)

	// GetByProviderID retrieves a subscription by provider subscription ID.
	// Returns (nil, nil) when absent.
	GetByProviderID(ctx context.Context, providerSubscriptionID string) (*model.Subscription, error)

	// GetActiveForUser retrieves the user's current non-cancelled
	// subscription. Returns (nil, nil) when absent.
	GetActiveForUser(ctx context.Context, userID uuid.UUID) (*model.Subscription, error)

	// Create persists a new subscription record.
	Create(ctx context.Context, sub *model.Subscription) error

	// Update persists status, counters and delivery-date changes.
	Update(ctx context.Context, sub *model.Subscription) error

	// ListDue returns active subscriptions whose next delivery date is on or
	// before asOf, plans preloaded.
	ListDue(ctx context.Context, asOf time.Time) ([]*model.Subscription, error)
}
