package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// UserRepository reads customer accounts.
type UserRepository interface {
	// GetByID retrieves a user. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)

	// GetByEmail retrieves a user by email. Returns (nil, nil) when absent.
	GetByEmail(ctx context.Context, email string) (*model.User, error)

	// GetByProviderCustomerID maps a provider customer back to the local
	// account. Returns (nil, nil) when absent.
	GetByProviderCustomerID(ctx context.Context, customerID string) (*model.User, error)

	// SetProviderCustomerID stores the provider customer ID on a user.
	SetProviderCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error
}

// AddressRepository reads shipping addresses.
type AddressRepository interface {
	// GetByID retrieves an address. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uint64) (*model.Address, error)

	// FirstForUser returns the user's default address, falling back to the
	// oldest one. Returns (nil, nil) when the user has no addresses.
	FirstForUser(ctx context.Context, userID uuid.UUID) (*model.Address, error)
}

// PaymentMethodRepository stores local copies of provider payment-method
// metadata.
type PaymentMethodRepository interface {
	// GetByID retrieves a payment method. Returns (nil, nil) when absent.
	GetByID(ctx context.Context, id uint64) (*model.PaymentMethod, error)

	// DefaultForUser returns the user's default payment method, falling back
	// to the oldest one. Returns (nil, nil) when the user has none.
	DefaultForUser(ctx context.Context, userID uuid.UUID) (*model.PaymentMethod, error)

	// Upsert creates or refreshes the local copy keyed by the provider
	// payment-method ID.
	Upsert(ctx context.Context, pm *model.PaymentMethod) error
}
