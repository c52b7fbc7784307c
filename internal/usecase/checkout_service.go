package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	"github.com/beanbound/beanbound/internal/domain/provider"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// CartItem is one requested line of a one-time purchase.
type CartItem struct {
	ProductID uint64 `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

// CheckoutService starts one-time purchase checkout flows. The cart is
// snapshotted into session metadata; the webhook path prices the order from
// the catalog when the session completes.
type CheckoutService struct {
	users    domainRepo.UserRepository
	products domainRepo.ProductRepository
	payments provider.PaymentProvider
	logger   *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(users domainRepo.UserRepository, products domainRepo.ProductRepository, payments provider.PaymentProvider, logger *zap.Logger) *CheckoutService {
	return &CheckoutService{
		users:    users,
		products: products,
		payments: payments,
		logger:   logger,
	}
}

// StartOneTimeCheckout creates a hosted checkout session for a cart.
func (s *CheckoutService) StartOneTimeCheckout(ctx context.Context, userID uuid.UUID, cart []CartItem, successURL, cancelURL string) (*provider.CheckoutSession, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domainErrors.ErrUserNotFound
	}

	var items []provider.CheckoutItem
	for _, line := range cart {
		if line.Quantity <= 0 {
			continue
		}
		product, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to load product: %w", err)
		}
		if product == nil || !product.IsActive || !product.InStock() {
			return nil, domainErrors.ErrNoProductsAvailable
		}
		items = append(items, provider.CheckoutItem{
			Name:        product.Name,
			AmountCents: product.PriceCents,
			Quantity:    int64(line.Quantity),
		})
	}
	if len(items) == 0 {
		return nil, domainErrors.ErrNoProductsAvailable
	}

	snapshot, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot cart: %w", err)
	}

	session, err := s.payments.CreateCheckoutSession(ctx, &provider.CheckoutSessionRequest{
		Mode:          provider.CheckoutModeOneTime,
		CustomerEmail: user.Email,
		Items:         items,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			"checkout_type": string(provider.CheckoutModeOneTime),
			"user_id":       user.ID.String(),
			"cart":          string(snapshot),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("One-time checkout session created",
		zap.String("user_id", userID.String()),
		zap.Int("items", len(items)),
		zap.String("session_id", session.ID))
	return session, nil
}
