package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	"github.com/beanbound/beanbound/internal/domain/model"
	"github.com/beanbound/beanbound/internal/domain/provider"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// SubscriptionService drives customer-initiated subscription lifecycle
// changes. Provider calls happen before the local mutation so a provider
// failure leaves local state untouched.
type SubscriptionService struct {
	subscriptions  domainRepo.SubscriptionRepository
	users          domainRepo.UserRepository
	paymentMethods domainRepo.PaymentMethodRepository
	plans          domainRepo.PlanRepository
	payments       provider.PaymentProvider
	notifier       *Notifier
	logger         *zap.Logger

	now func() time.Time
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(
	subscriptions domainRepo.SubscriptionRepository,
	users domainRepo.UserRepository,
	paymentMethods domainRepo.PaymentMethodRepository,
	plans domainRepo.PlanRepository,
	payments provider.PaymentProvider,
	notifier *Notifier,
	logger *zap.Logger,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptions:  subscriptions,
		users:          users,
		paymentMethods: paymentMethods,
		plans:          plans,
		payments:       payments,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
	}
}

// Current returns the user's active or paused subscription, if any.
func (s *SubscriptionService) Current(ctx context.Context, userID uuid.UUID) (*model.Subscription, error) {
	sub, err := s.subscriptions.GetActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return sub, nil
}

// Pause pauses a subscription both with the provider and locally.
func (s *SubscriptionService) Pause(ctx context.Context, userID uuid.UUID, subscriptionID uint64) (*model.Subscription, error) {
	sub, err := s.ownedSubscription(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.ProviderSubscriptionID != nil {
		if err := s.payments.PauseSubscription(ctx, *sub.ProviderSubscriptionID); err != nil {
			return nil, fmt.Errorf("provider pause failed: %w", err)
		}
	}

	if err := sub.Pause(); err != nil {
		return nil, err
	}
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist pause: %w", err)
	}

	s.logger.Info("Subscription paused",
		zap.Uint64("subscription_id", sub.ID),
		zap.String("user_id", userID.String()))

	s.notifyUser(ctx, userID, func(u *model.User) { s.notifier.SubscriptionPaused(ctx, u) })
	return sub, nil
}

// Resume resumes a paused subscription. The next delivery is rescheduled from
// today rather than the stale pre-pause date.
func (s *SubscriptionService) Resume(ctx context.Context, userID uuid.UUID, subscriptionID uint64) (*model.Subscription, error) {
	sub, err := s.ownedSubscription(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.GetByID(ctx, sub.PlanID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		return nil, domainErrors.ErrPlanNotFound
	}

	if sub.ProviderSubscriptionID != nil {
		if err := s.payments.ResumeSubscription(ctx, *sub.ProviderSubscriptionID); err != nil {
			return nil, fmt.Errorf("provider resume failed: %w", err)
		}
	}

	if err := sub.Resume(plan.FrequencyDays, s.now()); err != nil {
		return nil, err
	}
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist resume: %w", err)
	}

	s.logger.Info("Subscription resumed",
		zap.Uint64("subscription_id", sub.ID),
		zap.Time("next_delivery_date", sub.NextDeliveryDate))

	s.notifyUser(ctx, userID, func(u *model.User) { s.notifier.SubscriptionResumed(ctx, u, sub) })
	return sub, nil
}

// Cancel cancels a subscription with the provider and locally.
func (s *SubscriptionService) Cancel(ctx context.Context, userID uuid.UUID, subscriptionID uint64) (*model.Subscription, error) {
	sub, err := s.ownedSubscription(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	if sub.ProviderSubscriptionID != nil {
		if err := s.payments.CancelSubscription(ctx, *sub.ProviderSubscriptionID); err != nil {
			return nil, fmt.Errorf("provider cancel failed: %w", err)
		}
	}

	if err := sub.Cancel(s.now()); err != nil {
		return nil, err
	}
	if err := s.subscriptions.Update(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to persist cancel: %w", err)
	}

	s.logger.Info("Subscription cancelled",
		zap.Uint64("subscription_id", sub.ID),
		zap.String("user_id", userID.String()))

	s.notifyUser(ctx, userID, func(u *model.User) { s.notifier.SubscriptionCancelled(ctx, u) })
	return sub, nil
}

// AttachPaymentMethod attaches a provider payment method to the user's
// customer record and stores the card metadata locally. A provider decline
// still stores the local copy so the customer sees the card they entered;
// the decline error is returned for the caller to surface.
func (s *SubscriptionService) AttachPaymentMethod(ctx context.Context, userID uuid.UUID, providerMethodID string) (*model.PaymentMethod, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domainErrors.ErrUserNotFound
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	var declined *provider.Error
	if err := s.payments.AttachPaymentMethod(ctx, customerID, providerMethodID); err != nil {
		var provErr *provider.Error
		if errors.As(err, &provErr) && provErr.Declined {
			declined = provErr
			s.logger.Warn("Card declined on attach, storing method locally anyway",
				zap.String("user_id", userID.String()),
				zap.String("decline_code", provErr.Code))
		} else {
			return nil, fmt.Errorf("provider attach failed: %w", err)
		}
	}

	local := &model.PaymentMethod{
		UserID:           userID,
		ProviderMethodID: providerMethodID,
	}
	if info, err := s.payments.GetPaymentMethod(ctx, providerMethodID); err == nil && info != nil {
		local.Brand = info.Brand
		local.Last4 = info.Last4
		local.ExpMonth = info.ExpMonth
		local.ExpYear = info.ExpYear
	}
	if existing, err := s.paymentMethods.DefaultForUser(ctx, userID); err == nil && existing == nil {
		local.IsDefault = true
	}

	if err := s.paymentMethods.Upsert(ctx, local); err != nil {
		return nil, fmt.Errorf("failed to store payment method: %w", err)
	}

	if declined != nil {
		return local, declined
	}
	return local, nil
}

// StartCheckout creates a hosted checkout session for a subscription plan.
func (s *SubscriptionService) StartCheckout(ctx context.Context, userID uuid.UUID, planID uint64, successURL, cancelURL string) (*provider.CheckoutSession, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, domainErrors.ErrUserNotFound
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil || !plan.IsActive {
		return nil, domainErrors.ErrPlanNotFound
	}

	session, err := s.payments.CreateCheckoutSession(ctx, &provider.CheckoutSessionRequest{
		Mode:          provider.CheckoutModeSubscription,
		CustomerEmail: user.Email,
		PriceID:       plan.ProviderPriceID,
		Quantity:      1,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
		Metadata: map[string]string{
			"checkout_type": string(provider.CheckoutModeSubscription),
			"user_id":       user.ID.String(),
			"plan_id":       fmt.Sprintf("%d", plan.ID),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	s.logger.Info("Checkout session created",
		zap.String("user_id", userID.String()),
		zap.Uint64("plan_id", planID),
		zap.String("session_id", session.ID))
	return session, nil
}

// ensureCustomer lazily registers the user with the provider.
func (s *SubscriptionService) ensureCustomer(ctx context.Context, user *model.User) (string, error) {
	if user.ProviderCustomerID != nil && *user.ProviderCustomerID != "" {
		return *user.ProviderCustomerID, nil
	}

	customerID, err := s.payments.CreateCustomer(ctx, user.Email, user.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create provider customer: %w", err)
	}
	if err := s.users.SetProviderCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("failed to store provider customer id: %w", err)
	}
	user.ProviderCustomerID = &customerID
	return customerID, nil
}

func (s *SubscriptionService) ownedSubscription(ctx context.Context, userID uuid.UUID, subscriptionID uint64) (*model.Subscription, error) {
	sub, err := s.subscriptions.GetByID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	if sub == nil || sub.UserID != userID {
		return nil, domainErrors.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *SubscriptionService) notifyUser(ctx context.Context, userID uuid.UUID, fn func(*model.User)) {
	if s.notifier == nil {
		return
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return
	}
	fn(user)
}
