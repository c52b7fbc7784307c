package errors

import "errors"

var (
	// ErrSubscriptionNotFound indicates that the specified subscription was not found
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInvalidTransition indicates a subscription status change that the
	// state machine does not allow; callers treat it as a no-op domain error
	ErrInvalidTransition = errors.New("invalid subscription status transition")

	// ErrSubscriptionNotActive makes an ineligible subscription skippable by
	// the delivery sweep rather than fatal
	ErrSubscriptionNotActive = errors.New("subscription is not active")

	// ErrNoShippingAddress indicates the subscription has no shipping address on file
	ErrNoShippingAddress = errors.New("subscription has no shipping address")

	// ErrNoPaymentMethod indicates the subscription has no payment method on file
	ErrNoPaymentMethod = errors.New("subscription has no payment method")

	// ErrNoProductsAvailable indicates no active, in-stock products could be
	// selected for an order
	ErrNoProductsAvailable = errors.New("no active in-stock products available")

	// ErrOrderNotFound indicates that the specified order was not found
	ErrOrderNotFound = errors.New("order not found")

	// ErrUserNotFound indicates that the specified user was not found
	ErrUserNotFound = errors.New("user not found")

	// ErrPlanNotFound indicates that the specified plan was not found
	ErrPlanNotFound = errors.New("plan not found")
)

// IsIneligibility reports whether err is one of the order-generation
// eligibility failures. These are customer-data problems, not system
// failures, so the scheduler logs them at a lower severity.
func IsIneligibility(err error) bool {
	return errors.Is(err, ErrSubscriptionNotActive) ||
		errors.Is(err, ErrNoShippingAddress) ||
		errors.Is(err, ErrNoPaymentMethod)
}
