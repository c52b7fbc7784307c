package provider

import "context"

// PaymentProvider is the narrow boundary to the external payment provider.
// Local code never talks to the provider SDK directly outside the
// infrastructure implementation of this interface.
type PaymentProvider interface {
	// CreateCustomer registers a customer with the provider and returns the
	// provider customer ID.
	CreateCustomer(ctx context.Context, email, name string) (string, error)

	// CreateCheckoutSession starts a hosted checkout flow.
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)

	// AttachPaymentMethod attaches a payment method to a customer. A card
	// decline surfaces as *Error with Declined set; callers may still store
	// the method locally in that case.
	AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error

	// DetachPaymentMethod removes a payment method from a customer.
	DetachPaymentMethod(ctx context.Context, paymentMethodID string) error

	// GetPaymentMethod retrieves card metadata for a payment method.
	GetPaymentMethod(ctx context.Context, paymentMethodID string) (*PaymentMethodInfo, error)

	// PauseSubscription stops billing collection for a subscription.
	PauseSubscription(ctx context.Context, subscriptionID string) error

	// ResumeSubscription restarts billing collection for a subscription.
	ResumeSubscription(ctx context.Context, subscriptionID string) error

	// CancelSubscription cancels a subscription with the provider.
	CancelSubscription(ctx context.Context, subscriptionID string) error
}

// CheckoutMode selects what a checkout session purchases.
type CheckoutMode string

const (
	CheckoutModeSubscription CheckoutMode = "subscription"
	CheckoutModeOneTime      CheckoutMode = "one_time"
)

// CheckoutSessionRequest describes a hosted checkout session to create.
// Subscription mode references a provider price; one-time mode carries ad-hoc
// line items priced from the local catalog.
type CheckoutSessionRequest struct {
	Mode          CheckoutMode
	CustomerEmail string
	PriceID       string
	Quantity      int64
	Items         []CheckoutItem
	SuccessURL    string
	CancelURL     string
	// Metadata rides along on the session and comes back on the
	// checkout.session.completed webhook.
	Metadata map[string]string
}

// CheckoutItem is one ad-hoc line in a one-time checkout.
type CheckoutItem struct {
	Name        string
	AmountCents int64
	Quantity    int64
}

// CheckoutSession is the provider's handle for a started checkout flow.
type CheckoutSession struct {
	ID  string
	URL string
}

// PaymentMethodInfo is card metadata retrieved from the provider.
type PaymentMethodInfo struct {
	ID       string
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
	Customer string
}

// Error is the single provider-error type. Declined distinguishes a known
// card failure from a generic transport or API failure so callers can decide
// recover-locally vs surface-to-user.
type Error struct {
	Code     string
	Message  string
	Declined bool
}

func (e *Error) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// EventKind is the closed set of webhook event kinds the platform understands.
// Truly unknown provider event types parse to EventUnknown and are
// acknowledged without processing.
type EventKind string

const (
	EventCheckoutCompleted     EventKind = "checkout.session.completed"
	EventSubscriptionCreated   EventKind = "customer.subscription.created"
	EventSubscriptionUpdated   EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted   EventKind = "customer.subscription.deleted"
	EventInvoicePaid           EventKind = "invoice.payment_succeeded"
	EventInvoicePaymentFailed  EventKind = "invoice.payment_failed"
	EventPaymentMethodAttached EventKind = "payment_method.attached"
	EventUnknown               EventKind = "unknown"
)

// ParseEventKind maps a raw provider event type onto the closed kind set.
func ParseEventKind(eventType string) EventKind {
	switch k := EventKind(eventType); k {
	case EventCheckoutCompleted, EventSubscriptionCreated, EventSubscriptionUpdated,
		EventSubscriptionDeleted, EventInvoicePaid, EventInvoicePaymentFailed,
		EventPaymentMethodAttached:
		return k
	}
	return EventUnknown
}
