package stripe

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"
	"github.com/stripe/stripe-go/v79/paymentmethod"
	"github.com/stripe/stripe-go/v79/subscription"
	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/domain/provider"
)

// Provider implements the PaymentProvider interface against the Stripe API.
type Provider struct {
	logger *zap.Logger
}

// NewProvider creates a new Stripe payment provider
func NewProvider(secretKey string, logger *zap.Logger) *Provider {
	stripe.Key = secretKey
	return &Provider{logger: logger}
}

// CreateCustomer registers a customer with Stripe
func (p *Provider) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	cust, err := customer.New(params)
	if err != nil {
		return "", p.wrapError(err, "create customer")
	}

	p.logger.Info("Stripe customer created",
		zap.String("customer_id", cust.ID),
		zap.String("email", email))
	return cust.ID, nil
}

// CreateCheckoutSession starts a hosted checkout flow
func (p *Provider) CreateCheckoutSession(ctx context.Context, req *provider.CheckoutSessionRequest) (*provider.CheckoutSession, error) {
	mode := stripe.CheckoutSessionModePayment
	if req.Mode == provider.CheckoutModeSubscription {
		mode = stripe.CheckoutSessionModeSubscription
	}

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(mode)),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		CustomerEmail: stripe.String(req.CustomerEmail),
	}
	if req.PriceID != "" {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(req.Quantity),
		})
	}
	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("usd"),
				UnitAmount: stripe.Int64(item.AmountCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(item.Name),
				},
			},
			Quantity: stripe.Int64(item.Quantity),
		})
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	// Mirror the metadata onto the subscription so subscription lifecycle
	// events carry it too, not just checkout.session.completed.
	if mode == stripe.CheckoutSessionModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: req.Metadata,
		}
	}

	sess, err := session.New(params)
	if err != nil {
		return nil, p.wrapError(err, "create checkout session")
	}

	return &provider.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// AttachPaymentMethod attaches a payment method to a customer
func (p *Provider) AttachPaymentMethod(ctx context.Context, customerID, paymentMethodID string) error {
	params := &stripe.PaymentMethodAttachParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	if _, err := paymentmethod.Attach(paymentMethodID, params); err != nil {
		return p.wrapError(err, "attach payment method")
	}
	return nil
}

// DetachPaymentMethod removes a payment method from its customer
func (p *Provider) DetachPaymentMethod(ctx context.Context, paymentMethodID string) error {
	params := &stripe.PaymentMethodDetachParams{}
	params.Context = ctx

	if _, err := paymentmethod.Detach(paymentMethodID, params); err != nil {
		return p.wrapError(err, "detach payment method")
	}
	return nil
}

// GetPaymentMethod retrieves card metadata for a payment method
func (p *Provider) GetPaymentMethod(ctx context.Context, paymentMethodID string) (*provider.PaymentMethodInfo, error) {
	params := &stripe.PaymentMethodParams{}
	params.Context = ctx

	pm, err := paymentmethod.Get(paymentMethodID, params)
	if err != nil {
		return nil, p.wrapError(err, "get payment method")
	}

	info := &provider.PaymentMethodInfo{ID: pm.ID}
	if pm.Customer != nil {
		info.Customer = pm.Customer.ID
	}
	if pm.Card != nil {
		info.Brand = string(pm.Card.Brand)
		info.Last4 = pm.Card.Last4
		info.ExpMonth = int(pm.Card.ExpMonth)
		info.ExpYear = int(pm.Card.ExpYear)
	}
	return info, nil
}

// PauseSubscription voids collection on a subscription without cancelling it
func (p *Provider) PauseSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		PauseCollection: &stripe.SubscriptionPauseCollectionParams{
			Behavior: stripe.String("void"),
		},
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return p.wrapError(err, "pause subscription")
	}
	return nil
}

// ResumeSubscription clears the collection pause on a subscription
func (p *Provider) ResumeSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	// Clearing pause_collection requires sending an empty value.
	params.AddExtra("pause_collection", "")

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return p.wrapError(err, "resume subscription")
	}
	return nil
}

// CancelSubscription cancels a subscription immediately
func (p *Provider) CancelSubscription(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	if _, err := subscription.Cancel(subscriptionID, params); err != nil {
		return p.wrapError(err, "cancel subscription")
	}
	return nil
}

// wrapError maps a Stripe API error onto the provider error type.
func (p *Provider) wrapError(err error, op string) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		declined := stripeErr.Type == stripe.ErrorTypeCard ||
			stripeErr.Code == stripe.ErrorCodeCardDeclined ||
			stripeErr.Code == stripe.ErrorCodeExpiredCard

		p.logger.Warn("Stripe API error",
			zap.String("op", op),
			zap.String("code", string(stripeErr.Code)),
			zap.Bool("declined", declined))

		return &provider.Error{
			Code:     string(stripeErr.Code),
			Message:  stripeErr.Msg,
			Declined: declined,
		}
	}
	return fmt.Errorf("stripe %s failed: %w", op, err)
}
