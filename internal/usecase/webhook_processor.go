package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/domain/model"
	"github.com/beanbound/beanbound/internal/domain/provider"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// WebhookStores bundles the repositories the webhook processor mutates.
type WebhookStores struct {
	Events         domainRepo.WebhookEventRepository
	Subscriptions  domainRepo.SubscriptionRepository
	Orders         domainRepo.OrderRepository
	Products       domainRepo.ProductRepository
	Plans          domainRepo.PlanRepository
	Users          domainRepo.UserRepository
	Addresses      domainRepo.AddressRepository
	PaymentMethods domainRepo.PaymentMethodRepository
}

// WebhookProcessorConfig holds the webhook-path tunables.
type WebhookProcessorConfig struct {
	// WebhookSecret verifies event signatures. An empty secret outside
	// production parses events unauthenticated; that is a development
	// convenience only and is refused in production.
	WebhookSecret string
	Production    bool

	// FailedPaymentThreshold flags a subscription for operator review.
	FailedPaymentThreshold int

	// AutoCancelAfterFailures cancels at the threshold. Off unless the
	// operator explicitly opts in.
	AutoCancelAfterFailures bool
}

// ProcessingResult is the outcome of one webhook delivery.
type ProcessingResult struct {
	EventID   string
	Kind      provider.EventKind
	Duplicate bool
	// Rejected marks a signature or parse failure; no state was touched.
	Rejected bool
	// Err is a handler failure. The event is still marked processed so a
	// systematically-failing handler cannot cause a reprocessing storm, but
	// the provider is informed via the error response on first delivery.
	Err error
}

// OK reports whether the delivery should be acknowledged with success.
func (r ProcessingResult) OK() bool {
	return !r.Rejected && r.Err == nil
}

// WebhookProcessor is the single entry point for provider webhook events:
// authenticate, gate on the event store, dispatch by kind, always mark
// processed.
type WebhookProcessor struct {
	cfg      WebhookProcessorConfig
	stores   WebhookStores
	tasks    TaskEnqueuer
	notifier *Notifier
	logger   *zap.Logger

	now func() time.Time
}

// NewWebhookProcessor creates a new webhook processor
func NewWebhookProcessor(cfg WebhookProcessorConfig, stores WebhookStores, tasks TaskEnqueuer, notifier *Notifier, logger *zap.Logger) *WebhookProcessor {
	if cfg.FailedPaymentThreshold <= 0 {
		cfg.FailedPaymentThreshold = 3
	}
	return &WebhookProcessor{
		cfg:      cfg,
		stores:   stores,
		tasks:    tasks,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Handle processes one raw webhook delivery.
func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, signature string) ProcessingResult {
	event, err := p.parseEvent(payload, signature)
	if err != nil {
		p.logger.Error("Webhook rejected", zap.Error(err))
		return ProcessingResult{Rejected: true, Err: err}
	}

	kind := provider.ParseEventKind(string(event.Type))
	result := ProcessingResult{EventID: event.ID, Kind: kind}

	p.logger.Info("Webhook event received",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	// Idempotency gate. If the store itself is unreachable we fail open:
	// processing anyway risks a few duplicate side effects, which beats
	// silently dropping revenue-bearing events.
	gated := true
	isNew, record, err := p.stores.Events.RecordIfNew(ctx, event.ID, string(event.Type), event.Data.Raw)
	if err != nil {
		p.logger.Error("Event store unavailable, processing without replay protection",
			zap.String("event_id", event.ID),
			zap.Error(err))
		gated = false
	} else if !isNew && record.Processed() {
		p.logger.Info("Duplicate webhook delivery, acknowledging without processing",
			zap.String("event_id", event.ID))
		result.Duplicate = true
		return result
	}

	if kind == provider.EventUnknown {
		// Never error on types we don't understand or the provider will
		// retry forever.
		p.logger.Info("Acknowledging unknown webhook event type",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	} else if err := p.dispatch(ctx, kind, event); err != nil {
		p.logger.Error("Webhook handler failed",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		result.Err = err
	}

	// Always mark processed, handler failure included, so a permanently
	// broken handler does not trigger a retry storm for this event.
	if gated {
		if err := p.stores.Events.MarkProcessed(ctx, event.ID); err != nil {
			p.logger.Error("Failed to mark webhook event processed",
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	return result
}

// parseEvent verifies the signature and decodes the event. Without a
// configured secret the event is parsed unauthenticated, which is refused in
// production.
func (p *WebhookProcessor) parseEvent(payload []byte, signature string) (*stripe.Event, error) {
	if p.cfg.WebhookSecret != "" {
		event, err := webhook.ConstructEventWithOptions(
			payload,
			signature,
			p.cfg.WebhookSecret,
			webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
		)
		if err != nil {
			return nil, fmt.Errorf("signature verification failed: %w", err)
		}
		return &event, nil
	}

	if p.cfg.Production {
		return nil, errors.New("webhook secret not configured")
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}
	if event.ID == "" {
		return nil, errors.New("webhook payload missing event id")
	}
	return &event, nil
}

func (p *WebhookProcessor) dispatch(ctx context.Context, kind provider.EventKind, event *stripe.Event) error {
	switch kind {
	case provider.EventCheckoutCompleted:
		return p.handleCheckoutCompleted(ctx, event)
	case provider.EventSubscriptionCreated:
		return p.handleSubscriptionCreated(ctx, event)
	case provider.EventSubscriptionUpdated:
		return p.handleSubscriptionUpdated(ctx, event)
	case provider.EventSubscriptionDeleted:
		return p.handleSubscriptionDeleted(ctx, event)
	case provider.EventInvoicePaid:
		return p.handleInvoicePaid(ctx, event)
	case provider.EventInvoicePaymentFailed:
		return p.handleInvoicePaymentFailed(ctx, event)
	case provider.EventPaymentMethodAttached:
		return p.handlePaymentMethodAttached(ctx, event)
	}
	return nil
}

// handleCheckoutCompleted routes a completed checkout session to either the
// one-time-purchase or subscription-purchase path based on the session
// metadata tag, falling back to the session mode.
func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to parse checkout session: %w", err)
	}

	mode := session.Metadata["checkout_type"]
	if mode == "" {
		if session.Mode == stripe.CheckoutSessionModeSubscription {
			mode = string(provider.CheckoutModeSubscription)
		} else {
			mode = string(provider.CheckoutModeOneTime)
		}
	}

	if mode == string(provider.CheckoutModeSubscription) {
		return p.createSubscriptionFromCheckout(ctx, &session)
	}
	return p.createOneTimeOrder(ctx, &session)
}

// createSubscriptionFromCheckout is an idempotent create keyed by the
// provider subscription ID: a replay or a race with the provider's own
// subscription-created event is a no-op.
func (p *WebhookProcessor) createSubscriptionFromCheckout(ctx context.Context, session *stripe.CheckoutSession) error {
	if session.Subscription == nil || session.Subscription.ID == "" {
		return errors.New("checkout session completed without a subscription reference")
	}
	providerSubID := session.Subscription.ID

	existing, err := p.stores.Subscriptions.GetByProviderID(ctx, providerSubID)
	if err != nil {
		return err
	}
	if existing != nil {
		p.logger.Info("Subscription already exists, skipping checkout backfill",
			zap.String("provider_subscription_id", providerSubID))
		return nil
	}

	user, err := p.resolveUser(ctx, session.Metadata, checkoutCustomerID(session), session.CustomerEmail)
	if err != nil {
		return err
	}

	plan, err := p.resolvePlan(ctx, session.Metadata)
	if err != nil {
		return err
	}

	sub := &model.Subscription{
		UserID:                 user.ID,
		ProviderSubscriptionID: &providerSubID,
		PlanID:                 plan.ID,
		Status:                 model.SubscriptionStatusActive,
		NextDeliveryDate:       p.now().AddDate(0, 0, plan.FrequencyDays),
		BagSize:                session.Metadata["bag_size"],
	}
	if q, err := strconv.Atoi(session.Metadata["quantity"]); err == nil && q > 0 {
		sub.Quantity = q
	}

	// Shipping address: metadata choice, falling back to the user's default
	// address, then any address.
	if addr := p.resolveAddress(ctx, user.ID, session.Metadata["address_id"]); addr != nil {
		sub.ShippingAddressID = &addr.ID
	}
	// Payment method: user's default, falling back to any.
	if pm, err := p.stores.PaymentMethods.DefaultForUser(ctx, user.ID); err == nil && pm != nil {
		sub.PaymentMethodID = &pm.ID
	}

	if err := p.stores.Subscriptions.Create(ctx, sub); err != nil {
		return err
	}

	p.logger.Info("Subscription created from checkout",
		zap.String("provider_subscription_id", providerSubID),
		zap.String("user_id", user.ID.String()),
		zap.Uint64("plan_id", plan.ID))

	if p.notifier != nil {
		p.notifier.SubscriptionCreated(ctx, user, sub)
	}
	return nil
}

// cartLine is a line of the cart snapshot carried in checkout metadata.
type cartLine struct {
	ProductID uint64 `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// createOneTimeOrder builds an order from the cart snapshot in session
// metadata, priced from the current catalog rather than the price at
// cart-add time.
func (p *WebhookProcessor) createOneTimeOrder(ctx context.Context, session *stripe.CheckoutSession) error {
	user, err := p.resolveUser(ctx, session.Metadata, checkoutCustomerID(session), session.CustomerEmail)
	if err != nil {
		return err
	}

	var cart []cartLine
	if raw := session.Metadata["cart"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cart); err != nil {
			return fmt.Errorf("failed to parse cart snapshot: %w", err)
		}
	}
	if len(cart) == 0 {
		return errors.New("checkout session has no cart snapshot")
	}

	now := p.now()
	order := &model.Order{
		OrderNumber: model.NewOrderNumber(now),
		UserID:      user.ID,
		Type:        model.OrderTypeOneTime,
		Status:      model.OrderStatusPending,
	}
	if addr, err := p.stores.Addresses.FirstForUser(ctx, user.ID); err == nil && addr != nil {
		order.SnapshotAddress(addr)
	}

	for _, line := range cart {
		if line.Quantity <= 0 {
			continue
		}
		product, err := p.stores.Products.GetByID(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if product == nil || !product.IsActive {
			p.logger.Warn("Cart references unavailable product, skipping line",
				zap.Uint64("product_id", line.ProductID))
			continue
		}
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			PriceCents:  product.PriceCents,
		})
	}
	if len(order.Items) == 0 {
		return errors.New("checkout cart resolved to no purchasable items")
	}

	// One-time checkout totals were charged by the provider already; the
	// local order mirrors the catalog prices with no extra fees.
	order.ComputeTotals(0, 0)

	if err := p.stores.Orders.Create(ctx, order); err != nil {
		return err
	}

	for _, item := range order.Items {
		if err := p.stores.Products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			p.logger.Warn("Failed to decrement stock for purchased product",
				zap.Uint64("product_id", item.ProductID),
				zap.Error(err))
		}
	}

	p.logger.Info("One-time order created from checkout",
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_cents", order.TotalCents))

	if p.notifier != nil {
		p.notifier.OrderConfirmation(ctx, user, order)
	}
	return nil
}

// handleSubscriptionCreated is the defensive backfill path: if checkout
// completion raced behind the provider's own subscription-created event, the
// local record is created here instead. Skipped when it already exists.
func (p *WebhookProcessor) handleSubscriptionCreated(ctx context.Context, event *stripe.Event) error {
	var providerSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &providerSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	existing, err := p.stores.Subscriptions.GetByProviderID(ctx, providerSub.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	customerID := ""
	if providerSub.Customer != nil {
		customerID = providerSub.Customer.ID
	}
	user, err := p.resolveUser(ctx, providerSub.Metadata, customerID, "")
	if err != nil {
		return err
	}

	plan, err := p.resolvePlan(ctx, providerSub.Metadata)
	if err != nil {
		return err
	}

	status, ok := model.StatusFromProvider(string(providerSub.Status))
	if !ok {
		status = model.SubscriptionStatusActive
	}

	providerSubID := providerSub.ID
	sub := &model.Subscription{
		UserID:                 user.ID,
		ProviderSubscriptionID: &providerSubID,
		PlanID:                 plan.ID,
		Status:                 status,
		NextDeliveryDate:       p.now().AddDate(0, 0, plan.FrequencyDays),
		BagSize:                providerSub.Metadata["bag_size"],
	}
	if addr := p.resolveAddress(ctx, user.ID, providerSub.Metadata["address_id"]); addr != nil {
		sub.ShippingAddressID = &addr.ID
	}
	if pm, err := p.stores.PaymentMethods.DefaultForUser(ctx, user.ID); err == nil && pm != nil {
		sub.PaymentMethodID = &pm.ID
	}

	if err := p.stores.Subscriptions.Create(ctx, sub); err != nil {
		return err
	}

	p.logger.Info("Subscription backfilled from provider event",
		zap.String("provider_subscription_id", providerSub.ID))
	return nil
}

// handleSubscriptionUpdated reconciles the local status with the
// provider-reported one. The provider wins; a matching status is a no-op so
// notifications are not re-sent on replays.
func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, event *stripe.Event) error {
	var providerSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &providerSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	local, err := p.stores.Subscriptions.GetByProviderID(ctx, providerSub.ID)
	if err != nil {
		return err
	}
	if local == nil {
		p.logger.Warn("Provider reported update for unknown subscription",
			zap.String("provider_subscription_id", providerSub.ID))
		return nil
	}

	status, ok := model.StatusFromProvider(string(providerSub.Status))
	if !ok {
		p.logger.Info("Ignoring provider status with no local meaning",
			zap.String("provider_status", string(providerSub.Status)))
		return nil
	}

	if !local.ApplyProviderStatus(status, p.now()) {
		return nil
	}
	if err := p.stores.Subscriptions.Update(ctx, local); err != nil {
		return err
	}

	p.logger.Info("Subscription status reconciled from provider",
		zap.String("provider_subscription_id", providerSub.ID),
		zap.String("status", string(status)))

	p.notifyStatusChange(ctx, local, status)
	return nil
}

// handleSubscriptionDeleted force-cancels the local record.
func (p *WebhookProcessor) handleSubscriptionDeleted(ctx context.Context, event *stripe.Event) error {
	var providerSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &providerSub); err != nil {
		return fmt.Errorf("failed to parse subscription: %w", err)
	}

	local, err := p.stores.Subscriptions.GetByProviderID(ctx, providerSub.ID)
	if err != nil {
		return err
	}
	if local == nil {
		return nil
	}

	if !local.ApplyProviderStatus(model.SubscriptionStatusCancelled, p.now()) {
		return nil
	}
	if err := p.stores.Subscriptions.Update(ctx, local); err != nil {
		return err
	}

	p.logger.Info("Subscription cancelled by provider",
		zap.String("provider_subscription_id", providerSub.ID))

	p.notifyStatusChange(ctx, local, model.SubscriptionStatusCancelled)
	return nil
}

// handleInvoicePaid resets the failure counter, reconciles a past_due
// subscription back to active and enqueues order generation for the billing
// period. Generation runs on the worker pool, not inline, to keep webhook
// response latency low.
func (p *WebhookProcessor) handleInvoicePaid(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		p.logger.Info("Invoice paid without subscription, nothing to do",
			zap.String("invoice_id", invoice.ID))
		return nil
	}

	local, err := p.stores.Subscriptions.GetByProviderID(ctx, invoice.Subscription.ID)
	if err != nil {
		return err
	}
	if local == nil {
		p.logger.Warn("Invoice paid for unknown subscription",
			zap.String("provider_subscription_id", invoice.Subscription.ID))
		return nil
	}

	if local.RecordPaymentSuccess() {
		if err := p.stores.Subscriptions.Update(ctx, local); err != nil {
			return err
		}
	}

	if err := p.tasks.Enqueue(ctx, TaskGenerateOrder, GenerateOrderTask{
		SubscriptionID: local.ID,
		InvoiceID:      invoice.ID,
	}); err != nil {
		return fmt.Errorf("failed to enqueue order generation: %w", err)
	}

	p.logger.Info("Invoice payment recorded, order generation enqueued",
		zap.Uint64("subscription_id", local.ID),
		zap.String("invoice_id", invoice.ID))
	return nil
}

// handleInvoicePaymentFailed increments the failure counter, moves the
// subscription to past_due and notifies the customer. At the escalation
// threshold it logs a review signal; cancelling automatically requires the
// operator opt-in.
func (p *WebhookProcessor) handleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to parse invoice: %w", err)
	}

	if invoice.Subscription == nil || invoice.Subscription.ID == "" {
		return nil
	}

	local, err := p.stores.Subscriptions.GetByProviderID(ctx, invoice.Subscription.ID)
	if err != nil {
		return err
	}
	if local == nil {
		p.logger.Warn("Invoice payment failed for unknown subscription",
			zap.String("provider_subscription_id", invoice.Subscription.ID))
		return nil
	}

	count := local.RecordPaymentFailure()

	if count >= p.cfg.FailedPaymentThreshold {
		p.logger.Warn("Subscription reached failed-payment threshold, flagging for review",
			zap.Uint64("subscription_id", local.ID),
			zap.Int("failed_payment_count", count),
			zap.Bool("auto_cancel", p.cfg.AutoCancelAfterFailures))
		if p.cfg.AutoCancelAfterFailures {
			local.ApplyProviderStatus(model.SubscriptionStatusCancelled, p.now())
		}
	}

	if err := p.stores.Subscriptions.Update(ctx, local); err != nil {
		return err
	}

	if user, err := p.stores.Users.GetByID(ctx, local.UserID); err == nil && user != nil && p.notifier != nil {
		p.notifier.PaymentFailed(ctx, user)
	}

	p.logger.Info("Invoice payment failure recorded",
		zap.Uint64("subscription_id", local.ID),
		zap.String("invoice_id", invoice.ID),
		zap.Int("failed_payment_count", count))
	return nil
}

// handlePaymentMethodAttached persists a local copy of the card metadata.
func (p *WebhookProcessor) handlePaymentMethodAttached(ctx context.Context, event *stripe.Event) error {
	var pm stripe.PaymentMethod
	if err := json.Unmarshal(event.Data.Raw, &pm); err != nil {
		return fmt.Errorf("failed to parse payment method: %w", err)
	}

	if pm.Customer == nil || pm.Customer.ID == "" {
		return nil
	}

	user, err := p.stores.Users.GetByProviderCustomerID(ctx, pm.Customer.ID)
	if err != nil {
		return err
	}
	if user == nil {
		p.logger.Warn("Payment method attached for unknown customer",
			zap.String("provider_customer_id", pm.Customer.ID))
		return nil
	}

	local := &model.PaymentMethod{
		UserID:           user.ID,
		ProviderMethodID: pm.ID,
	}
	if pm.Card != nil {
		local.Brand = string(pm.Card.Brand)
		local.Last4 = pm.Card.Last4
		local.ExpMonth = int(pm.Card.ExpMonth)
		local.ExpYear = int(pm.Card.ExpYear)
	}
	if existing, err := p.stores.PaymentMethods.DefaultForUser(ctx, user.ID); err == nil && existing == nil {
		local.IsDefault = true
	}

	if err := p.stores.PaymentMethods.Upsert(ctx, local); err != nil {
		return err
	}

	p.logger.Info("Payment method stored",
		zap.String("provider_method_id", pm.ID),
		zap.String("user_id", user.ID.String()))
	return nil
}

func (p *WebhookProcessor) notifyStatusChange(ctx context.Context, sub *model.Subscription, status model.SubscriptionStatus) {
	if p.notifier == nil {
		return
	}
	user, err := p.stores.Users.GetByID(ctx, sub.UserID)
	if err != nil || user == nil {
		return
	}
	switch status {
	case model.SubscriptionStatusPaused:
		p.notifier.SubscriptionPaused(ctx, user)
	case model.SubscriptionStatusCancelled:
		p.notifier.SubscriptionCancelled(ctx, user)
	}
}

// resolveUser finds the local account for a webhook payload: explicit
// metadata user_id first, then the provider customer mapping, then email.
func (p *WebhookProcessor) resolveUser(ctx context.Context, metadata map[string]string, customerID, email string) (*model.User, error) {
	if raw := metadata["user_id"]; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			user, err := p.stores.Users.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if user != nil {
				p.ensureCustomerMapping(ctx, user, customerID)
				return user, nil
			}
		}
	}

	if customerID != "" {
		user, err := p.stores.Users.GetByProviderCustomerID(ctx, customerID)
		if err != nil {
			return nil, err
		}
		if user != nil {
			return user, nil
		}
	}

	if email != "" {
		user, err := p.stores.Users.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if user != nil {
			p.ensureCustomerMapping(ctx, user, customerID)
			return user, nil
		}
	}

	return nil, fmt.Errorf("no local user for webhook payload (customer %q)", customerID)
}

// ensureCustomerMapping records the provider customer ID on first sight.
func (p *WebhookProcessor) ensureCustomerMapping(ctx context.Context, user *model.User, customerID string) {
	if customerID == "" || user.ProviderCustomerID != nil {
		return
	}
	if err := p.stores.Users.SetProviderCustomerID(ctx, user.ID, customerID); err != nil {
		p.logger.Warn("Failed to store provider customer mapping",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}
}

// resolvePlan maps webhook metadata onto a local plan, by internal ID first
// and then by provider price ID.
func (p *WebhookProcessor) resolvePlan(ctx context.Context, metadata map[string]string) (*model.Plan, error) {
	if raw := metadata["plan_id"]; raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
			plan, err := p.stores.Plans.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if plan != nil {
				return plan, nil
			}
		}
	}

	if priceID := metadata["price_id"]; priceID != "" {
		plan, err := p.stores.Plans.GetByProviderPriceID(ctx, priceID)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			return plan, nil
		}
	}

	return nil, fmt.Errorf("no local plan for webhook metadata")
}

// resolveAddress picks the shipping address: explicit metadata choice first,
// then the user's default, then any address.
func (p *WebhookProcessor) resolveAddress(ctx context.Context, userID uuid.UUID, addressIDRaw string) *model.Address {
	if addressIDRaw != "" {
		if id, err := strconv.ParseUint(addressIDRaw, 10, 64); err == nil {
			if addr, err := p.stores.Addresses.GetByID(ctx, id); err == nil && addr != nil && addr.UserID == userID {
				return addr
			}
		}
	}
	addr, err := p.stores.Addresses.FirstForUser(ctx, userID)
	if err != nil {
		return nil
	}
	return addr
}

func checkoutCustomerID(session *stripe.CheckoutSession) string {
	if session.Customer != nil {
		return session.Customer.ID
	}
	return ""
}
