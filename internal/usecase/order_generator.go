package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	"github.com/beanbound/beanbound/internal/domain/model"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

// OrderGenerator turns a due subscription into a concrete fulfillment order
// and advances the subscription's next delivery date. Invoked by the delivery
// sweep for time-driven cycles and by the worker pool for webhook-driven
// billing cycles.
type OrderGenerator struct {
	orders    domainRepo.OrderRepository
	products  domainRepo.ProductRepository
	plans     domainRepo.PlanRepository
	users     domainRepo.UserRepository
	addresses domainRepo.AddressRepository
	shipping  ShippingCalculator
	tax       TaxCalculator
	notifier  *Notifier
	logger    *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewOrderGenerator creates a new order generator
func NewOrderGenerator(
	orders domainRepo.OrderRepository,
	products domainRepo.ProductRepository,
	plans domainRepo.PlanRepository,
	users domainRepo.UserRepository,
	addresses domainRepo.AddressRepository,
	shipping ShippingCalculator,
	tax TaxCalculator,
	notifier *Notifier,
	logger *zap.Logger,
) *OrderGenerator {
	return &OrderGenerator{
		orders:    orders,
		products:  products,
		plans:     plans,
		users:     users,
		addresses: addresses,
		shipping:  shipping,
		tax:       tax,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Generate produces one fulfillment order for the subscription's current
// billing cycle. Eligibility failures come back as domain errors the caller
// treats as a skip; one subscription's ineligibility never aborts others.
// When invoiceID is set, generation is idempotent per (subscription, invoice):
// a replay returns the already-generated order without side effects.
func (g *OrderGenerator) Generate(ctx context.Context, sub *model.Subscription, invoiceID string) (*model.Order, error) {
	if invoiceID != "" {
		existing, err := g.orders.GetBySubscriptionInvoice(ctx, sub.ID, invoiceID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			g.logger.Info("Order already generated for invoice",
				zap.Uint64("subscription_id", sub.ID),
				zap.String("invoice_id", invoiceID),
				zap.String("order_number", existing.OrderNumber))
			return existing, nil
		}
	}

	// Eligibility, each precondition checked and logged on its own so a
	// failure is attributable.
	if sub.Status != model.SubscriptionStatusActive {
		g.logger.Warn("Skipping order generation: subscription not active",
			zap.Uint64("subscription_id", sub.ID),
			zap.String("status", string(sub.Status)))
		return nil, domainErrors.ErrSubscriptionNotActive
	}
	if sub.ShippingAddressID == nil {
		g.logger.Warn("Skipping order generation: no shipping address",
			zap.Uint64("subscription_id", sub.ID))
		return nil, domainErrors.ErrNoShippingAddress
	}
	if sub.PaymentMethodID == nil {
		g.logger.Warn("Skipping order generation: no payment method",
			zap.Uint64("subscription_id", sub.ID))
		return nil, domainErrors.ErrNoPaymentMethod
	}

	plan := sub.Plan
	if plan == nil {
		var err error
		plan, err = g.plans.GetByID(ctx, sub.PlanID)
		if err != nil {
			return nil, err
		}
		if plan == nil {
			return nil, domainErrors.ErrPlanNotFound
		}
	}

	address, err := g.addresses.GetByID(ctx, *sub.ShippingAddressID)
	if err != nil {
		return nil, err
	}
	if address == nil {
		g.logger.Warn("Skipping order generation: shipping address no longer exists",
			zap.Uint64("subscription_id", sub.ID),
			zap.Uint64("address_id", *sub.ShippingAddressID))
		return nil, domainErrors.ErrNoShippingAddress
	}

	user, err := g.users.GetByID(ctx, sub.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domainErrors.ErrUserNotFound
	}

	pool, err := g.products.ListActiveInStock(ctx)
	if err != nil {
		return nil, err
	}

	picked := pickProducts(pool, user.RoastPreference, sub.DeliveryQuantity())
	if len(picked) == 0 {
		g.logger.Warn("No products available for subscription order",
			zap.Uint64("subscription_id", sub.ID))
		return nil, domainErrors.ErrNoProductsAvailable
	}

	now := g.now()
	order := &model.Order{
		OrderNumber:    model.NewOrderNumber(now),
		UserID:         sub.UserID,
		SubscriptionID: &sub.ID,
		Type:           model.OrderTypeSubscription,
		Status:         model.OrderStatusPending,
	}
	order.SnapshotAddress(address)
	if invoiceID != "" {
		id := invoiceID
		order.ProviderInvoiceID = &id
	}
	for _, p := range picked {
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    1,
			PriceCents:  p.PriceCents,
		})
	}

	// Totals are recomputed from line items, never carried over from the
	// plan price.
	var subtotal int64
	for _, item := range order.Items {
		subtotal += int64(item.Quantity) * item.PriceCents
	}
	order.ComputeTotals(g.shipping.ShippingCents(order), g.tax.TaxCents(subtotal))

	// Advance from the current delivery date, not from today, so a late
	// sweep does not drift the cadence.
	prevDate := sub.NextDeliveryDate
	sub.NextDeliveryDate = sub.NextDeliveryDate.AddDate(0, 0, plan.FrequencyDays)

	if err := g.orders.CreateForDelivery(ctx, order, sub); err != nil {
		sub.NextDeliveryDate = prevDate
		return nil, fmt.Errorf("failed to save generated order: %w", err)
	}

	g.logger.Info("Generated subscription order",
		zap.Uint64("subscription_id", sub.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total_cents", order.TotalCents),
		zap.Time("next_delivery_date", sub.NextDeliveryDate))

	if g.notifier != nil {
		g.notifier.OrderConfirmation(ctx, user, order)
	}

	return order, nil
}

// pickProducts chooses up to need products for a delivery. When the user has
// a roast preference, the preference-filtered set is used only if it yields
// exactly the required count; otherwise the unfiltered pool is used. Partial
// preference matches are not backfilled.
func pickProducts(pool []*model.Product, pref model.RoastLevel, need int) []*model.Product {
	if need <= 0 {
		return nil
	}

	if pref != "" {
		var matched []*model.Product
		for _, p := range pool {
			if p.RoastLevel == pref {
				matched = append(matched, p)
			}
		}
		if len(matched) == need {
			return matched
		}
	}

	if len(pool) > need {
		return pool[:need]
	}
	return pool
}
