package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
	"github.com/beanbound/beanbound/internal/domain/model"
	"github.com/beanbound/beanbound/internal/usecase"
)

type generatorMocks struct {
	orders    *MockOrderRepository
	products  *MockProductRepository
	plans     *MockPlanRepository
	users     *MockUserRepository
	addresses *MockAddressRepository
}

func newGenerator(shippingCents int64, taxRate string) (*usecase.OrderGenerator, *generatorMocks) {
	m := &generatorMocks{
		orders:    new(MockOrderRepository),
		products:  new(MockProductRepository),
		plans:     new(MockPlanRepository),
		users:     new(MockUserRepository),
		addresses: new(MockAddressRepository),
	}
	tax, err := usecase.NewPercentTax(taxRate)
	if err != nil {
		panic(err)
	}
	g := usecase.NewOrderGenerator(
		m.orders, m.products, m.plans, m.users, m.addresses,
		usecase.FlatRateShipping{Cents: shippingCents}, tax,
		nil, zap.NewNop(),
	)
	return g, m
}

func eligibleSubscription(userID uuid.UUID) *model.Subscription {
	addrID := uint64(1)
	pmID := uint64(2)
	return &model.Subscription{
		ID:                42,
		UserID:            userID,
		PlanID:            5,
		Status:            model.SubscriptionStatusActive,
		NextDeliveryDate:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ShippingAddressID: &addrID,
		PaymentMethodID:   &pmID,
		Plan:              &model.Plan{ID: 5, FrequencyDays: 14, BagsPerDelivery: 2},
	}
}

func catalog() []*model.Product {
	return []*model.Product{
		{ID: 1, Name: "Huila Estate", RoastLevel: model.RoastMedium, PriceCents: 1850, StockQuantity: 10, IsActive: true},
		{ID: 2, Name: "Yirgacheffe", RoastLevel: model.RoastLight, PriceCents: 2100, StockQuantity: 4, IsActive: true},
		{ID: 3, Name: "Sumatra Dark", RoastLevel: model.RoastDark, PriceCents: 1950, StockQuantity: 6, IsActive: true},
	}
}

func TestOrderGenerator_Generate(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("generates order and advances delivery date by plan frequency", func(t *testing.T) {
		g, m := newGenerator(500, "0")
		sub := eligibleSubscription(userID)
		prevDate := sub.NextDeliveryDate

		m.addresses.On("GetByID", ctx, uint64(1)).Return(&model.Address{Recipient: "Ada"}, nil)
		m.users.On("GetByID", ctx, userID).Return(&model.User{ID: userID}, nil)
		m.products.On("ListActiveInStock", ctx).Return(catalog(), nil)
		m.orders.On("CreateForDelivery", ctx, mock.Anything, sub).Return(nil)

		order, err := g.Generate(ctx, sub, "")
		assert.NoError(t, err)
		assert.NotNil(t, order)

		// Advancement is from the stored date, not from today.
		assert.Equal(t, prevDate.AddDate(0, 0, 14), sub.NextDeliveryDate)

		assert.Equal(t, model.OrderTypeSubscription, order.Type)
		assert.Len(t, order.Items, 2)
		assert.Equal(t, "Ada", order.ShipRecipient)
		assert.Equal(t, order.SubtotalCents+order.ShippingCents+order.TaxCents, order.TotalCents)
	})

	t.Run("totals come from line items plus shipping and tax", func(t *testing.T) {
		g, m := newGenerator(500, "0.10")
		sub := eligibleSubscription(userID)

		m.addresses.On("GetByID", ctx, uint64(1)).Return(&model.Address{}, nil)
		m.users.On("GetByID", ctx, userID).Return(&model.User{ID: userID}, nil)
		m.products.On("ListActiveInStock", ctx).Return(catalog(), nil)
		m.orders.On("CreateForDelivery", ctx, mock.Anything, sub).Return(nil)

		order, err := g.Generate(ctx, sub, "")
		assert.NoError(t, err)

		// First two pool products at quantity one each.
		assert.Equal(t, int64(1850+2100), order.SubtotalCents)
		assert.Equal(t, int64(500), order.ShippingCents)
		assert.Equal(t, int64(395), order.TaxCents) // 10% of 3950
		assert.Equal(t, int64(3950+500+395), order.TotalCents)
	})

	t.Run("replay with the same invoice returns the existing order", func(t *testing.T) {
		g, m := newGenerator(500, "0")
		sub := eligibleSubscription(userID)
		existing := &model.Order{OrderNumber: "ORD-1-AAAAAA"}

		m.orders.On("GetBySubscriptionInvoice", ctx, uint64(42), "in_1").Return(existing, nil)

		order, err := g.Generate(ctx, sub, "in_1")
		assert.NoError(t, err)
		assert.Same(t, existing, order)
		m.orders.AssertNotCalled(t, "CreateForDelivery", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("eligibility failures are attributable domain errors", func(t *testing.T) {
		g, _ := newGenerator(500, "0")

		paused := eligibleSubscription(userID)
		paused.Status = model.SubscriptionStatusPaused
		_, err := g.Generate(ctx, paused, "")
		assert.ErrorIs(t, err, domainErrors.ErrSubscriptionNotActive)

		noAddr := eligibleSubscription(userID)
		noAddr.ShippingAddressID = nil
		_, err = g.Generate(ctx, noAddr, "")
		assert.ErrorIs(t, err, domainErrors.ErrNoShippingAddress)

		noPM := eligibleSubscription(userID)
		noPM.PaymentMethodID = nil
		_, err = g.Generate(ctx, noPM, "")
		assert.ErrorIs(t, err, domainErrors.ErrNoPaymentMethod)
	})

	t.Run("delivery date is restored when persistence fails", func(t *testing.T) {
		g, m := newGenerator(500, "0")
		sub := eligibleSubscription(userID)
		prevDate := sub.NextDeliveryDate

		m.addresses.On("GetByID", ctx, uint64(1)).Return(&model.Address{}, nil)
		m.users.On("GetByID", ctx, userID).Return(&model.User{ID: userID}, nil)
		m.products.On("ListActiveInStock", ctx).Return(catalog(), nil)
		m.orders.On("CreateForDelivery", ctx, mock.Anything, sub).Return(errors.New("db down"))

		_, err := g.Generate(ctx, sub, "")
		assert.Error(t, err)
		assert.Equal(t, prevDate, sub.NextDeliveryDate)
	})

	t.Run("empty catalog yields no-products error", func(t *testing.T) {
		g, m := newGenerator(500, "0")
		sub := eligibleSubscription(userID)

		m.addresses.On("GetByID", ctx, uint64(1)).Return(&model.Address{}, nil)
		m.users.On("GetByID", ctx, userID).Return(&model.User{ID: userID}, nil)
		m.products.On("ListActiveInStock", ctx).Return([]*model.Product{}, nil)

		_, err := g.Generate(ctx, sub, "")
		assert.ErrorIs(t, err, domainErrors.ErrNoProductsAvailable)
	})
}

func TestOrderGenerator_RoastPreference(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	run := func(t *testing.T, pref model.RoastLevel, pool []*model.Product, wantNames []string) {
		g, m := newGenerator(0, "0")
		sub := eligibleSubscription(userID)

		m.addresses.On("GetByID", ctx, uint64(1)).Return(&model.Address{}, nil)
		m.users.On("GetByID", ctx, userID).Return(&model.User{ID: userID, RoastPreference: pref}, nil)
		m.products.On("ListActiveInStock", ctx).Return(pool, nil)
		m.orders.On("CreateForDelivery", ctx, mock.Anything, sub).Return(nil)

		order, err := g.Generate(ctx, sub, "")
		assert.NoError(t, err)
		var names []string
		for _, item := range order.Items {
			names = append(names, item.ProductName)
		}
		assert.Equal(t, wantNames, names)
	}

	t.Run("exact preference match is used", func(t *testing.T) {
		pool := []*model.Product{
			{ID: 1, Name: "Light A", RoastLevel: model.RoastLight, PriceCents: 1000, StockQuantity: 1, IsActive: true},
			{ID: 2, Name: "Dark A", RoastLevel: model.RoastDark, PriceCents: 1000, StockQuantity: 1, IsActive: true},
			{ID: 3, Name: "Dark B", RoastLevel: model.RoastDark, PriceCents: 1000, StockQuantity: 1, IsActive: true},
		}
		run(t, model.RoastDark, pool, []string{"Dark A", "Dark B"})
	})

	t.Run("partial match falls back to the full pool", func(t *testing.T) {
		pool := []*model.Product{
			{ID: 1, Name: "Light A", RoastLevel: model.RoastLight, PriceCents: 1000, StockQuantity: 1, IsActive: true},
			{ID: 2, Name: "Medium A", RoastLevel: model.RoastMedium, PriceCents: 1000, StockQuantity: 1, IsActive: true},
			{ID: 3, Name: "Dark A", RoastLevel: model.RoastDark, PriceCents: 1000, StockQuantity: 1, IsActive: true},
		}
		// Only one dark product for a two-bag delivery: the preference is
		// abandoned entirely, not backfilled.
		run(t, model.RoastDark, pool, []string{"Light A", "Medium A"})
	})

	t.Run("no preference takes pool order", func(t *testing.T) {
		pool := []*model.Product{
			{ID: 1, Name: "Light A", RoastLevel: model.RoastLight, PriceCents: 1000, StockQuantity: 1, IsActive: true},
			{ID: 2, Name: "Dark A", RoastLevel: model.RoastDark, PriceCents: 1000, StockQuantity: 1, IsActive: true},
		}
		run(t, "", pool, []string{"Light A", "Dark A"})
	})
}
