package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/domain/model"
	"github.com/beanbound/beanbound/internal/domain/provider"
	"github.com/beanbound/beanbound/internal/usecase"
)

type processorMocks struct {
	events         *MockWebhookEventRepository
	subscriptions  *MockSubscriptionRepository
	orders         *MockOrderRepository
	products       *MockProductRepository
	plans          *MockPlanRepository
	users          *MockUserRepository
	addresses      *MockAddressRepository
	paymentMethods *MockPaymentMethodRepository
	tasks          *MockTaskEnqueuer
}

func newProcessor(cfg usecase.WebhookProcessorConfig) (*usecase.WebhookProcessor, *processorMocks) {
	m := &processorMocks{
		events:         new(MockWebhookEventRepository),
		subscriptions:  new(MockSubscriptionRepository),
		orders:         new(MockOrderRepository),
		products:       new(MockProductRepository),
		plans:          new(MockPlanRepository),
		users:          new(MockUserRepository),
		addresses:      new(MockAddressRepository),
		paymentMethods: new(MockPaymentMethodRepository),
		tasks:          new(MockTaskEnqueuer),
	}
	p := usecase.NewWebhookProcessor(cfg, usecase.WebhookStores{
		Events:         m.events,
		Subscriptions:  m.subscriptions,
		Orders:         m.orders,
		Products:       m.products,
		Plans:          m.plans,
		Users:          m.users,
		Addresses:      m.addresses,
		PaymentMethods: m.paymentMethods,
	}, m.tasks, nil, zap.NewNop())
	return p, m
}

func invoicePaidPayload(eventID, subscriptionID, invoiceID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "invoice.payment_succeeded",
		"data": {"object": {"id": %q, "subscription": %q}}
	}`, eventID, invoiceID, subscriptionID))
}

func invoiceFailedPayload(eventID, subscriptionID, invoiceID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "invoice.payment_failed",
		"data": {"object": {"id": %q, "subscription": %q}}
	}`, eventID, invoiceID, subscriptionID))
}

func TestWebhookProcessor_IdempotentDelivery(t *testing.T) {
	ctx := context.Background()
	payload := invoicePaidPayload("evt_123", "sub_1", "in_1")

	p, m := newProcessor(usecase.WebhookProcessorConfig{})

	sub := &model.Subscription{ID: 7, Status: model.SubscriptionStatusActive}
	providerSubID := "sub_1"
	sub.ProviderSubscriptionID = &providerSubID

	// First delivery processes and marks.
	m.events.On("RecordIfNew", ctx, "evt_123", "invoice.payment_succeeded", mock.Anything).
		Return(true, &model.WebhookEvent{ProviderEventID: "evt_123"}, nil).Once()
	m.subscriptions.On("GetByProviderID", ctx, "sub_1").Return(sub, nil).Once()
	m.tasks.On("Enqueue", ctx, usecase.TaskGenerateOrder, usecase.GenerateOrderTask{
		SubscriptionID: 7,
		InvoiceID:      "in_1",
	}).Return(nil).Once()
	m.events.On("MarkProcessed", ctx, "evt_123").Return(nil).Once()

	result := p.Handle(ctx, payload, "")
	assert.True(t, result.OK())
	assert.False(t, result.Duplicate)
	assert.Equal(t, provider.EventInvoicePaid, result.Kind)

	// Redelivery of the same event is acknowledged without reprocessing.
	processedAt := time.Now()
	m.events.On("RecordIfNew", ctx, "evt_123", "invoice.payment_succeeded", mock.Anything).
		Return(false, &model.WebhookEvent{ProviderEventID: "evt_123", ProcessedAt: &processedAt}, nil).Once()

	result = p.Handle(ctx, payload, "")
	assert.True(t, result.OK())
	assert.True(t, result.Duplicate)

	// The business side effect happened exactly once.
	m.tasks.AssertNumberOfCalls(t, "Enqueue", 1)
	m.events.AssertExpectations(t)
	m.subscriptions.AssertExpectations(t)
}

func TestWebhookProcessor_UnknownEventAcknowledged(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id": "evt_u1", "type": "price.created", "data": {"object": {}}}`)

	p, m := newProcessor(usecase.WebhookProcessorConfig{})
	m.events.On("RecordIfNew", ctx, "evt_u1", "price.created", mock.Anything).
		Return(true, &model.WebhookEvent{ProviderEventID: "evt_u1"}, nil).Once()
	m.events.On("MarkProcessed", ctx, "evt_u1").Return(nil).Once()

	result := p.Handle(ctx, payload, "")
	assert.True(t, result.OK())
	assert.Equal(t, provider.EventUnknown, result.Kind)
	m.events.AssertExpectations(t)
}

func TestWebhookProcessor_HandlerErrorStillMarksProcessed(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id": "evt_e1", "type": "customer.subscription.updated", "data": {"object": {"id": "sub_9", "status": "past_due"}}}`)

	p, m := newProcessor(usecase.WebhookProcessorConfig{})
	m.events.On("RecordIfNew", ctx, "evt_e1", "customer.subscription.updated", mock.Anything).
		Return(true, &model.WebhookEvent{ProviderEventID: "evt_e1"}, nil).Once()
	m.subscriptions.On("GetByProviderID", ctx, "sub_9").
		Return(nil, errors.New("db down")).Once()
	m.events.On("MarkProcessed", ctx, "evt_e1").Return(nil).Once()

	result := p.Handle(ctx, payload, "")
	assert.False(t, result.OK())
	assert.Error(t, result.Err)

	// The event is marked regardless, so the provider's retries of a
	// systematically failing event stay no-ops.
	m.events.AssertExpectations(t)
}

func TestWebhookProcessor_RejectsUnsignedInProduction(t *testing.T) {
	p, _ := newProcessor(usecase.WebhookProcessorConfig{Production: true})

	result := p.Handle(context.Background(), invoicePaidPayload("evt_1", "sub_1", "in_1"), "")
	assert.True(t, result.Rejected)
	assert.False(t, result.OK())
}

func TestWebhookProcessor_EventStoreFailureFailsOpen(t *testing.T) {
	ctx := context.Background()
	payload := invoicePaidPayload("evt_fo1", "sub_1", "in_9")

	p, m := newProcessor(usecase.WebhookProcessorConfig{})

	sub := &model.Subscription{ID: 3, Status: model.SubscriptionStatusActive}
	m.events.On("RecordIfNew", ctx, "evt_fo1", "invoice.payment_succeeded", mock.Anything).
		Return(false, nil, errors.New("event store unreachable")).Once()
	m.subscriptions.On("GetByProviderID", ctx, "sub_1").Return(sub, nil).Once()
	m.tasks.On("Enqueue", ctx, usecase.TaskGenerateOrder, mock.Anything).Return(nil).Once()

	result := p.Handle(ctx, payload, "")
	assert.True(t, result.OK())

	// Without a gate record there is nothing to mark.
	m.events.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	m.tasks.AssertExpectations(t)
}

func TestWebhookProcessor_PaymentFailureEscalation(t *testing.T) {
	ctx := context.Background()

	p, m := newProcessor(usecase.WebhookProcessorConfig{FailedPaymentThreshold: 3})

	sub := &model.Subscription{ID: 11, Status: model.SubscriptionStatusActive}
	m.subscriptions.On("GetByProviderID", ctx, "sub_5").Return(sub, nil)
	m.subscriptions.On("Update", ctx, sub).Return(nil)
	m.users.On("GetByID", ctx, sub.UserID).Return(nil, nil)
	m.events.On("RecordIfNew", ctx, mock.Anything, "invoice.payment_failed", mock.Anything).
		Return(true, &model.WebhookEvent{}, nil)
	m.events.On("MarkProcessed", ctx, mock.Anything).Return(nil)

	for i := 1; i <= 3; i++ {
		result := p.Handle(ctx, invoiceFailedPayload(fmt.Sprintf("evt_f%d", i), "sub_5", fmt.Sprintf("in_f%d", i)), "")
		assert.True(t, result.OK())
		assert.Equal(t, i, sub.FailedPaymentCount)
	}

	// Threshold reached: flagged, not cancelled, without the opt-in.
	assert.Equal(t, model.SubscriptionStatusPastDue, sub.Status)
	assert.Nil(t, sub.CancelledAt)
}

func TestWebhookProcessor_AutoCancelOptIn(t *testing.T) {
	ctx := context.Background()

	p, m := newProcessor(usecase.WebhookProcessorConfig{
		FailedPaymentThreshold:  3,
		AutoCancelAfterFailures: true,
	})

	sub := &model.Subscription{ID: 12, Status: model.SubscriptionStatusPastDue, FailedPaymentCount: 2}
	m.subscriptions.On("GetByProviderID", ctx, "sub_6").Return(sub, nil)
	m.subscriptions.On("Update", ctx, sub).Return(nil)
	m.users.On("GetByID", ctx, sub.UserID).Return(nil, nil)
	m.events.On("RecordIfNew", ctx, mock.Anything, "invoice.payment_failed", mock.Anything).
		Return(true, &model.WebhookEvent{}, nil)
	m.events.On("MarkProcessed", ctx, mock.Anything).Return(nil)

	result := p.Handle(ctx, invoiceFailedPayload("evt_ac1", "sub_6", "in_ac1"), "")
	assert.True(t, result.OK())
	assert.Equal(t, 3, sub.FailedPaymentCount)
	assert.Equal(t, model.SubscriptionStatusCancelled, sub.Status)
	assert.NotNil(t, sub.CancelledAt)
}

func TestWebhookProcessor_StatusReconciliation(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"id": "evt_r1", "type": "customer.subscription.updated", "data": {"object": {"id": "sub_7", "status": "active"}}}`)

	p, m := newProcessor(usecase.WebhookProcessorConfig{})

	t.Run("provider status wins", func(t *testing.T) {
		sub := &model.Subscription{ID: 20, Status: model.SubscriptionStatusPastDue}
		m.events.On("RecordIfNew", ctx, "evt_r1", "customer.subscription.updated", mock.Anything).
			Return(true, &model.WebhookEvent{}, nil).Once()
		m.subscriptions.On("GetByProviderID", ctx, "sub_7").Return(sub, nil).Once()
		m.subscriptions.On("Update", ctx, sub).Return(nil).Once()
		m.events.On("MarkProcessed", ctx, "evt_r1").Return(nil).Once()

		result := p.Handle(ctx, payload, "")
		assert.True(t, result.OK())
		assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	})

	t.Run("matching status is a no-op without a write", func(t *testing.T) {
		sub := &model.Subscription{ID: 21, Status: model.SubscriptionStatusActive}
		m.events.On("RecordIfNew", ctx, "evt_r1", "customer.subscription.updated", mock.Anything).
			Return(true, &model.WebhookEvent{}, nil).Once()
		m.subscriptions.On("GetByProviderID", ctx, "sub_7").Return(sub, nil).Once()
		m.events.On("MarkProcessed", ctx, "evt_r1").Return(nil).Once()

		result := p.Handle(ctx, payload, "")
		assert.True(t, result.OK())
		m.subscriptions.AssertNumberOfCalls(t, "Update", 1) // only from the previous subtest
	})
}

func checkoutCompletedPayload(eventID, mode, metadata string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"mode": %q,
			"customer": "cus_1",
			"customer_email": "ada@example.com",
			"subscription": "sub_co1",
			"metadata": %s
		}}
	}`, eventID, mode, metadata))
}

func TestWebhookProcessor_CheckoutSubscriptionCreated(t *testing.T) {
	ctx := context.Background()
	metadata := `{"checkout_type": "subscription", "user_id": "USER_ID", "plan_id": "5"}`

	p, m := newProcessor(usecase.WebhookProcessorConfig{})

	cus := "cus_1"
	user := &model.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada", ProviderCustomerID: &cus}
	metadata = strings.Replace(metadata, "USER_ID", user.ID.String(), 1)
	plan := &model.Plan{ID: 5, FrequencyDays: 14, IsActive: true}
	addr := &model.Address{ID: 9, UserID: user.ID, City: "Portland"}
	pm := &model.PaymentMethod{ID: 4, UserID: user.ID}

	m.events.On("RecordIfNew", ctx, mock.Anything, "checkout.session.completed", mock.Anything).
		Return(true, &model.WebhookEvent{}, nil)
	m.events.On("MarkProcessed", ctx, mock.Anything).Return(nil)
	m.users.On("GetByID", ctx, user.ID).Return(user, nil)
	m.plans.On("GetByID", ctx, uint64(5)).Return(plan, nil)
	m.addresses.On("FirstForUser", ctx, user.ID).Return(addr, nil)
	m.paymentMethods.On("DefaultForUser", ctx, user.ID).Return(pm, nil)

	var created *model.Subscription
	m.subscriptions.On("GetByProviderID", ctx, "sub_co1").Return(nil, nil).Once()
	m.subscriptions.On("Create", ctx, mock.MatchedBy(func(sub *model.Subscription) bool {
		created = sub
		return true
	})).Return(nil).Once()

	result := p.Handle(ctx, checkoutCompletedPayload("evt_co1", "subscription", metadata), "")
	assert.True(t, result.OK())

	assert.NotNil(t, created)
	assert.Equal(t, user.ID, created.UserID)
	assert.Equal(t, "sub_co1", *created.ProviderSubscriptionID)
	assert.Equal(t, uint64(5), created.PlanID)
	assert.Equal(t, model.SubscriptionStatusActive, created.Status)
	assert.Equal(t, uint64(9), *created.ShippingAddressID)
	assert.Equal(t, uint64(4), *created.PaymentMethodID)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), created.NextDeliveryDate, time.Minute)

	// A replayed completion for the same provider subscription is a no-op.
	m.subscriptions.On("GetByProviderID", ctx, "sub_co1").Return(created, nil).Once()

	result = p.Handle(ctx, checkoutCompletedPayload("evt_co2", "subscription", metadata), "")
	assert.True(t, result.OK())
	m.subscriptions.AssertNumberOfCalls(t, "Create", 1)
	m.subscriptions.AssertExpectations(t)
}

func TestWebhookProcessor_CheckoutOneTimeOrder(t *testing.T) {
	ctx := context.Background()

	p, m := newProcessor(usecase.WebhookProcessorConfig{})

	cus := "cus_1"
	user := &model.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada", ProviderCustomerID: &cus}
	addr := &model.Address{ID: 9, UserID: user.ID, Recipient: "Ada", Street: "1 Oak St", City: "Portland", Country: "US"}

	// No checkout_type tag: routing falls back to the session's payment mode.
	metadata := fmt.Sprintf(`{
		"user_id": %q,
		"cart": "[{\"product_id\":1,\"quantity\":1},{\"product_id\":2,\"quantity\":2},{\"product_id\":3,\"quantity\":1}]"
	}`, user.ID.String())

	m.events.On("RecordIfNew", ctx, "evt_ot1", "checkout.session.completed", mock.Anything).
		Return(true, &model.WebhookEvent{}, nil).Once()
	m.events.On("MarkProcessed", ctx, "evt_ot1").Return(nil).Once()
	m.users.On("GetByID", ctx, user.ID).Return(user, nil)
	m.addresses.On("FirstForUser", ctx, user.ID).Return(addr, nil)
	m.products.On("GetByID", ctx, uint64(1)).
		Return(&model.Product{ID: 1, Name: "Ember Dark", PriceCents: 900, IsActive: true}, nil)
	m.products.On("GetByID", ctx, uint64(2)).
		Return(&model.Product{ID: 2, Name: "Morning Light", PriceCents: 800, IsActive: true}, nil)
	m.products.On("GetByID", ctx, uint64(3)).
		Return(&model.Product{ID: 3, Name: "Retired Blend", PriceCents: 700, IsActive: false}, nil)
	m.products.On("DecrementStock", ctx, uint64(1), 1).Return(nil).Once()
	m.products.On("DecrementStock", ctx, uint64(2), 2).Return(nil).Once()

	var created *model.Order
	m.orders.On("Create", ctx, mock.MatchedBy(func(order *model.Order) bool {
		created = order
		return true
	})).Return(nil).Once()

	result := p.Handle(ctx, checkoutCompletedPayload("evt_ot1", "payment", metadata), "")
	assert.True(t, result.OK())

	assert.NotNil(t, created)
	assert.Equal(t, model.OrderTypeOneTime, created.Type)
	assert.Equal(t, model.OrderStatusPending, created.Status)

	// The inactive product is dropped; totals come from the current catalog
	// prices of the remaining lines.
	assert.Len(t, created.Items, 2)
	assert.Equal(t, int64(2500), created.SubtotalCents)
	assert.Equal(t, int64(0), created.ShippingCents)
	assert.Equal(t, int64(0), created.TaxCents)
	assert.Equal(t, int64(2500), created.TotalCents)

	assert.Equal(t, "Portland", created.ShipCity)
	assert.Equal(t, "Ada", created.ShipRecipient)

	// Stock moves for the purchased lines only.
	m.products.AssertNotCalled(t, "DecrementStock", ctx, uint64(3), 1)
	m.products.AssertExpectations(t)
	m.orders.AssertExpectations(t)
}

func TestWebhookProcessor_InvoicePaidRecoversPastDue(t *testing.T) {
	ctx := context.Background()
	payload := invoicePaidPayload("evt_rec1", "sub_8", "in_rec1")

	p, m := newProcessor(usecase.WebhookProcessorConfig{})

	sub := &model.Subscription{ID: 30, Status: model.SubscriptionStatusPastDue, FailedPaymentCount: 2}
	m.events.On("RecordIfNew", ctx, "evt_rec1", "invoice.payment_succeeded", mock.Anything).
		Return(true, &model.WebhookEvent{}, nil).Once()
	m.subscriptions.On("GetByProviderID", ctx, "sub_8").Return(sub, nil).Once()
	m.subscriptions.On("Update", ctx, sub).Return(nil).Once()
	m.tasks.On("Enqueue", ctx, usecase.TaskGenerateOrder, mock.Anything).Return(nil).Once()
	m.events.On("MarkProcessed", ctx, "evt_rec1").Return(nil).Once()

	result := p.Handle(ctx, payload, "")
	assert.True(t, result.OK())
	assert.Equal(t, 0, sub.FailedPaymentCount)
	assert.Equal(t, model.SubscriptionStatusActive, sub.Status)
	m.subscriptions.AssertExpectations(t)
}
