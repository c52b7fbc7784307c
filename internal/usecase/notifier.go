package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// Notifier renders transactional notifications and hands them to the worker
// pool. Delivery is fire-and-forget: an enqueue failure is logged and never
// rolls back the state transition that triggered it.
type Notifier struct {
	tasks  TaskEnqueuer
	logger *zap.Logger
}

// NewNotifier creates a new notifier
func NewNotifier(tasks TaskEnqueuer, logger *zap.Logger) *Notifier {
	return &Notifier{
		tasks:  tasks,
		logger: logger,
	}
}

// OrderConfirmation notifies the customer that an order was created.
func (n *Notifier) OrderConfirmation(ctx context.Context, user *model.User, order *model.Order) {
	subject := fmt.Sprintf("Your Beanbound order %s is confirmed", order.OrderNumber)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your order <strong>%s</strong> is confirmed. Total: $%.2f.</p><p>We'll let you know when your beans ship.</p>`,
		user.Name, order.OrderNumber, float64(order.TotalCents)/100)
	n.send(ctx, user.Email, subject, body)
}

// SubscriptionCreated welcomes a new subscriber.
func (n *Notifier) SubscriptionCreated(ctx context.Context, user *model.User, sub *model.Subscription) {
	subject := "Welcome to your Beanbound subscription"
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Your subscription is active. First delivery: %s.</p>`,
		user.Name, sub.NextDeliveryDate.Format("January 2, 2006"))
	n.send(ctx, user.Email, subject, body)
}

// SubscriptionPaused confirms a pause.
func (n *Notifier) SubscriptionPaused(ctx context.Context, user *model.User) {
	n.send(ctx, user.Email, "Your Beanbound subscription is paused",
		fmt.Sprintf(`<p>Hi %s,</p><p>Your subscription is paused. Resume any time from your dashboard.</p>`, user.Name))
}

// SubscriptionResumed confirms a resume.
func (n *Notifier) SubscriptionResumed(ctx context.Context, user *model.User, sub *model.Subscription) {
	n.send(ctx, user.Email, "Your Beanbound subscription is back on",
		fmt.Sprintf(`<p>Hi %s,</p><p>Your subscription has resumed. Next delivery: %s.</p>`,
			user.Name, sub.NextDeliveryDate.Format("January 2, 2006")))
}

// SubscriptionCancelled confirms a cancellation.
func (n *Notifier) SubscriptionCancelled(ctx context.Context, user *model.User) {
	n.send(ctx, user.Email, "Your Beanbound subscription is cancelled",
		fmt.Sprintf(`<p>Hi %s,</p><p>Your subscription has been cancelled. We'd love to have you back.</p>`, user.Name))
}

// PaymentFailed warns the customer that a renewal charge failed.
func (n *Notifier) PaymentFailed(ctx context.Context, user *model.User) {
	n.send(ctx, user.Email, "Payment failed for your Beanbound subscription",
		fmt.Sprintf(`<p>Hi %s,</p><p>We couldn't charge your card for this billing cycle. Please update your payment method to keep deliveries coming.</p>`, user.Name))
}

func (n *Notifier) send(ctx context.Context, to, subject, body string) {
	if to == "" {
		return
	}
	err := n.tasks.Enqueue(ctx, TaskSendEmail, SendEmailTask{
		To:      to,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		n.logger.Error("Failed to enqueue notification email",
			zap.String("to", to),
			zap.String("subject", subject),
			zap.Error(err))
	}
}
