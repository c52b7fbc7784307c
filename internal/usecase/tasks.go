package usecase

import "context"

// Task kinds handled by the background worker pool.
const (
	TaskGenerateOrder = "generate_order"
	TaskSendEmail     = "send_email"
)

// TaskEnqueuer hands work to the background worker pool. Webhook handlers
// enqueue instead of doing slow work inline so webhook response latency stays
// low and provider-side timeout retries are not provoked.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, kind string, payload interface{}) error
}

// GenerateOrderTask asks the worker to materialize the order for one billing
// cycle. The (subscription, invoice) pair makes re-runs idempotent.
type GenerateOrderTask struct {
	SubscriptionID uint64 `json:"subscription_id"`
	InvoiceID      string `json:"invoice_id"`
}

// SendEmailTask is a rendered notification ready for the mail collaborator.
type SendEmailTask struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
