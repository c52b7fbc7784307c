package repository

import (
	"context"
	"encoding/json"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// WebhookEventRepository is the idempotency gate for provider webhook events.
type WebhookEventRepository interface {
	// RecordIfNew atomically inserts the event record if the provider event
	// ID has never been seen. Returns isNew=false together with the existing
	// record on redelivery. The insert and the uniqueness check are a single
	// storage operation, safe under concurrent delivery of the same ID.
	RecordIfNew(ctx context.Context, eventID, eventType string, payload json.RawMessage) (isNew bool, event *model.WebhookEvent, err error)

	// MarkProcessed stamps processed_at on the event. Idempotent: a no-op if
	// the event is already marked.
	MarkProcessed(ctx context.Context, eventID string) error
}
