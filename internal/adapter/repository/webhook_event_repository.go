package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/beanbound/beanbound/internal/domain/model"
	domainRepo "github.com/beanbound/beanbound/internal/domain/repository"
)

type webhookEventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates the webhook-event idempotency store.
func NewWebhookEventRepository(db *gorm.DB, logger *zap.Logger) domainRepo.WebhookEventRepository {
	return &webhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// RecordIfNew inserts the event record if the provider event ID is unseen.
// The insert uses ON CONFLICT DO NOTHING against the unique constraint, so
// two processor instances racing on a redelivered event cannot both observe
// isNew=true.
func (r *webhookEventRepository) RecordIfNew(ctx context.Context, eventID, eventType string, payload json.RawMessage) (bool, *model.WebhookEvent, error) {
	var payloadMap model.JSONB
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &payloadMap); err != nil {
			r.logger.Warn("Failed to parse event payload for storage",
				zap.String("event_id", eventID),
				zap.Error(err))
		}
	}

	event := &model.WebhookEvent{
		ProviderEventID: eventID,
		EventType:       eventType,
		Payload:         payloadMap,
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_event_id"}},
			DoNothing: true,
		}).
		Create(event)

	if result.Error != nil {
		r.logger.Error("Failed to record webhook event",
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(result.Error))
		return false, nil, fmt.Errorf("failed to record webhook event: %w", result.Error)
	}

	if result.RowsAffected > 0 {
		return true, event, nil
	}

	// Conflict: the event was seen before, fetch the existing record.
	var existing model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("provider_event_id = ?", eventID).
		First(&existing).Error
	if err != nil {
		r.logger.Error("Failed to load existing webhook event",
			zap.String("event_id", eventID),
			zap.Error(err))
		return false, nil, fmt.Errorf("failed to load existing webhook event: %w", err)
	}

	return false, &existing, nil
}

// MarkProcessed stamps processed_at. A no-op when the stamp is already set,
// so replayed completions cannot move the timestamp.
func (r *webhookEventRepository) MarkProcessed(ctx context.Context, eventID string) error {
	now := time.Now()

	result := r.db.WithContext(ctx).
		Model(&model.WebhookEvent{}).
		Where("provider_event_id = ? AND processed_at IS NULL", eventID).
		Update("processed_at", &now)

	if result.Error != nil {
		r.logger.Error("Failed to mark webhook event processed",
			zap.String("event_id", eventID),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark webhook event processed: %w", result.Error)
	}

	return nil
}
