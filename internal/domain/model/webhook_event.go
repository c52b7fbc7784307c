package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// WebhookEvent is the idempotency record for a provider webhook delivery.
// Exactly one row per provider event ID ever exists; the unique constraint is
// what makes concurrent redelivery safe.
type WebhookEvent struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProviderEventID string     `gorm:"unique;not null;size:255;index" json:"provider_event_id"`
	EventType       string     `gorm:"not null;size:100;index" json:"event_type"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	Payload         JSONB      `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt       time.Time  `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Processed reports whether the event has completed handler dispatch.
func (e *WebhookEvent) Processed() bool {
	return e.ProcessedAt != nil
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}
