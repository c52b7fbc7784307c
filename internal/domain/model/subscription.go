package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"

	domainErrors "github.com/beanbound/beanbound/internal/domain/errors"
)

// SubscriptionStatus represents the status of a subscription
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPaused    SubscriptionStatus = "paused"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
)

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = SubscriptionStatusActive
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Valid reports whether s is one of the four known statuses.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusPaused,
		SubscriptionStatusCancelled, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// StatusFromProvider maps a provider-reported subscription status onto the
// local status set. The second return is false for provider statuses that
// carry no local meaning (e.g. "incomplete"), in which case the local status
// is left untouched.
func StatusFromProvider(status string) (SubscriptionStatus, bool) {
	switch status {
	case "active", "trialing":
		return SubscriptionStatusActive, true
	case "past_due", "unpaid":
		return SubscriptionStatusPastDue, true
	case "canceled", "cancelled":
		return SubscriptionStatusCancelled, true
	case "paused":
		return SubscriptionStatusPaused, true
	}
	return "", false
}

// Subscription represents a recurring coffee delivery. The local record
// mirrors the payment provider's subscription for fulfillment decisions; the
// provider remains the source of truth for billing state.
type Subscription struct {
	ID                     uint64             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID                 uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	ProviderSubscriptionID *string            `gorm:"unique;size:100" json:"provider_subscription_id,omitempty"`
	PlanID                 uint64             `gorm:"not null;index" json:"plan_id"`
	Status                 SubscriptionStatus `gorm:"type:subscription_status;not null;default:'active';index" json:"status"`
	NextDeliveryDate       time.Time          `gorm:"not null;index" json:"next_delivery_date"`
	FailedPaymentCount     int                `gorm:"not null;default:0" json:"failed_payment_count"`
	CancelledAt            *time.Time         `json:"cancelled_at,omitempty"`
	BagSize                string             `gorm:"size:20" json:"bag_size"`
	Quantity               int                `gorm:"default:0" json:"quantity"`
	ShippingAddressID      *uint64            `json:"shipping_address_id,omitempty"`
	PaymentMethodID        *uint64            `json:"payment_method_id,omitempty"`
	CreatedAt              time.Time          `gorm:"default:now()" json:"created_at"`
	UpdatedAt              time.Time          `gorm:"default:now()" json:"updated_at"`

	// Relations
	Plan *Plan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// Pause transitions an active subscription to paused.
func (s *Subscription) Pause() error {
	if s.Status != SubscriptionStatusActive {
		return domainErrors.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusPaused
	return nil
}

// Resume transitions a paused subscription back to active and recomputes the
// next delivery date from today rather than from the stale pre-pause date.
func (s *Subscription) Resume(frequencyDays int, now time.Time) error {
	if s.Status != SubscriptionStatusPaused {
		return domainErrors.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusActive
	s.NextDeliveryDate = now.AddDate(0, 0, frequencyDays)
	return nil
}

// Cancel transitions an active or paused subscription to cancelled. A
// cancelled subscription never re-enters active; resubscribing creates a new
// record.
func (s *Subscription) Cancel(now time.Time) error {
	if s.Status != SubscriptionStatusActive && s.Status != SubscriptionStatusPaused {
		return domainErrors.ErrInvalidTransition
	}
	s.Status = SubscriptionStatusCancelled
	if s.CancelledAt == nil {
		t := now
		s.CancelledAt = &t
	}
	return nil
}

// ApplyProviderStatus reconciles the local status with a provider-reported
// one. The provider always wins. Returns true when the local record changed;
// applying the same status twice is a no-op so side effects are not re-fired.
func (s *Subscription) ApplyProviderStatus(status SubscriptionStatus, now time.Time) bool {
	if !status.Valid() || s.Status == status {
		return false
	}
	s.Status = status
	if status == SubscriptionStatusCancelled && s.CancelledAt == nil {
		t := now
		s.CancelledAt = &t
	}
	return true
}

// RecordPaymentFailure increments the failed-payment counter and moves the
// subscription to past_due. Returns the new counter value.
func (s *Subscription) RecordPaymentFailure() int {
	s.FailedPaymentCount++
	s.Status = SubscriptionStatusPastDue
	return s.FailedPaymentCount
}

// RecordPaymentSuccess resets the failed-payment counter and reconciles a
// past_due subscription back to active. Returns true when anything changed.
func (s *Subscription) RecordPaymentSuccess() bool {
	changed := false
	if s.FailedPaymentCount != 0 {
		s.FailedPaymentCount = 0
		changed = true
	}
	if s.Status == SubscriptionStatusPastDue {
		s.Status = SubscriptionStatusActive
		changed = true
	}
	return changed
}

// DeliveryQuantity returns the number of bags for one delivery, preferring
// the per-subscription override over the plan default.
func (s *Subscription) DeliveryQuantity() int {
	if s.Quantity > 0 {
		return s.Quantity
	}
	if s.Plan != nil && s.Plan.BagsPerDelivery > 0 {
		return s.Plan.BagsPerDelivery
	}
	return 1
}
