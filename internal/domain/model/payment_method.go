package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is a local copy of provider payment-method metadata. The
// provider stores the actual card; we keep enough to render it and to point
// subscriptions at it.
type PaymentMethod struct {
	ID                uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	ProviderMethodID  string    `gorm:"unique;not null;size:100" json:"provider_method_id"`
	Brand             string    `gorm:"size:40" json:"brand"`
	Last4             string    `gorm:"size:4" json:"last4"`
	ExpMonth          int       `json:"exp_month"`
	ExpYear           int       `json:"exp_year"`
	IsDefault         bool      `gorm:"default:false" json:"is_default"`
	CreatedAt         time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt         time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (PaymentMethod) TableName() string {
	return "payment_methods"
}
