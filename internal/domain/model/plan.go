package model

import "time"

// Plan is a subscription plan: delivery cadence, bag count and price.
type Plan struct {
	ID              uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string    `gorm:"not null;size:200" json:"name"`
	ProviderPriceID string    `gorm:"column:provider_price_id;unique;not null;size:100" json:"provider_price_id"`
	FrequencyDays   int       `gorm:"not null" json:"frequency_days"`
	BagsPerDelivery int       `gorm:"not null;default:1" json:"bags_per_delivery"`
	PriceCents      int64     `gorm:"not null" json:"price_cents"`
	IsActive        bool      `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt       time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Plan) TableName() string {
	return "plans"
}
