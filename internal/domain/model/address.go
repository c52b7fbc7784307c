package model

import (
	"time"

	"github.com/google/uuid"
)

// Address is a shipping address owned by a user. Subscriptions hold a
// reference; orders copy the fields at creation time.
type Address struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Recipient  string    `gorm:"not null;size:200" json:"recipient"`
	Street     string    `gorm:"not null;size:200" json:"street"`
	City       string    `gorm:"not null;size:100" json:"city"`
	Region     string    `gorm:"size:100" json:"region"`
	PostalCode string    `gorm:"size:20" json:"postal_code"`
	Country    string    `gorm:"not null;size:2" json:"country"`
	IsDefault  bool      `gorm:"default:false" json:"is_default"`
	CreatedAt  time.Time `gorm:"default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Address) TableName() string {
	return "addresses"
}
