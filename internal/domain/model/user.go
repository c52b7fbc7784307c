package model

import (
	"time"

	"github.com/google/uuid"
)

// User is a customer account. The provider customer ID maps webhook payloads
// back to the local account.
type User struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email              string     `gorm:"unique;not null;size:255" json:"email"`
	Name               string     `gorm:"size:200" json:"name"`
	ProviderCustomerID *string    `gorm:"unique;size:100" json:"provider_customer_id,omitempty"`
	RoastPreference    RoastLevel `gorm:"type:roast_level" json:"roast_preference,omitempty"`
	CreatedAt          time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
