package model

import (
	"database/sql/driver"
	"time"
)

// RoastLevel is a coffee roast profile.
type RoastLevel string

const (
	RoastLight  RoastLevel = "light"
	RoastMedium RoastLevel = "medium"
	RoastDark   RoastLevel = "dark"
)

// Scan implements sql.Scanner interface
func (r *RoastLevel) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*r = RoastLevel(v)
	case []byte:
		*r = RoastLevel(v)
	default:
		*r = RoastMedium
	}
	return nil
}

// Value implements driver.Valuer interface
func (r RoastLevel) Value() (driver.Value, error) {
	return string(r), nil
}

// Product is a coffee in the catalog.
type Product struct {
	ID            uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string     `gorm:"not null;size:200" json:"name"`
	Origin        string     `gorm:"size:100" json:"origin"`
	RoastLevel    RoastLevel `gorm:"type:roast_level;not null;default:'medium';index" json:"roast_level"`
	PriceCents    int64      `gorm:"not null" json:"price_cents"`
	StockQuantity int        `gorm:"not null;default:0" json:"stock_quantity"`
	IsActive      bool       `gorm:"default:true;index" json:"is_active"`
	CreatedAt     time.Time  `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"default:now()" json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Product) TableName() string {
	return "products"
}

// InStock reports whether the product can be picked for an order.
func (p *Product) InStock() bool {
	return p.IsActive && p.StockQuantity > 0
}
