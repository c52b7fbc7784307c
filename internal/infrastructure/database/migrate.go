package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	if err := createExtensions(db); err != nil {
		logger.Error("Failed to create extensions", zap.Error(err))
		return err
	}

	// Custom types must exist BEFORE auto-migrate references them.
	if err := createCustomTypes(db); err != nil {
		logger.Error("Failed to create custom types", zap.Error(err))
		return err
	}

	err := db.AutoMigrate(
		&model.User{},
		&model.Address{},
		&model.PaymentMethod{},
		&model.Plan{},
		&model.Product{},
		&model.Subscription{},
		&model.WebhookEvent{},
		&model.Order{},
		&model.OrderItem{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes GORM doesn't handle automatically
func createCustomIndexes(db *gorm.DB) error {
	// One generated order per subscription billing period. Partial because
	// scheduler-generated orders carry no invoice id.
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS unique_order_per_subscription_invoice ON orders (subscription_id, provider_invoice_id) WHERE provider_invoice_id IS NOT NULL`).Error; err != nil {
		return err
	}

	// Sweep query path: active subscriptions ordered by due date.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_due ON subscriptions (next_delivery_date) WHERE status = 'active'`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_webhook_events_unprocessed ON webhook_events (created_at) WHERE processed_at IS NULL`).Error; err != nil {
		return err
	}

	return nil
}

// createExtensions creates required PostgreSQL extensions
func createExtensions(db *gorm.DB) error {
	return db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error
}

// createCustomTypes creates custom PostgreSQL types
func createCustomTypes(db *gorm.DB) error {
	types := map[string]string{
		"subscription_status": `CREATE TYPE subscription_status AS ENUM ('active', 'paused', 'cancelled', 'past_due')`,
		"order_type":          `CREATE TYPE order_type AS ENUM ('subscription', 'one_time')`,
		"order_status":        `CREATE TYPE order_status AS ENUM ('pending', 'processing', 'roasting', 'shipped', 'delivered', 'cancelled')`,
		"roast_level":         `CREATE TYPE roast_level AS ENUM ('light', 'medium', 'dark')`,
	}

	for name, ddl := range types {
		var exists bool
		db.Raw(`SELECT EXISTS (SELECT 1 FROM pg_type WHERE typname = ?)`, name).Scan(&exists)
		if !exists {
			if err := db.Exec(ddl).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
