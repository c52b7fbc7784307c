package config

type ServiceConfig struct {
	Name                string `yaml:"name"`
	Environment         string `yaml:"environment"`
	Version             string `yaml:"version"`
	ClientURL           string `yaml:"client_url"`
	StripeSecretKey     string `yaml:"stripe_secret_key"`
	StripeWebhookSecret string `yaml:"stripe_webhook_secret"`
	JWTSecret           string `yaml:"jwt_secret"`
}

// IsProduction reports whether the service runs in a production environment.
// The webhook handler refuses unsigned events in production.
func (c *ServiceConfig) IsProduction() bool {
	return c.Environment == "production"
}

// BillingConfig holds the tunables of the recurring billing pipeline.
type BillingConfig struct {
	// FailedPaymentThreshold is the failed_payment_count at which a
	// subscription is flagged for operator review.
	FailedPaymentThreshold int `yaml:"failed_payment_threshold"`

	// AutoCancelAfterFailures opts in to cancelling a subscription once the
	// threshold is reached. Off by default: cancelling is a revenue decision.
	AutoCancelAfterFailures bool `yaml:"auto_cancel_after_failures"`

	// ShippingFlatCents is the flat-rate shipping charge per order.
	ShippingFlatCents int64 `yaml:"shipping_flat_cents"`

	// TaxRate is a decimal rate applied to the order subtotal, e.g. "0.0875".
	TaxRate string `yaml:"tax_rate"`

	// SweepInterval is how often the in-process delivery sweep runs.
	// Zero disables the in-process sweep (use cmd/sweep from cron instead).
	SweepInterval string `yaml:"sweep_interval"`
}

func (c *BillingConfig) applyDefaults() {
	if c.FailedPaymentThreshold == 0 {
		c.FailedPaymentThreshold = 3
	}
	if c.ShippingFlatCents == 0 {
		c.ShippingFlatCents = 500
	}
	if c.TaxRate == "" {
		c.TaxRate = "0"
	}
}
