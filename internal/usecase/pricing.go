package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/beanbound/beanbound/internal/domain/model"
)

// ShippingCalculator computes the shipping charge for an order.
type ShippingCalculator interface {
	ShippingCents(order *model.Order) int64
}

// TaxCalculator computes tax on an order subtotal.
type TaxCalculator interface {
	TaxCents(subtotalCents int64) int64
}

// FlatRateShipping charges the same amount for every order.
type FlatRateShipping struct {
	Cents int64
}

func (f FlatRateShipping) ShippingCents(*model.Order) int64 {
	return f.Cents
}

// PercentTax applies a fixed decimal rate to the subtotal, rounding to the
// nearest cent.
type PercentTax struct {
	rate decimal.Decimal
}

// NewPercentTax parses a decimal rate string such as "0.0875".
func NewPercentTax(rate string) (PercentTax, error) {
	d, err := decimal.NewFromString(rate)
	if err != nil {
		return PercentTax{}, fmt.Errorf("invalid tax rate %q: %w", rate, err)
	}
	return PercentTax{rate: d}, nil
}

func (p PercentTax) TaxCents(subtotalCents int64) int64 {
	return decimal.NewFromInt(subtotalCents).Mul(p.rate).Round(0).IntPart()
}
