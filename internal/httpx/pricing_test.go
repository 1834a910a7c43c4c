package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingTotals(t *testing.T) {
	p := Pricing{ShippingFlatCents: 500, TaxRateBps: 700}

	shipping, tax, total := p.Totals(2000)
	assert.Equal(t, 500, shipping)
	assert.Equal(t, 140, tax)
	assert.Equal(t, 2640, total)

	// tax truncates toward zero
	_, tax, _ = p.Totals(99)
	assert.Equal(t, 6, tax)

	shipping, tax, total = Pricing{}.Totals(1000)
	assert.Equal(t, 0, shipping)
	assert.Equal(t, 0, tax)
	assert.Equal(t, 1000, total)
}

func TestPricingCurrencyDefault(t *testing.T) {
	assert.Equal(t, "USD", Pricing{}.currency())
	assert.Equal(t, "EUR", Pricing{Currency: "EUR"}.currency())
}
