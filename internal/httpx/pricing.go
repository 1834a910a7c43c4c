package httpx

// Pricing turns a cart subtotal into the server-computed order totals.
// Tax is basis points so the math stays in integer cents.
type Pricing struct {
	ShippingFlatCents int
	TaxRateBps        int
	Currency          string
}

func (p Pricing) Totals(subtotalCents int) (shipping, tax, total int) {
	shipping = p.ShippingFlatCents
	tax = subtotalCents * p.TaxRateBps / 10000
	total = subtotalCents + shipping + tax
	return shipping, tax, total
}

func (p Pricing) currency() string {
	if p.Currency == "" {
		return "USD"
	}
	return p.Currency
}
