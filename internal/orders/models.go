package orders

import "time"

type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// Order is immutable once created except for its two status axes, which
// staff move independently.
type Order struct {
	ID            string        `json:"id"`
	Number        string        `json:"number"`
	UserID        string        `json:"user_id"`
	PaymentMethod string        `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	OrderStatus   OrderStatus   `json:"order_status"`

	SubtotalCents int `json:"subtotal_cents"`
	ShippingCents int `json:"shipping_cents"`
	TaxCents      int `json:"tax_cents"`
	DiscountCents int `json:"discount_cents"`
	TotalCents    int `json:"total_cents"`

	ShippingAddress Address `json:"shipping_address"`

	// TransactionID is the gateway capture id for pay-now orders; a given
	// capture maps to at most one order.
	TransactionID string `json:"transaction_id,omitempty"`

	Items     []OrderItem `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// OrderItem is a purchase-time snapshot; later catalog edits never change it.
type OrderItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Size       string `json:"size"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}
