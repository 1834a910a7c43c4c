package catalog

import "time"

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PriceCents  int       `json:"price_cents"`
	ImageURL    string    `json:"image_url,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Variant is one color/size combination with its own counters. A unit lives
// in exactly one of stock/reserved_stock/sold; reservation transfers, never
// duplicates.
type Variant struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	Color         string     `json:"color"`
	Size          string     `json:"size"`
	Stock         int        `json:"stock"`
	ReservedStock int        `json:"reserved_stock"`
	ReservedUntil *time.Time `json:"reserved_until,omitempty"`
	Sold          int        `json:"sold"`
}
