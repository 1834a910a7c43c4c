package cart

import "time"

// Owner identifies a cart by exactly one of a signed-in user id or an
// anonymous guest token.
type Owner struct {
	UserID     string
	GuestToken string
}

func (o Owner) Valid() bool {
	return (o.UserID != "") != (o.GuestToken != "")
}

type Cart struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id,omitempty"`
	GuestToken string    `json:"guest_token,omitempty"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Item is one cart line. Name and price are snapshots taken when the line
// was added; later catalog edits do not reprice a cart.
type Item struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	Color      string `json:"color"`
	Size       string `json:"size"`
	Qty        int    `json:"qty"`
	PriceCents int    `json:"price_cents"`
}

func (c *Cart) SubtotalCents() int {
	total := 0
	for _, it := range c.Items {
		total += it.PriceCents * it.Qty
	}
	return total
}

// MergeItems folds src lines into dst: lines for the same
// (product, color, size) merge by summing quantity, keeping dst's snapshot
// fields; unmatched src lines append in order.
func MergeItems(dst, src []Item) []Item {
	out := make([]Item, len(dst))
	copy(out, dst)
	for _, s := range src {
		merged := false
		for i := range out {
			if out[i].ProductID == s.ProductID && out[i].Color == s.Color && out[i].Size == s.Size {
				out[i].Qty += s.Qty
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, s)
		}
	}
	return out
}
