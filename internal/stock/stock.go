package stock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Item identifies one variant plus a quantity inside a checkout batch.
type Item struct {
	ProductID string
	Color     string
	Size      string
	Qty       int
}

func (it Item) String() string {
	return fmt.Sprintf("%s/%s/%s", it.ProductID, it.Color, it.Size)
}

var (
	ErrVariantNotFound = errors.New("variant not found")

	// ErrConsistency means a finalize matched zero rows: either it ran twice
	// for the same order or the reservation never existed. Treated as a
	// server fault, never shown to shoppers as a normal error.
	ErrConsistency = errors.New("reservation consistency violation")
)

// OutOfStockError reports the item whose stock guard failed.
type OutOfStockError struct {
	Item      Item
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("out of stock: %s requested=%d available=%d", e.Item, e.Item.Qty, e.Available)
}

// Store is the per-variant counter store. Every method must be a single
// atomic guarded update, never a read-then-write sequence; two concurrent
// checkouts for the last unit must not both succeed.
type Store interface {
	// Reserve moves qty units from stock into reserved_stock when
	// stock >= qty, stamping the reservation deadline.
	Reserve(ctx context.Context, it Item, until time.Time) error

	// Finalize converts qty reserved units into sold units. A guard miss is
	// ErrConsistency, not a no-op.
	Finalize(ctx context.Context, it Item) error

	// Release moves qty reserved units back to stock. A guard miss means the
	// release already happened; it is absorbed and reported as false.
	Release(ctx context.Context, it Item) (bool, error)

	// DeductDirect sells qty units without a reservation phase
	// (pay-on-delivery path).
	DeductDirect(ctx context.Context, it Item) error

	// SweepExpired releases every reservation whose deadline has passed and
	// returns how many variants were touched.
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}
