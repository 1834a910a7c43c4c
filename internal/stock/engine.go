package stock

import (
	"context"
	"log"
	"time"
)

// Engine applies checkout-batch semantics on top of a Store's per-variant
// guarded updates.
type Engine struct {
	Store Store
	TTL   time.Duration // reservation deadline window
}

// ReserveBatch reserves every item or none: on the first guard failure the
// already-applied reservations are released before the item-level error is
// surfaced.
func (e *Engine) ReserveBatch(ctx context.Context, items []Item) error {
	until := time.Now().Add(e.TTL)
	for i, it := range items {
		if err := e.Store.Reserve(ctx, it, until); err != nil {
			for _, done := range items[:i] {
				if _, rerr := e.Store.Release(ctx, done); rerr != nil {
					log.Printf("reserve rollback: release %s: %v", done, rerr)
				}
			}
			return err
		}
	}
	return nil
}

// FinalizeBatch converts a reservation into a sale. Any guard miss is a
// consistency fault; the caller runs this inside the order-creation
// transaction so the whole order rolls back with it.
func (e *Engine) FinalizeBatch(ctx context.Context, items []Item) error {
	for _, it := range items {
		if err := e.Store.Finalize(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// ReleaseBatch returns reserved units to stock. Replays are absorbed: items
// whose reservation is already gone fail the guard and are skipped.
func (e *Engine) ReleaseBatch(ctx context.Context, items []Item) (int, error) {
	released := 0
	for _, it := range items {
		ok, err := e.Store.Release(ctx, it)
		if err != nil {
			return released, err
		}
		if ok {
			released++
		}
	}
	return released, nil
}

// DeductBatch sells items directly without a reservation (pay on delivery).
// Run inside the order transaction: a guard miss aborts it whole.
func (e *Engine) DeductBatch(ctx context.Context, items []Item) error {
	for _, it := range items {
		if err := e.Store.DeductDirect(ctx, it); err != nil {
			return err
		}
	}
	return nil
}

// Sweep releases every expired reservation and reports how many variants
// were reclaimed. Safe to run concurrently with itself and with in-flight
// finalize/release calls.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	return e.Store.SweepExpired(ctx, time.Now())
}
