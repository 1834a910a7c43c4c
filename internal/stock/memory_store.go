package stock

import (
	"context"
	"sync"
	"time"
)

type variantKey struct {
	productID, color, size string
}

type variantState struct {
	stock    int
	reserved int
	sold     int
	until    time.Time
	deadline bool
}

// MemoryStore keeps variant counters in memory behind a mutex, applying the
// same guards as the SQL store. Used for local development and tests.
type MemoryStore struct {
	mu       sync.Mutex
	variants map[variantKey]*variantState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{variants: make(map[variantKey]*variantState)}
}

// SetVariant creates or resets a variant's counters.
func (s *MemoryStore) SetVariant(productID, color, size string, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[variantKey{productID, color, size}] = &variantState{stock: stock}
}

// Counts reports a variant's (stock, reserved, sold) counters.
func (s *MemoryStore) Counts(it Item) (stock, reserved, sold int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantKey{it.ProductID, it.Color, it.Size}]
	if !ok {
		return 0, 0, 0, false
	}
	return v.stock, v.reserved, v.sold, true
}

func (s *MemoryStore) Reserve(_ context.Context, it Item, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantKey{it.ProductID, it.Color, it.Size}]
	if !ok {
		return &OutOfStockError{Item: it, Available: 0}
	}
	if v.stock < it.Qty {
		return &OutOfStockError{Item: it, Available: v.stock}
	}
	v.stock -= it.Qty
	v.reserved += it.Qty
	v.until = until
	v.deadline = true
	return nil
}

func (s *MemoryStore) Finalize(_ context.Context, it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantKey{it.ProductID, it.Color, it.Size}]
	if !ok || v.reserved < it.Qty {
		return ErrConsistency
	}
	v.reserved -= it.Qty
	v.sold += it.Qty
	if v.reserved == 0 {
		v.deadline = false
	}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, it Item) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantKey{it.ProductID, it.Color, it.Size}]
	if !ok || v.reserved < it.Qty {
		return false, nil
	}
	v.stock += it.Qty
	v.reserved -= it.Qty
	if v.reserved == 0 {
		v.deadline = false
	}
	return true, nil
}

func (s *MemoryStore) DeductDirect(_ context.Context, it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.variants[variantKey{it.ProductID, it.Color, it.Size}]
	if !ok {
		return &OutOfStockError{Item: it, Available: 0}
	}
	if v.stock < it.Qty {
		return &OutOfStockError{Item: it, Available: v.stock}
	}
	v.stock -= it.Qty
	v.sold += it.Qty
	return nil
}

func (s *MemoryStore) SweepExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, v := range s.variants {
		if v.reserved > 0 && v.deadline && v.until.Before(now) {
			v.stock += v.reserved
			v.reserved = 0
			v.deadline = false
			n++
		}
	}
	return n, nil
}
