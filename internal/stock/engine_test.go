package stock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(product string, qty int) Item {
	return Item{ProductID: product, Color: "black", Size: "m", Qty: qty}
}

// total units known to exist for a variant, across all three counters
func totalUnits(t *testing.T, s *MemoryStore, it Item) int {
	t.Helper()
	stock, reserved, sold, ok := s.Counts(it)
	require.True(t, ok)
	return stock + reserved + sold
}

func TestReserveMovesStockToReserved(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 5)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	require.NoError(t, eng.ReserveBatch(context.Background(), []Item{item("p1", 5)}))

	stock, reserved, sold, _ := s.Counts(item("p1", 5))
	assert.Equal(t, 0, stock)
	assert.Equal(t, 5, reserved)
	assert.Equal(t, 0, sold)
}

func TestReleaseIsIdempotent(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 5)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}
	ctx := context.Background()

	require.NoError(t, eng.ReserveBatch(ctx, []Item{item("p1", 5)}))

	released, err := eng.ReleaseBatch(ctx, []Item{item("p1", 5)})
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	stock, reserved, _, _ := s.Counts(item("p1", 5))
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)

	// replay is absorbed by the guard
	released, err = eng.ReleaseBatch(ctx, []Item{item("p1", 5)})
	require.NoError(t, err)
	assert.Equal(t, 0, released)

	stock, reserved, _, _ = s.Counts(item("p1", 5))
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)
}

func TestReserveBatchRollsBackOnFailure(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("a", "black", "m", 10)
	s.SetVariant("b", "black", "m", 0)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	err := eng.ReserveBatch(context.Background(), []Item{
		{ProductID: "a", Color: "black", Size: "m", Qty: 2},
		{ProductID: "b", Color: "black", Size: "m", Qty: 1},
	})
	require.Error(t, err)

	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
	assert.Equal(t, "b", oos.Item.ProductID)
	assert.Equal(t, 0, oos.Available)

	// a's reservation was compensated; no net stock change anywhere
	stock, reserved, _, _ := s.Counts(item("a", 0))
	assert.Equal(t, 10, stock)
	assert.Equal(t, 0, reserved)
}

func TestFinalizeConvertsReservationToSale(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 5)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}
	ctx := context.Background()

	require.NoError(t, eng.ReserveBatch(ctx, []Item{item("p1", 2)}))
	require.NoError(t, eng.FinalizeBatch(ctx, []Item{item("p1", 2)}))

	stock, reserved, sold, _ := s.Counts(item("p1", 2))
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 2, sold)
}

func TestFinalizeWithoutReserveIsConsistencyFault(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 5)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	err := eng.FinalizeBatch(context.Background(), []Item{item("p1", 2)})
	require.ErrorIs(t, err, ErrConsistency)
}

func TestDoubleFinalizeIsConsistencyFault(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 5)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}
	ctx := context.Background()

	require.NoError(t, eng.ReserveBatch(ctx, []Item{item("p1", 2)}))
	require.NoError(t, eng.FinalizeBatch(ctx, []Item{item("p1", 2)}))
	require.ErrorIs(t, eng.FinalizeBatch(ctx, []Item{item("p1", 2)}), ErrConsistency)

	// the fault must not have double-counted anything
	stock, reserved, sold, _ := s.Counts(item("p1", 2))
	assert.Equal(t, 3, stock)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 2, sold)
}

func TestDeductDirect(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 1)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}
	ctx := context.Background()

	require.NoError(t, eng.DeductBatch(ctx, []Item{item("p1", 1)}))

	stock, reserved, sold, _ := s.Counts(item("p1", 1))
	assert.Equal(t, 0, stock)
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 1, sold)

	err := eng.DeductBatch(ctx, []Item{item("p1", 1)})
	var oos *OutOfStockError
	require.ErrorAs(t, err, &oos)
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	const initial = 10
	const callers = 25

	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", initial)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	var wg sync.WaitGroup
	results := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- eng.ReserveBatch(context.Background(), []Item{item("p1", 1)})
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			var oos *OutOfStockError
			require.ErrorAs(t, err, &oos)
		}
	}
	assert.Equal(t, initial, succeeded)

	stock, reserved, sold, _ := s.Counts(item("p1", 1))
	assert.Equal(t, 0, stock)
	assert.Equal(t, initial, reserved)
	assert.Equal(t, 0, sold)
	assert.GreaterOrEqual(t, stock, 0)
}

func TestTwoConcurrentTwosOnThreeStock(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 3)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = eng.ReserveBatch(context.Background(), []Item{item("p1", 2)})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	require.Equal(t, 1, succeeded)

	stock, reserved, _, _ := s.Counts(item("p1", 2))
	assert.Equal(t, 1, stock)
	assert.Equal(t, 2, reserved)
}

func TestConservationAcrossLifecycle(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 8)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}
	ctx := context.Background()
	it := item("p1", 3)

	require.Equal(t, 8, totalUnits(t, s, it))

	require.NoError(t, eng.ReserveBatch(ctx, []Item{it}))
	require.Equal(t, 8, totalUnits(t, s, it))

	_, err := eng.ReleaseBatch(ctx, []Item{it})
	require.NoError(t, err)
	require.Equal(t, 8, totalUnits(t, s, it))

	require.NoError(t, eng.ReserveBatch(ctx, []Item{it}))
	require.NoError(t, eng.FinalizeBatch(ctx, []Item{it}))
	require.Equal(t, 8, totalUnits(t, s, it))
}

func TestSweepReleasesOnlyExpired(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("old", "black", "m", 5)
	s.SetVariant("new", "black", "m", 5)
	ctx := context.Background()

	expired := &Engine{Store: s, TTL: -time.Minute}
	require.NoError(t, expired.ReserveBatch(ctx, []Item{{ProductID: "old", Color: "black", Size: "m", Qty: 5}}))

	live := &Engine{Store: s, TTL: 15 * time.Minute}
	require.NoError(t, live.ReserveBatch(ctx, []Item{{ProductID: "new", Color: "black", Size: "m", Qty: 2}}))

	released, err := live.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, released)

	stock, reserved, _, _ := s.Counts(Item{ProductID: "old", Color: "black", Size: "m"})
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, reserved)

	stock, reserved, _, _ = s.Counts(Item{ProductID: "new", Color: "black", Size: "m"})
	assert.Equal(t, 3, stock)
	assert.Equal(t, 2, reserved)

	// second run right away performs nothing
	released, err = live.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestSweepNoExpiredIsNoop(t *testing.T) {
	s := NewMemoryStore()
	s.SetVariant("p1", "black", "m", 5)
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	released, err := eng.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, released)
}

func TestReserveUnknownVariant(t *testing.T) {
	s := NewMemoryStore()
	eng := &Engine{Store: s, TTL: 15 * time.Minute}

	err := eng.ReserveBatch(context.Background(), []Item{item("ghost", 1)})
	var oos *OutOfStockError
	require.True(t, errors.As(err, &oos))
	assert.Equal(t, 0, oos.Available)
}
