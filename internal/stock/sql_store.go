package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx, so the same store runs
// standalone or inside the order-creation transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type SQLStore struct{ DB Querier }

func (s *SQLStore) Reserve(ctx context.Context, it Item, until time.Time) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE variants
		   SET stock = stock - $4,
		       reserved_stock = reserved_stock + $4,
		       reserved_until = $5
		 WHERE product_id = $1 AND color = $2 AND size = $3 AND stock >= $4`,
		it.ProductID, it.Color, it.Size, it.Qty, until)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return s.outOfStock(ctx, it)
	}
	return nil
}

func (s *SQLStore) Finalize(ctx context.Context, it Item) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE variants
		   SET reserved_stock = reserved_stock - $4,
		       sold = sold + $4,
		       reserved_until = CASE WHEN reserved_stock - $4 = 0 THEN NULL ELSE reserved_until END
		 WHERE product_id = $1 AND color = $2 AND size = $3 AND reserved_stock >= $4`,
		it.ProductID, it.Color, it.Size, it.Qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("finalize %s qty=%d: %w", it, it.Qty, ErrConsistency)
	}
	return nil
}

func (s *SQLStore) Release(ctx context.Context, it Item) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE variants
		   SET stock = stock + $4,
		       reserved_stock = reserved_stock - $4,
		       reserved_until = CASE WHEN reserved_stock - $4 = 0 THEN NULL ELSE reserved_until END
		 WHERE product_id = $1 AND color = $2 AND size = $3 AND reserved_stock >= $4`,
		it.ProductID, it.Color, it.Size, it.Qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

func (s *SQLStore) DeductDirect(ctx context.Context, it Item) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE variants
		   SET stock = stock - $4,
		       sold = sold + $4
		 WHERE product_id = $1 AND color = $2 AND size = $3 AND stock >= $4`,
		it.ProductID, it.Color, it.Size, it.Qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return s.outOfStock(ctx, it)
	}
	return nil
}

func (s *SQLStore) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE variants
		   SET stock = stock + reserved_stock,
		       reserved_stock = 0,
		       reserved_until = NULL
		 WHERE reserved_stock > 0 AND reserved_until IS NOT NULL AND reserved_until < $1`,
		now)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

// outOfStock re-reads the current count only to name the shortfall in the
// error; the guard already decided the outcome.
func (s *SQLStore) outOfStock(ctx context.Context, it Item) error {
	var avail int
	err := s.DB.QueryRow(ctx, `
		SELECT stock FROM variants WHERE product_id = $1 AND color = $2 AND size = $3`,
		it.ProductID, it.Color, it.Size).Scan(&avail)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", it, ErrVariantNotFound)
	}
	if err != nil {
		return err
	}
	return &OutOfStockError{Item: it, Available: avail}
}
