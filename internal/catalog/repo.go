package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, p *Product) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO products(id, name, description, price_cents, image_url)
		VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.Name, p.Description, p.PriceCents, p.ImageURL)
	if err != nil {
		return err
	}
	for i := range p.Variants {
		v := &p.Variants[i]
		if v.ID == "" {
			v.ID = uuid.NewString()
		}
		v.ProductID = p.ID
		_, err = tx.Exec(ctx, `
			INSERT INTO variants(id, product_id, color, size, stock)
			VALUES ($1, $2, $3, $4, $5)`,
			v.ID, p.ID, v.Color, v.Size, v.Stock)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *Repo) Update(ctx context.Context, p *Product) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE products
		   SET name = $2, description = $3, price_cents = $4, image_url = $5, updated_at = now()
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, p.PriceCents, p.ImageURL)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := r.DB.QueryRow(ctx, `
		SELECT id, name, description, price_cents, image_url, created_at, updated_at
		  FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, product_id, color, size, stock, reserved_stock, reserved_until, sold
		  FROM variants WHERE product_id = $1 ORDER BY color, size`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Color, &v.Size, &v.Stock, &v.ReservedStock, &v.ReservedUntil, &v.Sold); err != nil {
			return nil, err
		}
		p.Variants = append(p.Variants, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, description, price_cents, image_url, created_at, updated_at
		  FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetVariantStock adds sellable units to a variant, creating it on first
// use. Reserved and sold counters are never touched from the admin path.
func (r *Repo) SetVariantStock(ctx context.Context, productID, color, size string, stock int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO variants(id, product_id, color, size, stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, color, size)
		DO UPDATE SET stock = EXCLUDED.stock`,
		uuid.NewString(), productID, color, size, stock)
	return err
}
