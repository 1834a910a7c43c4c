package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("cart not found")

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repo struct{ DB *pgxpool.Pool }

func ownerClause(o Owner) (string, any) {
	if o.UserID != "" {
		return "user_id = $1", o.UserID
	}
	return "guest_token = $1", o.GuestToken
}

// Get returns the owner's cart, or ErrNotFound if none was ever created.
func (r *Repo) Get(ctx context.Context, o Owner) (*Cart, error) {
	return getCart(ctx, r.DB, o)
}

func getCart(ctx context.Context, q Querier, o Owner) (*Cart, error) {
	if !o.Valid() {
		return nil, ErrNotFound
	}
	clause, arg := ownerClause(o)
	var c Cart
	var userID, guestToken *string
	err := q.QueryRow(ctx, `
		SELECT id, user_id, guest_token, created_at, updated_at
		  FROM carts WHERE `+clause, arg).
		Scan(&c.ID, &userID, &guestToken, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID != nil {
		c.UserID = *userID
	}
	if guestToken != nil {
		c.GuestToken = *guestToken
	}

	rows, err := q.Query(ctx, `
		SELECT product_id, name, color, size, qty, price_cents
		  FROM cart_items WHERE cart_id = $1 ORDER BY added_at`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Color, &it.Size, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

// ensure creates the owner's cart row lazily and returns its id.
func ensure(ctx context.Context, q Querier, o Owner) (string, error) {
	if !o.Valid() {
		return "", errors.New("cart owner must be a user or a guest, not both")
	}
	clause, arg := ownerClause(o)
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM carts WHERE `+clause, arg).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}

	id = uuid.NewString()
	var userID, guestToken *string
	if o.UserID != "" {
		userID = &o.UserID
	} else {
		guestToken = &o.GuestToken
	}
	_, err = q.Exec(ctx, `
		INSERT INTO carts(id, user_id, guest_token) VALUES ($1, $2, $3)`,
		id, userID, guestToken)
	return id, err
}

// AddItem appends a line, merging into an existing line for the same
// variant by summing quantity. The stored price snapshot is kept from the
// first add.
func (r *Repo) AddItem(ctx context.Context, o Owner, it Item) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cartID, err := ensure(ctx, tx, o)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items(cart_id, product_id, name, color, size, qty, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (cart_id, product_id, color, size)
		DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty`,
		cartID, it.ProductID, it.Name, it.Color, it.Size, it.Qty, it.PriceCents)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpdateQty sets a line's quantity; qty <= 0 removes the line.
func (r *Repo) UpdateQty(ctx context.Context, o Owner, productID, color, size string, qty int) error {
	if qty <= 0 {
		return r.RemoveItem(ctx, o, productID, color, size)
	}
	c, err := getCart(ctx, r.DB, o)
	if err != nil {
		return err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE cart_items SET qty = $5
		 WHERE cart_id = $1 AND product_id = $2 AND color = $3 AND size = $4`,
		c.ID, productID, color, size, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) RemoveItem(ctx context.Context, o Owner, productID, color, size string) error {
	c, err := getCart(ctx, r.DB, o)
	if err != nil {
		return err
	}
	_, err = r.DB.Exec(ctx, `
		DELETE FROM cart_items
		 WHERE cart_id = $1 AND product_id = $2 AND color = $3 AND size = $4`,
		c.ID, productID, color, size)
	return err
}

// Clear deletes the cart and its lines entirely.
func (r *Repo) Clear(ctx context.Context, o Owner) error {
	c, err := getCart(ctx, r.DB, o)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return DeleteTx(ctx, r.DB, c.ID)
}

// DeleteTx removes a cart by id using the caller's querier, so order
// creation can clear the cart inside its own transaction.
func DeleteTx(ctx context.Context, q Querier, cartID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	_, err := q.Exec(ctx, `DELETE FROM carts WHERE id = $1`, cartID)
	return err
}

// MergeGuestIntoUser folds a guest cart into the user's cart on sign-in,
// summing quantities for matching variants, then deletes the guest cart.
func (r *Repo) MergeGuestIntoUser(ctx context.Context, guestToken, userID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	guest, err := getCart(ctx, tx, Owner{GuestToken: guestToken})
	if errors.Is(err, ErrNotFound) {
		return nil // nothing to merge
	}
	if err != nil {
		return err
	}

	userCartID, err := ensure(ctx, tx, Owner{UserID: userID})
	if err != nil {
		return err
	}
	user, err := getCart(ctx, tx, Owner{UserID: userID})
	if err != nil {
		return err
	}

	merged := MergeItems(user.Items, guest.Items)
	if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, userCartID); err != nil {
		return err
	}
	for _, it := range merged {
		_, err = tx.Exec(ctx, `
			INSERT INTO cart_items(cart_id, product_id, name, color, size, qty, price_cents)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			userCartID, it.ProductID, it.Name, it.Color, it.Size, it.Qty, it.PriceCents)
		if err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, userCartID); err != nil {
		return err
	}
	if err := DeleteTx(ctx, tx, guest.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
