package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davitr/go-storefront/internal/cart"
	"github.com/davitr/go-storefront/internal/stock"
)

var ErrNotFound = errors.New("order not found")

type Repo struct{ DB *pgxpool.Pool }

type CreateInput struct {
	UserID        string
	Cart          *cart.Cart
	PaymentMethod string
	TransactionID string // required for pay-now, empty for pay-on-delivery
	Address       Address
	ShippingCents int
	TaxCents      int
	DiscountCents int
}

// CreateOrderTx creates the order, converts the stock reservation into a
// sale (or deducts directly for pay-on-delivery) and deletes the cart, all
// in one transaction. It is idempotent on the transaction id: a replayed
// capture callback gets the existing order back instead of a duplicate.
func (r *Repo) CreateOrderTx(ctx context.Context, in CreateInput) (o *Order, existed bool, err error) {
	if in.TransactionID != "" {
		if o, err := r.GetByTransactionID(ctx, in.TransactionID); err == nil {
			return o, true, nil
		} else if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	subtotal := in.Cart.SubtotalCents()
	total := subtotal + in.ShippingCents + in.TaxCents - in.DiscountCents

	paymentStatus := PaymentPending
	if in.PaymentMethod == MethodPayNow {
		paymentStatus = PaymentPaid
	}

	order := &Order{
		ID:              uuid.NewString(),
		Number:          newOrderNumber(),
		UserID:          in.UserID,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   paymentStatus,
		OrderStatus:     StatusPlaced,
		SubtotalCents:   subtotal,
		ShippingCents:   in.ShippingCents,
		TaxCents:        in.TaxCents,
		DiscountCents:   in.DiscountCents,
		TotalCents:      total,
		ShippingAddress: in.Address,
		TransactionID:   in.TransactionID,
	}

	addr, err := json.Marshal(in.Address)
	if err != nil {
		return nil, false, err
	}
	var txnID *string
	if in.TransactionID != "" {
		txnID = &in.TransactionID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, number, user_id, payment_method, payment_status, order_status,
		                   subtotal_cents, shipping_cents, tax_cents, discount_cents, total_cents,
		                   shipping_address, transaction_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		order.ID, order.Number, order.UserID, order.PaymentMethod, order.PaymentStatus,
		order.OrderStatus, order.SubtotalCents, order.ShippingCents, order.TaxCents,
		order.DiscountCents, order.TotalCents, addr, txnID)
	if err != nil {
		// A concurrent replay with the same transaction id lost the race to
		// the unique index; hand back the order it created.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && in.TransactionID != "" {
			if o, gerr := r.GetByTransactionID(ctx, in.TransactionID); gerr == nil {
				return o, true, nil
			}
		}
		return nil, false, err
	}

	items := make([]stock.Item, 0, len(in.Cart.Items))
	for _, it := range in.Cart.Items {
		order.Items = append(order.Items, OrderItem{
			ProductID: it.ProductID, Name: it.Name, Color: it.Color,
			Size: it.Size, Qty: it.Qty, PriceCents: it.PriceCents,
		})
		items = append(items, stock.Item{
			ProductID: it.ProductID, Color: it.Color, Size: it.Size, Qty: it.Qty,
		})
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, name, color, size, qty, price_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			order.ID, it.ProductID, it.Name, it.Color, it.Size, it.Qty, it.PriceCents)
		if err != nil {
			return nil, false, err
		}
	}

	eng := &stock.Engine{Store: &stock.SQLStore{DB: tx}}
	switch in.PaymentMethod {
	case MethodPayNow:
		err = eng.FinalizeBatch(ctx, items)
	case MethodPayOnDelivery:
		err = eng.DeductBatch(ctx, items)
	default:
		err = fmt.Errorf("unknown payment method %q", in.PaymentMethod)
	}
	if err != nil {
		return nil, false, err
	}

	if err := cart.DeleteTx(ctx, tx, in.Cart.ID); err != nil {
		return nil, false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return order, false, nil
}

func newOrderNumber() string {
	return "SF-" + strings.ToUpper(uuid.NewString()[:8])
}

const orderColumns = `id, number, user_id, payment_method, payment_status, order_status,
	subtotal_cents, shipping_cents, tax_cents, discount_cents, total_cents,
	shipping_address, transaction_id, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var addr []byte
	var txnID *string
	err := row.Scan(&o.ID, &o.Number, &o.UserID, &o.PaymentMethod, &o.PaymentStatus,
		&o.OrderStatus, &o.SubtotalCents, &o.ShippingCents, &o.TaxCents, &o.DiscountCents,
		&o.TotalCents, &addr, &txnID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(addr, &o.ShippingAddress); err != nil {
		return nil, err
	}
	if txnID != nil {
		o.TransactionID = *txnID
	}
	return &o, nil
}

func (r *Repo) loadItems(ctx context.Context, o *Order) error {
	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, color, size, qty, price_cents
		  FROM order_items WHERE order_id = $1`, o.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Color, &it.Size, &it.Qty, &it.PriceCents); err != nil {
			return err
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) GetByTransactionID(ctx context.Context, txnID string) (*Order, error) {
	o, err := scanOrder(r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE transaction_id = $1`, txnID))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus moves one or both status axes; each axis is independent and
// no transition is rejected based on the current state.
func (r *Repo) UpdateStatus(ctx context.Context, id string, orderStatus *OrderStatus, paymentStatus *PaymentStatus) (*Order, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	if orderStatus != nil {
		args = append(args, *orderStatus)
		sets = append(sets, fmt.Sprintf("order_status = $%d", len(args)))
	}
	if paymentStatus != nil {
		args = append(args, *paymentStatus)
		sets = append(sets, fmt.Sprintf("payment_status = $%d", len(args)))
	}
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// Delete removes an order entirely; reachable only from the admin console.
// Items go with it via the order_items FK cascade.
func (r *Repo) Delete(ctx context.Context, id string) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
