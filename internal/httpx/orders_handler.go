package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/davitr/go-storefront/internal/cart"
	kafkax "github.com/davitr/go-storefront/internal/kafka"
	"github.com/davitr/go-storefront/internal/orders"
	"github.com/davitr/go-storefront/internal/redisx"
	"github.com/davitr/go-storefront/internal/stock"
)

type OrderStore interface {
	CreateOrderTx(ctx context.Context, in orders.CreateInput) (*orders.Order, bool, error)
	GetByID(ctx context.Context, id string) (*orders.Order, error)
	GetByTransactionID(ctx context.Context, txnID string) (*orders.Order, error)
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
	UpdateStatus(ctx context.Context, id string, orderStatus *orders.OrderStatus, paymentStatus *orders.PaymentStatus) (*orders.Order, error)
	Delete(ctx context.Context, id string) error
}

// Publisher is the outbound event bus; *kafka.Producer satisfies it.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type OrdersHandler struct {
	Repo            OrderStore
	Cart            CartStore
	CreatedProducer Publisher
	StatusProducer  Publisher
	Redis           *redis.Client // optional idempotency fast path + status cache
	Service         string
	Pricing         Pricing
}

type CreateOrderReq struct {
	PaymentMethod string         `json:"payment_method"`
	TransactionID string         `json:"transaction_id,omitempty"`
	Address       orders.Address `json:"address"`
}

type CreateOrderResp struct {
	OrderID       string               `json:"order_id"`
	Number        string               `json:"number"`
	TotalCents    int                  `json:"total_cents"`
	OrderStatus   orders.OrderStatus   `json:"order_status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
	Idempotent    bool                 `json:"idempotent"`
}

type UpdateOrderReq struct {
	OrderStatus   string `json:"order_status,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.With(RequireUser).Post("/order/create", h.createOrder)
	r.With(RequireUser).Get("/order/{id}", h.getOrder)
	r.With(RequireUser).Get("/order/{id}/status", h.getOrderStatus)
	r.With(RequireUser).Get("/orders", h.listOrders)
	r.With(RequireAdmin).Put("/order/put/{id}", h.putOrder)
	r.With(RequireAdmin).Delete("/order/{id}", h.deleteOrder)
}

func validAddress(a orders.Address) bool {
	return a.Name != "" && a.Line1 != "" && a.City != "" && a.PostalCode != "" && a.Country != ""
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.PaymentMethod != orders.MethodPayNow && req.PaymentMethod != orders.MethodPayOnDelivery {
		writeError(w, http.StatusBadRequest, "unknown payment method")
		return
	}
	if req.PaymentMethod == orders.MethodPayNow && req.TransactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction_id")
		return
	}
	if !validAddress(req.Address) {
		writeError(w, http.StatusBadRequest, "incomplete shipping address")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	userID := IdentityFromContext(ctx).UserID

	// The first successful create deletes the cart in its transaction, so a
	// replayed capture callback arrives with no cart. Resolve idempotency
	// before requiring one.
	if req.TransactionID != "" {
		if o := h.existingOrder(ctx, req.TransactionID, userID); o != nil {
			h.cacheStatus(ctx, o)
			writeJSON(w, http.StatusCreated, CreateOrderResp{
				OrderID:       o.ID,
				Number:        o.Number,
				TotalCents:    o.TotalCents,
				OrderStatus:   o.OrderStatus,
				PaymentStatus: o.PaymentStatus,
				Idempotent:    true,
			})
			return
		}
	}

	c, err := h.Cart.Get(ctx, cart.Owner{UserID: userID})
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart lookup failed")
		return
	}
	if len(c.Items) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	shipping, tax, _ := h.Pricing.Totals(c.SubtotalCents())
	o, existed, err := h.Repo.CreateOrderTx(ctx, orders.CreateInput{
		UserID:        userID,
		Cart:          c,
		PaymentMethod: req.PaymentMethod,
		TransactionID: req.TransactionID,
		Address:       req.Address,
		ShippingCents: shipping,
		TaxCents:      tax,
	})
	if err != nil {
		var oos *stock.OutOfStockError
		if errors.As(err, &oos) {
			writeError(w, http.StatusBadRequest, oos.Error())
			return
		}
		if errors.Is(err, stock.ErrConsistency) {
			// double-finalize or finalize without reserve: an upstream
			// ordering bug, not a shopper error
			log.Printf("order create consistency fault: user=%s txn=%s: %v", userID, req.TransactionID, err)
			writeError(w, http.StatusInternalServerError, "order could not be completed")
			return
		}
		log.Printf("order create: %v", err)
		writeError(w, http.StatusInternalServerError, "order could not be completed")
		return
	}

	if h.Redis != nil {
		if req.TransactionID != "" {
			idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, req.TransactionID)
			_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
		}
		h.cacheStatus(ctx, o)
	}

	if !existed {
		h.publishCreated(r, o)
	}

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		OrderID:       o.ID,
		Number:        o.Number,
		TotalCents:    o.TotalCents,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		Idempotent:    existed,
	})
}

// existingOrder resolves a transaction id to the order it already created,
// via the redis fast path when available, else the store. Returns nil when
// the id is unseen or the order belongs to someone else.
func (h *OrdersHandler) existingOrder(ctx context.Context, txnID, userID string) *orders.Order {
	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyIdemOrderCreate, txnID)
		if id, err := h.Redis.Get(ctx, key).Result(); err == nil && id != "" {
			if o, err := h.Repo.GetByID(ctx, id); err == nil && o.UserID == userID {
				return o
			}
		}
	}
	o, err := h.Repo.GetByTransactionID(ctx, txnID)
	if err != nil || o.UserID != userID {
		return nil
	}
	return o
}

// statusBlob is the cached status document. The owner rides along so cache
// hits can be authorized without a store read; it is never echoed back.
type statusBlob struct {
	OrderStatus   orders.OrderStatus   `json:"order_status"`
	PaymentStatus orders.PaymentStatus `json:"payment_status"`
	UserID        string               `json:"user_id"`
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(statusBlob{
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		UserID:        o.UserID,
	})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (h *OrdersHandler) publishCreated(r *http.Request, o *orders.Order) {
	if h.CreatedProducer == nil {
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderCreatedPayload{
			OrderID:       o.ID,
			Number:        o.Number,
			UserID:        o.UserID,
			PaymentMethod: o.PaymentMethod,
			PaymentStatus: o.PaymentStatus,
			TotalCents:    o.TotalCents,
		}),
	}
	h.CreatedProducer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderCreated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) publishStatus(r *http.Request, o *orders.Order, changed []string) {
	if h.StatusProducer == nil {
		return
	}
	env := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     orders.EventOrderStatusUpdated,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(orders.OrderStatusUpdatedPayload{
			OrderID:       o.ID,
			Number:        o.Number,
			UserID:        o.UserID,
			OrderStatus:   o.OrderStatus,
			PaymentStatus: o.PaymentStatus,
			Changed:       changed,
		}),
	}
	h.StatusProducer.Publish(orders.PartitionKey(o.ID), kafkax.MustMarshal(env),
		kafkago.Header{Key: "x-event-type", Value: []byte(orders.EventOrderStatusUpdated)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Repo.GetByID(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	id := IdentityFromContext(ctx)
	if o.UserID != id.UserID && !id.Admin {
		writeError(w, http.StatusForbidden, "not your order")
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getOrderStatus serves the two status axes from the redis cache, falling
// back to the store on a miss.
func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	orderID := chi.URLParam(r, "id")
	id := IdentityFromContext(ctx)

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var blob statusBlob
			if json.Unmarshal([]byte(s), &blob) == nil && blob.UserID != "" {
				if blob.UserID != id.UserID && !id.Admin {
					writeError(w, http.StatusForbidden, "not your order")
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{
					"order_status":   blob.OrderStatus,
					"payment_status": blob.PaymentStatus,
				})
				return
			}
		}
	}

	o, err := h.Repo.GetByID(ctx, orderID)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if o.UserID != id.UserID && !id.Admin {
		writeError(w, http.StatusForbidden, "not your order")
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{
		"order_status":   o.OrderStatus,
		"payment_status": o.PaymentStatus,
	})
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.Repo.ListByUser(ctx, IdentityFromContext(ctx).UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) putOrder(w http.ResponseWriter, r *http.Request) {
	var req UpdateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderStatus == "" && req.PaymentStatus == "" {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	var os *orders.OrderStatus
	if req.OrderStatus != "" {
		s := orders.OrderStatus(req.OrderStatus)
		if !orders.ValidOrderStatus(s) {
			writeError(w, http.StatusBadRequest, "unknown order_status")
			return
		}
		os = &s
	}
	var ps *orders.PaymentStatus
	if req.PaymentStatus != "" {
		s := orders.PaymentStatus(req.PaymentStatus)
		if !orders.ValidPaymentStatus(s) {
			writeError(w, http.StatusBadRequest, "unknown payment_status")
			return
		}
		ps = &s
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Repo.UpdateStatus(ctx, chi.URLParam(r, "id"), os, ps)
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	h.cacheStatus(ctx, o)

	var changed []string
	if os != nil {
		changed = append(changed, "order_status")
	}
	if ps != nil {
		changed = append(changed, "payment_status")
	}
	h.publishStatus(r, o, changed)

	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.Delete(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, orders.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
