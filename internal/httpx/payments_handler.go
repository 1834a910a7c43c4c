package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davitr/go-storefront/internal/cart"
	"github.com/davitr/go-storefront/internal/payment"
	"github.com/davitr/go-storefront/internal/stock"
)

// PaymentGateway is the external payment boundary (create intent, capture).
type PaymentGateway interface {
	CreateOrder(ctx context.Context, totalCents int, currency string) (string, error)
	CaptureOrder(ctx context.Context, intentID string) (payment.CaptureResult, error)
}

type PaymentsHandler struct {
	Cart    CartStore
	Engine  *stock.Engine
	Gateway PaymentGateway
	Pricing Pricing
}

type CaptureOrderReq struct {
	OrderID string `json:"order_id"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Route("/payment-order/paypal", func(r chi.Router) {
		r.Use(RequireShopper)
		r.Post("/create-order", h.createOrder)
		r.Post("/capture-order", h.captureOrder)
		r.Post("/cancel-order", h.cancelOrder)
	})
}

func stockItems(items []cart.Item) []stock.Item {
	out := make([]stock.Item, 0, len(items))
	for _, it := range items {
		out = append(out, stock.Item{
			ProductID: it.ProductID, Color: it.Color, Size: it.Size, Qty: it.Qty,
		})
	}
	return out
}

// createOrder reserves the caller's cart and opens a payment intent for the
// server-computed total. If the gateway call fails the reservation stays
// held; the shopper retries or the sweeper reclaims it.
func (h *PaymentsHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	owner := IdentityFromContext(ctx).CartOwner()
	c, err := h.Cart.Get(ctx, owner)
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

	if err := h.Engine.ReserveBatch(ctx, stockItems(c.Items)); err != nil {
		var oos *stock.OutOfStockError
		if errors.As(err, &oos) {
			writeError(w, http.StatusBadRequest, oos.Error())
			return
		}
		if errors.Is(err, stock.ErrVariantNotFound) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "reservation failed")
		return
	}

	_, _, total := h.Pricing.Totals(c.SubtotalCents())
	intentID, err := h.Gateway.CreateOrder(ctx, total, h.Pricing.currency())
	if err != nil {
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order_id":    intentID,
		"total_cents": total,
	})
}

// captureOrder confirms capture with the gateway. On success the client
// follows up with POST /order/create, which finalizes the reservation; a
// non-success capture releases it instead.
func (h *PaymentsHandler) captureOrder(w http.ResponseWriter, r *http.Request) {
	var req CaptureOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "missing order_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Gateway.CaptureOrder(ctx, req.OrderID)
	if err != nil {
		writeError(w, http.StatusBadGateway, "payment gateway unavailable")
		return
	}
	if !res.Completed() {
		// a failed capture is a cancellation: hand the reservation back
		if c, cerr := h.Cart.Get(ctx, IdentityFromContext(ctx).CartOwner()); cerr == nil {
			if _, rerr := h.Engine.ReleaseBatch(ctx, stockItems(c.Items)); rerr != nil {
				log.Printf("release after failed capture: %v", rerr)
			}
		}
		writeError(w, http.StatusBadRequest, payment.ErrPaymentNotCompleted.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":         res.Status,
		"transaction_id": res.TransactionID,
	})
}

// cancelOrder releases whatever reservation the caller's cart still holds.
// Safe to call repeatedly: replays fail the release guards and no-op.
func (h *PaymentsHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	owner := IdentityFromContext(ctx).CartOwner()
	c, err := h.Cart.Get(ctx, owner)
	if errors.Is(err, cart.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]int{"released": 0})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart lookup failed")
		return
	}

	released, err := h.Engine.ReleaseBatch(ctx, stockItems(c.Items))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "release failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"released": released})
}
