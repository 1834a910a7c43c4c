package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davitr/go-storefront/internal/cart"
	"github.com/davitr/go-storefront/internal/catalog"
)

type CartStore interface {
	Get(ctx context.Context, o cart.Owner) (*cart.Cart, error)
	AddItem(ctx context.Context, o cart.Owner, it cart.Item) error
	UpdateQty(ctx context.Context, o cart.Owner, productID, color, size string, qty int) error
	RemoveItem(ctx context.Context, o cart.Owner, productID, color, size string) error
	Clear(ctx context.Context, o cart.Owner) error
	MergeGuestIntoUser(ctx context.Context, guestToken, userID string) error
}

// ProductGetter is the catalog read path used to snapshot price and name
// when a line is added.
type ProductGetter interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

type CartHandler struct {
	Cart     CartStore
	Products ProductGetter
}

type AddItemReq struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
}

type UpdateQtyReq struct {
	ProductID string `json:"product_id"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Qty       int    `json:"qty"`
}

type MergeCartReq struct {
	GuestToken string `json:"guest_token"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Route("/cart", func(r chi.Router) {
		r.Use(RequireShopper)
		r.Get("/", h.getCart)
		r.Post("/add", h.addItem)
		r.Put("/update", h.updateQty)
		r.Delete("/remove", h.removeItem)
		r.Delete("/", h.clear)
		r.With(RequireUser).Post("/merge", h.merge)
	})
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.Cart.Get(ctx, IdentityFromContext(ctx).CartOwner())
	if errors.Is(err, cart.ErrNotFound) {
		writeJSON(w, http.StatusOK, cart.Cart{Items: []cart.Item{}})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart lookup failed")
		return
	}
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" || req.Color == "" || req.Size == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if req.Qty <= 0 || req.Qty > 99 {
		writeError(w, http.StatusBadRequest, "qty must be between 1 and 99")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Products.Get(ctx, req.ProductID)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusBadRequest, "unknown product")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "product lookup failed")
		return
	}
	found := false
	for _, v := range p.Variants {
		if v.Color == req.Color && v.Size == req.Size {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusBadRequest, "unknown variant")
		return
	}

	err = h.Cart.AddItem(ctx, IdentityFromContext(ctx).CartOwner(), cart.Item{
		ProductID:  p.ID,
		Name:       p.Name,
		Color:      req.Color,
		Size:       req.Size,
		Qty:        req.Qty,
		PriceCents: p.PriceCents,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "add failed")
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *CartHandler) updateQty(w http.ResponseWriter, r *http.Request) {
	var req UpdateQtyReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" || req.Color == "" || req.Size == "" {
		writeError(w, http.StatusBadRequest, "missing fields")
		return
	}
	if req.Qty > 99 {
		writeError(w, http.StatusBadRequest, "qty must be at most 99")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Cart.UpdateQty(ctx, IdentityFromContext(ctx).CartOwner(), req.ProductID, req.Color, req.Size, req.Qty)
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such line")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("product_id")
	color := r.URL.Query().Get("color")
	size := r.URL.Query().Get("size")
	if productID == "" || color == "" || size == "" {
		writeError(w, http.StatusBadRequest, "missing product_id, color or size")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Cart.RemoveItem(ctx, IdentityFromContext(ctx).CartOwner(), productID, color, size)
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusNotFound, "cart not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "remove failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Cart.Clear(ctx, IdentityFromContext(ctx).CartOwner()); err != nil {
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// merge folds a pre-signup guest cart into the signed-in user's cart.
func (h *CartHandler) merge(w http.ResponseWriter, r *http.Request) {
	var req MergeCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.GuestToken == "" {
		writeError(w, http.StatusBadRequest, "missing guest_token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Cart.MergeGuestIntoUser(ctx, req.GuestToken, IdentityFromContext(ctx).UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "merge failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}
