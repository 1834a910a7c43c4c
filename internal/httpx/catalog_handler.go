package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/davitr/go-storefront/internal/catalog"
)

type CatalogStore interface {
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]catalog.Product, error)
	SetVariantStock(ctx context.Context, productID, color, size string, stock int) error
}

// ProductCache is the cached read path plus its invalidation hook.
type ProductCache interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
	Invalidate(ctx context.Context, id string)
}

type CatalogHandler struct {
	Repo  CatalogStore
	Cache ProductCache
}

type ProductReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int    `json:"price_cents"`
	ImageURL    string `json:"image_url"`
	Variants    []struct {
		Color string `json:"color"`
		Size  string `json:"size"`
		Stock int    `json:"stock"`
	} `json:"variants"`
}

type VariantStockReq struct {
	Color string `json:"color"`
	Size  string `json:"size"`
	Stock int    `json:"stock"`
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/products", h.list)
	r.Get("/product/{id}", h.get)
	r.With(RequireAdmin).Post("/product", h.create)
	r.With(RequireAdmin).Put("/product/{id}", h.update)
	r.With(RequireAdmin).Delete("/product/{id}", h.delete)
	r.With(RequireAdmin).Put("/product/{id}/variant-stock", h.setVariantStock)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.List(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	if ps == nil {
		ps = []catalog.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Cache.Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) decodeProduct(r *http.Request) (*catalog.Product, string) {
	var req ProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "invalid json"
	}
	if req.Name == "" || req.PriceCents <= 0 {
		return nil, "name and positive price_cents required"
	}
	p := &catalog.Product{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		ImageURL:    req.ImageURL,
	}
	for _, v := range req.Variants {
		if v.Color == "" || v.Size == "" || v.Stock < 0 {
			return nil, "variants need color, size and non-negative stock"
		}
		p.Variants = append(p.Variants, catalog.Variant{Color: v.Color, Size: v.Size, Stock: v.Stock})
	}
	return p, ""
}

func (h *CatalogHandler) create(w http.ResponseWriter, r *http.Request) {
	p, msg := h.decodeProduct(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.Create(ctx, p); err != nil {
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *CatalogHandler) update(w http.ResponseWriter, r *http.Request) {
	p, msg := h.decodeProduct(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	p.ID = chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.Update(ctx, p)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}
	h.Cache.Invalidate(ctx, p.ID)
	writeJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.Delete(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	h.Cache.Invalidate(ctx, id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *CatalogHandler) setVariantStock(w http.ResponseWriter, r *http.Request) {
	var req VariantStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Color == "" || req.Size == "" || req.Stock < 0 {
		writeError(w, http.StatusBadRequest, "color, size and non-negative stock required")
		return
	}
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Repo.SetVariantStock(ctx, id, req.Color, req.Size, req.Stock); err != nil {
		writeError(w, http.StatusInternalServerError, "stock update failed")
		return
	}
	h.Cache.Invalidate(ctx, id)
	w.WriteHeader(http.StatusOK)
}
