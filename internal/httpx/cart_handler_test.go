package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davitr/go-storefront/internal/cart"
	"github.com/davitr/go-storefront/internal/catalog"
)

type mockProductGetter struct {
	products map[string]*catalog.Product
}

func (m *mockProductGetter) Get(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return p, nil
}

func cartRouter(cs CartStore, pg ProductGetter) http.Handler {
	r := NewRouter()
	h := &CartHandler{Cart: cs, Products: pg}
	h.Register(r)
	return r
}

func teeProduct() *catalog.Product {
	return &catalog.Product{
		ID:         "p1",
		Name:       "Tee",
		PriceCents: 1000,
		Variants: []catalog.Variant{
			{ProductID: "p1", Color: "black", Size: "m", Stock: 5},
		},
	}
}

func TestGetCartAnonymous(t *testing.T) {
	r := cartRouter(&mockCartStore{}, &mockProductGetter{})

	w := doJSON(t, r, http.MethodGet, "/cart/", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCartEmptyBody(t *testing.T) {
	r := cartRouter(&mockCartStore{err: cart.ErrNotFound}, &mockProductGetter{})

	w := doJSON(t, r, http.MethodGet, "/cart/", nil,
		map[string]string{"X-Guest-Token": "g-123"})
	require.Equal(t, http.StatusOK, w.Code)

	var c cart.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c))
	assert.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
}

func TestAddItemSnapshotsNameAndPrice(t *testing.T) {
	cs := &mockCartStore{}
	r := cartRouter(cs, &mockProductGetter{products: map[string]*catalog.Product{"p1": teeProduct()}})

	w := doJSON(t, r, http.MethodPost, "/cart/add",
		AddItemReq{ProductID: "p1", Color: "black", Size: "m", Qty: 2}, asUser)
	assert.Equal(t, http.StatusCreated, w.Code)

	require.Len(t, cs.added, 1)
	it := cs.added[0]
	assert.Equal(t, "Tee", it.Name)
	assert.Equal(t, 1000, it.PriceCents)
	assert.Equal(t, 2, it.Qty)
}

func TestAddItemValidation(t *testing.T) {
	pg := &mockProductGetter{products: map[string]*catalog.Product{"p1": teeProduct()}}
	r := cartRouter(&mockCartStore{}, pg)

	cases := []struct {
		name string
		req  AddItemReq
		want string
	}{
		{"no product", AddItemReq{Color: "black", Size: "m", Qty: 1}, "missing fields"},
		{"zero qty", AddItemReq{ProductID: "p1", Color: "black", Size: "m", Qty: 0}, "qty must be between 1 and 99"},
		{"excess qty", AddItemReq{ProductID: "p1", Color: "black", Size: "m", Qty: 100}, "qty must be between 1 and 99"},
		{"unknown product", AddItemReq{ProductID: "p9", Color: "black", Size: "m", Qty: 1}, "unknown product"},
		{"unknown variant", AddItemReq{ProductID: "p1", Color: "green", Size: "m", Qty: 1}, "unknown variant"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/cart/add", tc.req, asUser)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.want)
		})
	}
}

func TestMergeRequiresUser(t *testing.T) {
	r := cartRouter(&mockCartStore{}, &mockProductGetter{})

	w := doJSON(t, r, http.MethodPost, "/cart/merge",
		MergeCartReq{GuestToken: "g-123"},
		map[string]string{"X-Guest-Token": "g-123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMergeFoldsGuestCart(t *testing.T) {
	cs := &mockCartStore{}
	r := cartRouter(cs, &mockProductGetter{})

	w := doJSON(t, r, http.MethodPost, "/cart/merge",
		MergeCartReq{GuestToken: "g-123"}, asUser)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [][2]string{{"g-123", "u1"}}, cs.merged)

	w = doJSON(t, r, http.MethodPost, "/cart/merge", MergeCartReq{}, asUser)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClearCart(t *testing.T) {
	r := cartRouter(&mockCartStore{}, &mockProductGetter{})

	w := doJSON(t, r, http.MethodDelete, "/cart/", nil, asUser)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
