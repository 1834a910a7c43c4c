package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwnerValid(t *testing.T) {
	assert.True(t, Owner{UserID: "u1"}.Valid())
	assert.True(t, Owner{GuestToken: "g1"}.Valid())
	assert.False(t, Owner{}.Valid())
	assert.False(t, Owner{UserID: "u1", GuestToken: "g1"}.Valid())
}

func TestSubtotalCents(t *testing.T) {
	c := Cart{Items: []Item{
		{PriceCents: 1999, Qty: 2},
		{PriceCents: 500, Qty: 1},
	}}
	assert.Equal(t, 4498, c.SubtotalCents())

	assert.Equal(t, 0, (&Cart{}).SubtotalCents())
}

func TestMergeItemsSumsMatchingVariants(t *testing.T) {
	user := []Item{
		{ProductID: "p1", Color: "black", Size: "m", Qty: 1, PriceCents: 1000, Name: "Tee"},
		{ProductID: "p2", Color: "red", Size: "l", Qty: 2, PriceCents: 2000, Name: "Hoodie"},
	}
	guest := []Item{
		{ProductID: "p1", Color: "black", Size: "m", Qty: 3, PriceCents: 1100, Name: "Tee v2"},
		{ProductID: "p3", Color: "blue", Size: "s", Qty: 1, PriceCents: 500, Name: "Cap"},
	}

	out := MergeItems(user, guest)
	assert.Len(t, out, 3)

	// matching variant merged by summing qty, user's snapshot wins
	assert.Equal(t, 4, out[0].Qty)
	assert.Equal(t, 1000, out[0].PriceCents)
	assert.Equal(t, "Tee", out[0].Name)

	// untouched user line
	assert.Equal(t, 2, out[1].Qty)

	// appended guest line
	assert.Equal(t, "p3", out[2].ProductID)
	assert.Equal(t, 1, out[2].Qty)
}

func TestMergeItemsDistinguishesVariants(t *testing.T) {
	user := []Item{{ProductID: "p1", Color: "black", Size: "m", Qty: 1}}
	guest := []Item{{ProductID: "p1", Color: "black", Size: "l", Qty: 1}}

	out := MergeItems(user, guest)
	assert.Len(t, out, 2)
}

func TestMergeItemsDoesNotMutateInputs(t *testing.T) {
	user := []Item{{ProductID: "p1", Color: "black", Size: "m", Qty: 1}}
	guest := []Item{{ProductID: "p1", Color: "black", Size: "m", Qty: 2}}

	_ = MergeItems(user, guest)
	assert.Equal(t, 1, user[0].Qty)
	assert.Equal(t, 2, guest[0].Qty)
}

func TestMergeItemsEmptySides(t *testing.T) {
	items := []Item{{ProductID: "p1", Color: "black", Size: "m", Qty: 1}}

	assert.Equal(t, items, MergeItems(nil, items))
	assert.Equal(t, items, MergeItems(items, nil))
	assert.Empty(t, MergeItems(nil, nil))
}
