package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, qty int) Item {
	return Item{ID: id, Name: "product " + id, ImageRef: id + ".png", Price: decimal.NewFromInt(10), Quantity: qty}
}

func TestCartAdd_MergesSameProduct(t *testing.T) {
	cart := NewCart("user-1", time.Now())

	require.NoError(t, cart.Add(item("p1", 0), 2))
	require.NoError(t, cart.Add(item("p1", 0), 5))

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 7, cart.Lines[0].Quantity)
}

func TestCartAdd_RejectsZeroQuantity(t *testing.T) {
	cart := NewCart("user-1", time.Now())

	err := cart.Add(item("p1", 0), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.True(t, cart.IsEmpty())
}

func TestCartAdjust_FloorClamp(t *testing.T) {
	cart := NewCart("user-1", time.Now())
	require.NoError(t, cart.Add(item("p1", 0), 1))

	changed, err := cart.Adjust("p1", -1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, cart.Lines[0].Quantity)

	changed, err = cart.Adjust("p1", 1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestCartAdjust_MissingLine(t *testing.T) {
	cart := NewCart("user-1", time.Now())

	_, err := cart.Adjust("nope", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartRemove(t *testing.T) {
	cart := NewCart("user-1", time.Now())
	require.NoError(t, cart.Add(item("p1", 0), 1))
	require.NoError(t, cart.Add(item("p2", 0), 1))

	require.NoError(t, cart.Remove("p1"))
	assert.ErrorIs(t, cart.Remove("p1"), ErrLineNotFound)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p2", cart.Lines[0].ID)
}

func TestCartSnapshot_IsIndependent(t *testing.T) {
	cart := NewCart("user-1", time.Now())
	require.NoError(t, cart.Add(item("p1", 0), 2))

	snap := cart.Snapshot()
	_, err := cart.Adjust("p1", 1)
	require.NoError(t, err)

	assert.Equal(t, 2, snap[0].Quantity)
}

func TestCartSubtotal(t *testing.T) {
	cart := NewCart("user-1", time.Now())
	require.NoError(t, cart.Add(Item{ID: "p1", Name: "a", Price: decimal.RequireFromString("2.50")}, 2))
	require.NoError(t, cart.Add(Item{ID: "p2", Name: "b", Price: decimal.RequireFromString("1.25")}, 1))

	assert.True(t, decimal.RequireFromString("6.25").Equal(cart.Subtotal()))
}

func TestNewOrder_MissingQuantityCountsAsOne(t *testing.T) {
	order, err := NewOrder("o1", []Item{item("p1", 0), item("p2", 3)}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 4, order.ProductsNumber)
	assert.Equal(t, 1, order.Items[0].Quantity)
}

func TestNewOrder_Rejects(t *testing.T) {
	cases := map[string][]Item{
		"empty":          nil,
		"missing id":     {{Name: "x", Quantity: 1}},
		"missing name":   {{ID: "p1", Quantity: 1}},
		"negative price": {{ID: "p1", Name: "x", Price: decimal.NewFromInt(-1), Quantity: 1}},
		"negative qty":   {{ID: "p1", Name: "x", Quantity: -2}},
		"duplicate ids":  {item("p1", 1), item("p1", 2)},
	}
	for name, lines := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewOrder("o1", lines, time.Now())
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewOrder_CopiesLines(t *testing.T) {
	lines := []Item{item("p1", 2)}
	order, err := NewOrder("o1", lines, time.Now())
	require.NoError(t, err)

	lines[0].Quantity = 99
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestOrderAdjustLine_Recounts(t *testing.T) {
	order, err := NewOrder("o1", []Item{item("p1", 1), item("p2", 2)}, time.Now())
	require.NoError(t, err)

	changed, err := order.AdjustLine("p2", 1)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 4, order.ProductsNumber)

	changed, err = order.AdjustLine("p1", -1)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, 4, order.ProductsNumber)

	_, err = order.AdjustLine("p9", 1)
	assert.ErrorIs(t, err, ErrOrderLineNotFound)
}

func TestOrderRemoveLine_KeepsEmptyOrder(t *testing.T) {
	order, err := NewOrder("o1", []Item{item("p1", 2)}, time.Now())
	require.NoError(t, err)

	require.NoError(t, order.RemoveLine("p1"))
	assert.Empty(t, order.Items)
	assert.Equal(t, 0, order.ProductsNumber)
}

func TestOrderPurgeProduct(t *testing.T) {
	order, err := NewOrder("o1", []Item{item("p1", 2), item("p2", 1)}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 1, order.PurgeProduct("p2"))
	assert.Equal(t, 2, order.ProductsNumber)
	assert.Equal(t, 0, order.PurgeProduct("p2"))
	assert.Equal(t, 2, order.ProductsNumber)
}

func TestOrderPurgeProduct_RepairsDrift(t *testing.T) {
	order, err := NewOrder("o1", []Item{item("p1", 2)}, time.Now())
	require.NoError(t, err)
	order.ProductsNumber = 40

	assert.False(t, order.Consistent())
	order.PurgeProduct("zzz")
	assert.True(t, order.Consistent())
	assert.Equal(t, 2, order.ProductsNumber)
}

func TestAuthContextRequire(t *testing.T) {
	assert.ErrorIs(t, AuthContext{}.Require(), ErrUnauthorized)
	assert.ErrorIs(t, AuthContext{UserID: "u"}.Require(), ErrUnauthorized)
	assert.NoError(t, AuthContext{UserID: "u", Authenticated: true}.Require())
}
