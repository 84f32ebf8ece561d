package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckout_AddPlaceAndClear(t *testing.T) {
	store := repository.NewMemoryStore()
	carts, c := newTestCartService(store)
	orders, _ := newTestOrderService(store)
	checkout := NewCheckoutService(carts, orders)
	ctx := context.Background()

	_, err := carts.Add(ctx, authed, "user-1", product("p1", "10"), 1)
	require.NoError(t, err)
	_, err = carts.Add(ctx, authed, "user-1", product("p1", "10"), 2)
	require.NoError(t, err)

	order, err := checkout.PlaceFromCart(ctx, authed, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 3, order.ProductsNumber)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "p1", order.Items[0].ID)
	assert.Equal(t, 3, order.Items[0].Quantity)

	cart, err := carts.GetCart(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	cached, ok := c.cached("user-1")
	require.True(t, ok)
	assert.Empty(t, cached.Lines)

	// Later cart changes leave the placed order alone.
	_, err = carts.Add(ctx, authed, "user-1", product("p1", "10"), 5)
	require.NoError(t, err)
	stored, err := orders.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Items[0].Quantity)
}

func TestCheckout_EmptyCart(t *testing.T) {
	store := repository.NewMemoryStore()
	carts, _ := newTestCartService(store)
	orders, _ := newTestOrderService(store)
	checkout := NewCheckoutService(carts, orders)

	_, err := checkout.PlaceFromCart(context.Background(), authed, "user-1")
	assert.ErrorIs(t, err, domain.ErrEmptyOrder)

	_, err = checkout.PlaceFromCart(context.Background(), domain.AuthContext{}, "user-1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestCheckout_ClearFailureKeepsOrder(t *testing.T) {
	store := repository.NewMemoryStore()
	cartRepo := &failingCartRepo{MemoryStore: store}
	carts, _ := newTestCartService(cartRepo)
	orders, _ := newTestOrderService(store)
	checkout := NewCheckoutService(carts, orders)
	ctx := context.Background()

	_, err := carts.Add(ctx, authed, "user-1", product("p1", "10"), 1)
	require.NoError(t, err)
	cartRepo.deleteErr = fmt.Errorf("%w: delete cart: timeout", domain.ErrDependency)

	_, err = checkout.PlaceFromCart(ctx, authed, "user-1")
	require.ErrorIs(t, err, domain.ErrDependency)

	var checkoutErr *CheckoutError
	require.ErrorAs(t, err, &checkoutErr)
	stored, err := orders.Get(ctx, checkoutErr.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ProductsNumber)
}
