package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := repository.NewMemoryStore()
	carts := service.NewCartService(store, nil, nil, nil)
	orders := service.NewOrderService(store, nil, nil, nil)

	router := h.NewRouter(h.RouterConfig{
		Carts:  h.NewCartHandler(carts, service.NewCheckoutService(carts, orders), nil, 5*time.Second),
		Orders: h.NewOrdersHandler(orders, nil, 5*time.Second),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CartToOrder(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, "user-1")
	ctx := context.Background()

	_, err := c.AddToCart(ctx, "p1", "Widget", decimal.NewFromInt(10), "widget.png", 1)
	require.NoError(t, err)
	cart, err := c.AddToCart(ctx, "p1", "Widget", decimal.NewFromInt(10), "widget.png", 2)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, cart, c.LocalCart())

	order, err := c.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, order.ProductsNumber)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "p1", order.Items[0].ID)

	assert.Empty(t, c.LocalCart().Items)
	local := c.LocalOrders()
	require.Len(t, local, 1)
	assert.Equal(t, order.ID, local[0].ID)
}

func TestClient_OrderControlsReplaceMirror(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, "user-1")
	ctx := context.Background()

	o1, err := c.PlaceOrder(ctx, []Line{
		{ID: "p1", Name: "one", Price: decimal.NewFromInt(1), Quantity: 2},
		{ID: "p2", Name: "two", Price: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, o1.ProductsNumber)

	_, err = c.PlaceOrder(ctx, []Line{{ID: "p2", Name: "two", Price: decimal.NewFromInt(1), Quantity: 3}})
	require.NoError(t, err)
	assert.Len(t, c.LocalOrders(), 2)

	orders, err := c.IncrementOrderLine(ctx, o1.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, 4, orders[0].ProductsNumber)
	assert.Equal(t, 4, c.LocalOrders()[0].ProductsNumber)

	result, err := c.PurgeProduct(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, result.Updated, 2)

	local := c.LocalOrders()
	require.Len(t, local, 2)
	assert.Equal(t, 3, local[0].ProductsNumber)
	assert.Zero(t, local[1].ProductsNumber)
	assert.Empty(t, local[1].Items)

	orders, err = c.DeleteOrder(ctx, o1.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	_, err = c.DeleteOrder(ctx, o1.ID)
	assert.True(t, IsNotFound(err))
	assert.Len(t, c.LocalOrders(), 1, "failed calls leave the mirror alone")

	orders, err = c.DeleteAllOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Empty(t, c.LocalOrders())
}

func TestClient_Errors(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	anon := New(srv.URL, "")
	_, err := anon.Cart(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)

	c := New(srv.URL, "user-1")
	_, err = c.IncrementCartLine(ctx, "missing")
	assert.True(t, IsNotFound(err))

	_, err = c.Checkout(ctx)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Contains(t, apiErr.Message, "cannot place an empty order")
}

func TestClient_ConcurrentUse(t *testing.T) {
	srv := newServer(t)
	c := New(srv.URL, "user-1")
	ctx := context.Background()

	_, err := c.AddToCart(ctx, "p1", "Widget", decimal.NewFromInt(1), "", 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = c.IncrementCartLine(ctx, "p1")
		}()
		go func() {
			defer wg.Done()
			_ = c.LocalCart()
		}()
	}
	wg.Wait()

	cart, err := c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 11, cart.Items[0].Quantity)
}
