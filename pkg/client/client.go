// Package client is a typed HTTP client for the storefront API that keeps a
// local mirror of the caller's cart and of the order list. Every mutating
// call replaces the mirror with the collection the server returned; nothing
// is recomputed locally.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const basePath = "/api/v1"

type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ImageRef string          `json:"image_ref"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type Cart struct {
	ID        string          `json:"id"`
	Items     []Item          `json:"items"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Order struct {
	ID             string          `json:"id"`
	Items          []Item          `json:"items"`
	ProductsNumber int             `json:"products_number"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Line is one entry of an order placement.
type Line struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ImageRef string          `json:"image_ref,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity,omitempty"`
}

type PurgeResult struct {
	ProductID    string   `json:"product_id"`
	Updated      []string `json:"updated"`
	Unchanged    []string `json:"unchanged"`
	Skipped      []string `json:"skipped"`
	RemovedItems int      `json:"removed_items"`
	Orders       []Order  `json:"orders"`
}

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"error"`
	Details any    `json:"details"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// IsConflict reports whether err is a lost concurrent update.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	userID  string
	http    *http.Client

	mu     sync.RWMutex
	cart   Cart
	orders []Order
}

// New creates a client acting for userID, who owns the mirrored cart.
func New(baseURL, userID string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http:    &http.Client{Timeout: 10 * time.Second},
		cart:    Cart{Items: []Item{}},
		orders:  []Order{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LocalCart returns a copy of the mirrored cart.
func (c *Client) LocalCart() Cart {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cart := c.cart
	cart.Items = append([]Item{}, c.cart.Items...)
	return cart
}

// LocalOrders returns a copy of the mirrored order list.
func (c *Client) LocalOrders() []Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	orders := make([]Order, len(c.orders))
	for i, o := range c.orders {
		o.Items = append([]Item{}, o.Items...)
		orders[i] = o
	}
	return orders
}

func (c *Client) setCart(cart Cart) Cart {
	if cart.Items == nil {
		cart.Items = []Item{}
	}
	c.mu.Lock()
	c.cart = cart
	c.mu.Unlock()
	return cart
}

func (c *Client) setOrders(orders []Order) []Order {
	if orders == nil {
		orders = []Order{}
	}
	c.mu.Lock()
	c.orders = append([]Order(nil), orders...)
	c.mu.Unlock()
	return orders
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+basePath+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) cartCall(ctx context.Context, method, path string, body any) (Cart, error) {
	var cart Cart
	if err := c.do(ctx, method, path, body, &cart); err != nil {
		return Cart{}, err
	}
	return c.setCart(cart), nil
}

func (c *Client) ordersCall(ctx context.Context, method, path string) ([]Order, error) {
	var resp struct {
		Orders []Order `json:"orders"`
	}
	if err := c.do(ctx, method, path, nil, &resp); err != nil {
		return nil, err
	}
	return c.setOrders(resp.Orders), nil
}

// Cart fetches the cart and refreshes the mirror.
func (c *Client) Cart(ctx context.Context) (Cart, error) {
	return c.cartCall(ctx, http.MethodGet, "/cart", nil)
}

func (c *Client) AddToCart(ctx context.Context, productID, name string, price decimal.Decimal, imageRef string, quantity int) (Cart, error) {
	body := map[string]any{
		"name":      name,
		"price":     price.String(),
		"image_ref": imageRef,
		"quantity":  quantity,
	}
	return c.cartCall(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(productID), body)
}

func (c *Client) IncrementCartLine(ctx context.Context, productID string) (Cart, error) {
	return c.cartCall(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(productID)+"/increment", nil)
}

func (c *Client) DecrementCartLine(ctx context.Context, productID string) (Cart, error) {
	return c.cartCall(ctx, http.MethodPut, "/cart/items/"+url.PathEscape(productID)+"/decrement", nil)
}

func (c *Client) DeleteCartLine(ctx context.Context, productID string) (Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart/items/"+url.PathEscape(productID), nil)
}

func (c *Client) ClearCart(ctx context.Context) (Cart, error) {
	return c.cartCall(ctx, http.MethodDelete, "/cart", nil)
}

// Checkout places an order from the server-side cart, then refreshes both
// mirrors from the server.
func (c *Client) Checkout(ctx context.Context) (Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/cart/checkout", nil, &order); err != nil {
		return Order{}, err
	}
	if _, err := c.Cart(ctx); err != nil {
		return order, err
	}
	if _, err := c.Orders(ctx); err != nil {
		return order, err
	}
	return order, nil
}

// PlaceOrder places an order from lines and refreshes the order mirror.
func (c *Client) PlaceOrder(ctx context.Context, lines []Line) (Order, error) {
	body := map[string]any{"items": lines}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", body, &order); err != nil {
		return Order{}, err
	}
	if _, err := c.Orders(ctx); err != nil {
		return order, err
	}
	return order, nil
}

// Orders fetches every order and refreshes the mirror.
func (c *Client) Orders(ctx context.Context) ([]Order, error) {
	return c.ordersCall(ctx, http.MethodGet, "/orders")
}

func (c *Client) IncrementOrderLine(ctx context.Context, orderID, itemID string) ([]Order, error) {
	return c.ordersCall(ctx, http.MethodPut, orderItemPath(orderID, itemID)+"/increment")
}

func (c *Client) DecrementOrderLine(ctx context.Context, orderID, itemID string) ([]Order, error) {
	return c.ordersCall(ctx, http.MethodPut, orderItemPath(orderID, itemID)+"/decrement")
}

func (c *Client) DeleteOrderLine(ctx context.Context, orderID, itemID string) ([]Order, error) {
	return c.ordersCall(ctx, http.MethodDelete, orderItemPath(orderID, itemID))
}

func (c *Client) DeleteOrder(ctx context.Context, orderID string) ([]Order, error) {
	return c.ordersCall(ctx, http.MethodDelete, "/orders/"+url.PathEscape(orderID))
}

func (c *Client) DeleteAllOrders(ctx context.Context) ([]Order, error) {
	return c.ordersCall(ctx, http.MethodDelete, "/orders")
}

// PurgeProduct removes productID from every order. On success the order
// mirror holds the purged order set.
func (c *Client) PurgeProduct(ctx context.Context, productID string) (PurgeResult, error) {
	var result PurgeResult
	if err := c.do(ctx, http.MethodDelete, "/orders/products/"+url.PathEscape(productID), nil, &result); err != nil {
		return PurgeResult{}, err
	}
	result.Orders = c.setOrders(result.Orders)
	return result, nil
}

func orderItemPath(orderID, itemID string) string {
	return "/orders/" + url.PathEscape(orderID) + "/items/" + url.PathEscape(itemID)
}
