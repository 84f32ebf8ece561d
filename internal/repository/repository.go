package repository

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// ErrCartNotFound means no cart document exists yet. Callers treat it as an
// empty cart.
var ErrCartNotFound = errors.New("cart not found")

// CartRepository defines the cart persistence operations.
// Every mutation is a single atomic update of one cart.
type CartRepository interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	// AddItem creates the line or merge-adds quantity onto it.
	AddItem(ctx context.Context, cartID string, item domain.Item, quantity int) error
	// AdjustQuantity adds delta to a line unless the result would drop
	// below domain.MinQuantity, in which case it returns false.
	AdjustQuantity(ctx context.Context, cartID, productID string, delta int) (bool, error)
	RemoveItem(ctx context.Context, cartID, productID string) error
	DeleteCart(ctx context.Context, cartID string) error
}

// OrderRepository defines the order persistence operations.
// SaveOrder is a compare-and-swap on Order.Version: it fails with
// domain.ErrConflict when the stored version moved on, and bumps
// order.Version on success.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	SaveOrder(ctx context.Context, order *domain.Order) error
	DeleteOrder(ctx context.Context, id string) error
	DeleteAllOrders(ctx context.Context) (int64, error)
}
