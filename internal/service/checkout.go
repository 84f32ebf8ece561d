package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CheckoutError means the order was stored but the cart could not be
// cleared. Retrying the clear is safe; retrying the checkout is not.
type CheckoutError struct {
	Order *domain.Order
	Err   error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("order %s placed but cart not cleared: %v", e.Order.ID, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

type CheckoutService struct {
	carts  *CartService
	orders *OrderService
}

func NewCheckoutService(carts *CartService, orders *OrderService) *CheckoutService {
	return &CheckoutService{carts: carts, orders: orders}
}

// PlaceFromCart turns the cart into an order and empties the cart. The cart
// stays locked for the whole sequence so no line is added in between.
func (s *CheckoutService) PlaceFromCart(ctx context.Context, auth domain.AuthContext, cartID string) (*domain.Order, error) {
	started := time.Now()
	order, err := s.placeFromCart(ctx, auth, cartID)
	s.carts.metrics.Observe("cart.checkout", started, err)
	return order, err
}

func (s *CheckoutService) placeFromCart(ctx context.Context, auth domain.AuthContext, cartID string) (*domain.Order, error) {
	if err := auth.Require(); err != nil {
		return nil, err
	}
	if cartID == "" {
		return nil, fmt.Errorf("%w: cart id is required", domain.ErrInvalidInput)
	}

	unlock, err := s.carts.locks.acquire(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.carts.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, domain.ErrEmptyOrder
	}

	order, err := s.orders.Place(ctx, cart.Snapshot())
	if err != nil {
		return nil, err
	}

	if err := s.carts.clearLocked(ctx, cartID); err != nil {
		s.carts.invalidateCache(ctx, cartID)
		s.carts.log.Error(s.carts.log.WithField(ctx, "order_id", order.ID), "cart.checkout_clear_failed", err)
		if !errors.Is(err, domain.ErrDependency) {
			err = fmt.Errorf("%w: %w", domain.ErrDependency, err)
		}
		return nil, &CheckoutError{Order: order, Err: err}
	}

	cart.Clear()
	cart.UpdatedAt = s.carts.now()
	s.carts.writeCache(ctx, cart)
	return order, nil
}
