package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// MemoryStore implements CartRepository and OrderRepository in process.
// Values are cloned on the way in and out, so callers never share state
// with the store.
type MemoryStore struct {
	mu     sync.RWMutex
	carts  map[string]*domain.Cart  // cartID -> cart
	orders map[string]*domain.Order // orderID -> order
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:  make(map[string]*domain.Cart),
		orders: make(map[string]*domain.Order),
	}
}

func (s *MemoryStore) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return nil, ErrCartNotFound
	}
	return cart.Clone(), nil
}

func (s *MemoryStore) AddItem(ctx context.Context, cartID string, item domain.Item, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cart, ok := s.carts[cartID]
	if !ok {
		cart = domain.NewCart(cartID, now)
	}
	if err := cart.Add(item, quantity); err != nil {
		return err
	}
	cart.UpdatedAt = now
	s.carts[cartID] = cart
	return nil
}

func (s *MemoryStore) AdjustQuantity(ctx context.Context, cartID, productID string, delta int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return false, domain.ErrLineNotFound
	}
	changed, err := cart.Adjust(productID, delta)
	if changed {
		cart.UpdatedAt = time.Now()
	}
	return changed, err
}

func (s *MemoryStore) RemoveItem(ctx context.Context, cartID, productID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[cartID]
	if !ok {
		return domain.ErrLineNotFound
	}
	if err := cart.Remove(productID); err != nil {
		return err
	}
	cart.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeleteCart(ctx context.Context, cartID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.carts[cartID]; !ok {
		return ErrCartNotFound
	}
	delete(s.carts, cartID)
	return nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[order.ID]; exists {
		return fmt.Errorf("%w: order %s already exists", domain.ErrConflict, order.ID)
	}
	order.Version = 1
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order.Clone(), nil
}

// ListOrders returns orders oldest first.
func (s *MemoryStore) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(s.orders))
	for _, order := range s.orders {
		orders = append(orders, order.Clone())
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (s *MemoryStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if stored.Version != order.Version {
		return fmt.Errorf("%w: order %s changed since version %d", domain.ErrConflict, order.ID, order.Version)
	}

	order.Version++
	order.UpdatedAt = time.Now()
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *MemoryStore) DeleteOrder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *MemoryStore) DeleteAllOrders(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.orders))
	s.orders = make(map[string]*domain.Order)
	return n, nil
}
