package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/shopspring/decimal"
)

var authed = domain.AuthContext{UserID: "user-1", Authenticated: true}

func product(id, price string) domain.Item {
	return domain.Item{
		ID:       id,
		Name:     "product " + id,
		ImageRef: id + ".jpg",
		Price:    decimal.RequireFromString(price),
	}
}

// ticker hands out strictly increasing timestamps so orders list in
// placement order.
func ticker() func() time.Time {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	var n atomic.Int64
	return func() time.Time {
		return base.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

type countingCartRepo struct {
	*repository.MemoryStore
	gets atomic.Int32
}

func (c *countingCartRepo) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	c.gets.Add(1)
	return c.MemoryStore.GetCart(ctx, cartID)
}

type failingCartRepo struct {
	*repository.MemoryStore
	deleteErr error
	addErr    error
}

func (f *failingCartRepo) DeleteCart(ctx context.Context, cartID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.DeleteCart(ctx, cartID)
}

func (f *failingCartRepo) AddItem(ctx context.Context, cartID string, item domain.Item, quantity int) error {
	if f.addErr != nil {
		return f.addErr
	}
	return f.MemoryStore.AddItem(ctx, cartID, item, quantity)
}

type faultyOrderRepo struct {
	*repository.MemoryStore
	saveErr map[string]error
}

func (f *faultyOrderRepo) SaveOrder(ctx context.Context, order *domain.Order) error {
	if err, ok := f.saveErr[order.ID]; ok {
		return err
	}
	return f.MemoryStore.SaveOrder(ctx, order)
}

type mockCache struct {
	m     sync.RWMutex
	carts map[string]*domain.Cart
	err   error
}

func newMockCache() *mockCache {
	return &mockCache{carts: make(map[string]*domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, cartID string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	cart, ok := m.carts[cartID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return cart.Clone(), nil
}

func (m *mockCache) Set(_ context.Context, cartID string, cart *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.carts[cartID] = cart.Clone()
	return nil
}

func (m *mockCache) Delete(_ context.Context, cartID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, cartID)
	return m.err
}

func (m *mockCache) cached(cartID string) (*domain.Cart, bool) {
	m.m.RLock()
	defer m.m.RUnlock()
	cart, ok := m.carts[cartID]
	return cart, ok
}

type recordingPublisher struct {
	m      sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) types() []events.Type {
	r.m.Lock()
	defer r.m.Unlock()
	types := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		types = append(types, e.Type)
	}
	return types
}

// vanishingOrderRepo deletes one order right after the first listing, as a
// concurrent delete would.
type vanishingOrderRepo struct {
	*repository.MemoryStore
	deleteID string
	once     sync.Once
}

func (v *vanishingOrderRepo) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := v.MemoryStore.ListOrders(ctx)
	if err != nil {
		return nil, err
	}
	v.once.Do(func() {
		_ = v.MemoryStore.DeleteOrder(ctx, v.deleteID)
	})
	return orders, nil
}

// cancellingOrderRepo cancels the caller's context after the first
// successful save.
type cancellingOrderRepo struct {
	*repository.MemoryStore
	cancel context.CancelFunc
}

func (c *cancellingOrderRepo) SaveOrder(ctx context.Context, order *domain.Order) error {
	if err := c.MemoryStore.SaveOrder(ctx, order); err != nil {
		return err
	}
	c.cancel()
	return nil
}

// listFailingOrderRepo fails every listing after the first.
type listFailingOrderRepo struct {
	*repository.MemoryStore
	lists atomic.Int32
	err   error
}

func (l *listFailingOrderRepo) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	if l.lists.Add(1) > 1 {
		return nil, l.err
	}
	return l.MemoryStore.ListOrders(ctx)
}

// gatedCartRepo holds every cart read until gate is closed.
type gatedCartRepo struct {
	*repository.MemoryStore
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	gets    atomic.Int32
}

func newGatedCartRepo() *gatedCartRepo {
	return &gatedCartRepo{
		MemoryStore: repository.NewMemoryStore(),
		gate:        make(chan struct{}),
		started:     make(chan struct{}),
	}
}

func (g *gatedCartRepo) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	g.gets.Add(1)
	g.once.Do(func() { close(g.started) })
	<-g.gate
	return g.MemoryStore.GetCart(ctx, cartID)
}
