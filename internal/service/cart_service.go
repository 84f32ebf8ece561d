package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"golang.org/x/sync/singleflight"
)

// MaxAddQuantity bounds the quantity of a single add call. The merged line
// itself is unbounded.
const MaxAddQuantity = 99

const (
	cacheWriteTimeout = time.Second
	cartLoadTimeout   = 5 * time.Second
)

type CartService struct {
	repo    repository.CartRepository
	cache   cache.CartCache
	log     *logger.Logger
	metrics *metrics.Metrics
	locks   keyedLock
	sfg     singleflight.Group // collapses concurrent cache misses per cart
	now     func() time.Time
}

func NewCartService(repo repository.CartRepository, c cache.CartCache, log *logger.Logger, m *metrics.Metrics) *CartService {
	if c == nil {
		c = cache.NoopCache{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CartService{
		repo:    repo,
		cache:   c,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// GetCart returns the current cart. A cart that was never written is
// returned empty.
func (s *CartService) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	started := time.Now()
	// The shared load runs detached from any one caller, so a caller that
	// gives up does not fail the others waiting on the same flight.
	ch := s.sfg.DoChan(cartID, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cartLoadTimeout)
		defer cancel()
		return s.fetchCart(loadCtx, cartID)
	})

	var (
		cart *domain.Cart
		err  error
	)
	select {
	case <-ctx.Done():
		err = fmt.Errorf("get cart %s: %w", cartID, ctx.Err())
	case res := <-ch:
		err = res.Err
		if err == nil {
			// Callers sharing a flight must not share the value.
			cart = res.Val.(*domain.Cart).Clone()
		}
	}
	s.metrics.Observe("cart.get", started, err)
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) fetchCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.cache.Get(ctx, cartID)
	if err == nil {
		s.metrics.CacheHit()
		return cart, nil
	}
	if errors.Is(err, cache.ErrCacheMiss) {
		s.metrics.CacheMiss()
	} else {
		s.metrics.CacheError()
		s.log.Warn(ctx, "cart.cache_get_failed", err)
	}

	// Loading under the lock keeps a slow read from caching a cart
	// that a concurrent mutation already replaced.
	unlock, err := s.locks.acquire(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err = s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	s.writeCache(ctx, cart)
	return cart, nil
}

// Add puts quantity units of item into the cart, merging onto an existing
// line with the same product id.
func (s *CartService) Add(ctx context.Context, auth domain.AuthContext, cartID string, item domain.Item, quantity int) (*domain.Cart, error) {
	if err := validateAdd(auth, item, quantity); err != nil {
		s.metrics.Observe("cart.add", time.Now(), err)
		return nil, err
	}
	return s.mutate(ctx, "cart.add", cartID, func(ctx context.Context) error {
		return s.repo.AddItem(ctx, cartID, item, quantity)
	})
}

func validateAdd(auth domain.AuthContext, item domain.Item, quantity int) error {
	if err := auth.Require(); err != nil {
		return err
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if quantity < domain.MinQuantity || quantity > MaxAddQuantity {
		return fmt.Errorf("%w: quantity must be between %d and %d", domain.ErrInvalidInput, domain.MinQuantity, MaxAddQuantity)
	}
	return nil
}

func (s *CartService) Increment(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, "cart.increment", cartID, func(ctx context.Context) error {
		_, err := s.repo.AdjustQuantity(ctx, cartID, productID, 1)
		return err
	})
}

// Decrement lowers a line by one. A line at quantity 1 stays at 1.
func (s *CartService) Decrement(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, "cart.decrement", cartID, func(ctx context.Context) error {
		_, err := s.repo.AdjustQuantity(ctx, cartID, productID, -1)
		return err
	})
}

func (s *CartService) Delete(ctx context.Context, cartID, productID string) (*domain.Cart, error) {
	return s.mutate(ctx, "cart.delete", cartID, func(ctx context.Context) error {
		return s.repo.RemoveItem(ctx, cartID, productID)
	})
}

// Clear empties the cart. Clearing an empty or unknown cart succeeds.
func (s *CartService) Clear(ctx context.Context, cartID string) (*domain.Cart, error) {
	return s.mutate(ctx, "cart.clear", cartID, func(ctx context.Context) error {
		return s.clearLocked(ctx, cartID)
	})
}

func (s *CartService) mutate(ctx context.Context, op, cartID string, fn func(ctx context.Context) error) (*domain.Cart, error) {
	started := time.Now()
	cart, err := s.mutateLocked(ctx, op, cartID, fn)
	s.metrics.Observe(op, started, err)
	return cart, err
}

func (s *CartService) mutateLocked(ctx context.Context, op, cartID string, fn func(ctx context.Context) error) (*domain.Cart, error) {
	if cartID == "" {
		return nil, fmt.Errorf("%w: cart id is required", domain.ErrInvalidInput)
	}

	unlock, err := s.locks.acquire(ctx, cartID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := fn(ctx); err != nil {
		if errors.Is(err, domain.ErrDependency) {
			// The write may or may not have landed.
			s.log.Error(ctx, op+"_failed", err)
			s.invalidateCache(ctx, cartID)
		}
		return nil, err
	}

	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		s.invalidateCache(ctx, cartID)
		return nil, err
	}
	s.writeCache(ctx, cart)
	return cart, nil
}

func (s *CartService) clearLocked(ctx context.Context, cartID string) error {
	err := s.repo.DeleteCart(ctx, cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil
	}
	return err
}

func (s *CartService) loadCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, cartID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return domain.NewCart(cartID, s.now()), nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *CartService) writeCache(ctx context.Context, cart *domain.Cart) {
	ctx, cancel := context.WithTimeout(ctx, cacheWriteTimeout)
	defer cancel()
	if err := s.cache.Set(ctx, cart.ID, cart); err != nil {
		s.metrics.CacheError()
		s.log.Warn(ctx, "cart.cache_set_failed", err)
	}
}

func (s *CartService) invalidateCache(ctx context.Context, cartID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, cartID); err != nil {
		s.metrics.CacheError()
		s.log.Warn(ctx, "cart.cache_invalidate_failed", err)
	}
}
