package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBaseTTL = 15 * time.Minute
	maxJitter      = 5 // minutes
)

// ErrCacheUnavailable is returned while the breaker is open.
var ErrCacheUnavailable = errors.New("cache unavailable")

type Options struct {
	BaseTTL         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

func NewRedisCache(client *redis.Client, opts Options) *RedisCache {
	if opts.BaseTTL <= 0 {
		opts.BaseTTL = defaultBaseTTL
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	// Misses are not failures; only transport errors trip the breaker.
	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "redis-cart-cache",
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return &RedisCache{
		client:  client,
		baseTTL: opts.BaseTTL,
		breaker: breaker,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
	breaker *gobreaker.CircuitBreaker[[]byte]
}

func (r *RedisCache) Get(ctx context.Context, cartID string) (*domain.Cart, error) {
	key := cacheKey(cartID)

	data, err := r.breaker.Execute(func() ([]byte, error) {
		return r.client.Get(ctx, key).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, r.wrap("redis get failed", err)
	}

	var cart domain.Cart
	if err2 := json.Unmarshal(data, &cart); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}

	return &cart, nil
}

func (r *RedisCache) Set(ctx context.Context, cartID string, cart *domain.Cart) error {
	key := cacheKey(cartID)
	jsonCart, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(maxJitter)) * time.Minute
	ttl := r.baseTTL + jitter
	_, err = r.breaker.Execute(func() ([]byte, error) {
		return nil, r.client.Set(ctx, key, jsonCart, ttl).Err()
	})
	if err != nil {
		return r.wrap("redis set failed", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, cartID string) error {
	key := cacheKey(cartID)
	_, err := r.breaker.Execute(func() ([]byte, error) {
		return nil, r.client.Del(ctx, key).Err()
	})
	if err != nil {
		return r.wrap("redis delete failed", err)
	}

	return nil
}

func (r *RedisCache) wrap(msg string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s: %w: %w", msg, ErrCacheUnavailable, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func cacheKey(cartID string) string {
	return fmt.Sprintf("cart:%s", cartID)
}
