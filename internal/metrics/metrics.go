package metrics

import (
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records storefront operation outcomes. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	purged     prometheus.Counter
	cache      *prometheus.CounterVec
}

// New registers the storefront metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "operations_total",
		Help:      "Cart and order operations by outcome.",
	}, []string{"operation", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "operation_duration_seconds",
		Help:      "Duration of cart and order operations in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "purged_order_items_total",
		Help:      "Order items removed by product purges.",
	})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_cache_lookups_total",
		Help:      "Cart cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(operations, duration, purged, cache)
	return &Metrics{
		operations: operations,
		duration:   duration,
		purged:     purged,
		cache:      cache,
	}
}

// Observe records one finished operation.
func (m *Metrics) Observe(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
}

func (m *Metrics) AddPurgedItems(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.purged.Add(float64(n))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("hit").Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}

func (m *Metrics) CacheError() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("error").Inc()
}

// Outcome maps an error to a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrDependency):
		return "dependency_failure"
	default:
		return "error"
	}
}
