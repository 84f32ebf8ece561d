package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/google/uuid"
)

type OrderService struct {
	repo    repository.OrderRepository
	events  events.Publisher
	log     *logger.Logger
	metrics *metrics.Metrics
	newID   func() (string, error)
	now     func() time.Time
}

func NewOrderService(repo repository.OrderRepository, publisher events.Publisher, log *logger.Logger, m *metrics.Metrics) *OrderService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OrderService{
		repo:    repo,
		events:  publisher,
		log:     log,
		metrics: m,
		newID:   newOrderID,
		now:     time.Now,
	}
}

// newOrderID returns a time-ordered UUIDv7 so ids sort by creation.
func newOrderID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate order id: %w", err)
	}
	return id.String(), nil
}

// Place stores a new order built from a copy of lines.
func (s *OrderService) Place(ctx context.Context, lines []domain.Item) (*domain.Order, error) {
	started := time.Now()
	order, err := s.place(ctx, lines)
	s.metrics.Observe("order.place", started, err)
	return order, err
}

func (s *OrderService) place(ctx context.Context, lines []domain.Item) (*domain.Order, error) {
	id, err := s.newID()
	if err != nil {
		return nil, err
	}
	order, err := domain.NewOrder(id, lines, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		s.log.Error(ctx, "order.create_failed", err)
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.OrderPlaced, OrderID: order.ID, Order: order.Clone()})
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	started := time.Now()
	order, err := s.repo.GetOrder(ctx, orderID)
	s.metrics.Observe("order.get", started, err)
	return order, err
}

// List returns every order, oldest first.
func (s *OrderService) List(ctx context.Context) ([]*domain.Order, error) {
	started := time.Now()
	orders, err := s.repo.ListOrders(ctx)
	s.metrics.Observe("order.list", started, err)
	return orders, err
}

func (s *OrderService) IncrementLine(ctx context.Context, orderID, itemID string) ([]*domain.Order, error) {
	return s.updateOrder(ctx, "order.increment_line", orderID, func(o *domain.Order) (bool, error) {
		return o.AdjustLine(itemID, 1)
	})
}

// DecrementLine lowers an item by one. An item at quantity 1 stays at 1.
func (s *OrderService) DecrementLine(ctx context.Context, orderID, itemID string) ([]*domain.Order, error) {
	return s.updateOrder(ctx, "order.decrement_line", orderID, func(o *domain.Order) (bool, error) {
		return o.AdjustLine(itemID, -1)
	})
}

// DeleteLine removes one item. The order is kept even when it ends up empty.
func (s *OrderService) DeleteLine(ctx context.Context, orderID, itemID string) ([]*domain.Order, error) {
	return s.updateOrder(ctx, "order.delete_line", orderID, func(o *domain.Order) (bool, error) {
		if err := o.RemoveLine(itemID); err != nil {
			return false, err
		}
		return true, nil
	})
}

// updateOrder loads one order, applies fn and writes it back guarded by the
// version it was read at. The full order list is returned.
func (s *OrderService) updateOrder(ctx context.Context, op, orderID string, fn func(o *domain.Order) (bool, error)) ([]*domain.Order, error) {
	started := time.Now()
	orders, err := func() ([]*domain.Order, error) {
		order, err := s.repo.GetOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		changed, err := fn(order)
		if err != nil {
			return nil, err
		}
		if changed {
			order.UpdatedAt = s.now()
			if err := s.repo.SaveOrder(ctx, order); err != nil {
				s.log.Warn(s.log.WithField(ctx, "order_id", orderID), op+"_failed", err)
				return nil, err
			}
		}
		return s.repo.ListOrders(ctx)
	}()
	s.metrics.Observe(op, started, err)
	return orders, err
}

func (s *OrderService) Delete(ctx context.Context, orderID string) ([]*domain.Order, error) {
	started := time.Now()
	orders, err := func() ([]*domain.Order, error) {
		if err := s.repo.DeleteOrder(ctx, orderID); err != nil {
			return nil, err
		}
		s.publish(ctx, events.Event{Type: events.OrderDeleted, OrderID: orderID})
		return s.repo.ListOrders(ctx)
	}()
	s.metrics.Observe("order.delete", started, err)
	return orders, err
}

// DeleteAll removes every order. It succeeds when there is nothing to
// delete.
func (s *OrderService) DeleteAll(ctx context.Context) ([]*domain.Order, error) {
	started := time.Now()
	orders, err := func() ([]*domain.Order, error) {
		n, err := s.repo.DeleteAllOrders(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Info(s.log.WithField(ctx, "deleted", n), "orders.cleared")
		s.publish(ctx, events.Event{Type: events.OrdersCleared})
		return s.repo.ListOrders(ctx)
	}()
	s.metrics.Observe("order.delete_all", started, err)
	return orders, err
}

// publish never fails the caller; the change is already persisted.
func (s *OrderService) publish(ctx context.Context, event events.Event) {
	event.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn(s.log.WithField(ctx, "event_type", string(event.Type)), "order.publish_failed", err)
	}
}
