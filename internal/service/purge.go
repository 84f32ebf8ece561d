package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/events"
)

// PurgeReport describes a completed purge. Skipped orders were deleted
// after the pass started and needed no write.
type PurgeReport struct {
	ProductID    string
	Updated      []string
	Unchanged    []string
	Skipped      []string
	RemovedItems int
	Orders       []*domain.Order
}

// PurgeError reports a purge that did not reach a clean end. Updated orders
// are durable; Failed and Pending orders may still hold the product. Cause
// is set when the pass stopped for a reason not tied to one order, such as
// an expired context.
type PurgeError struct {
	ProductID string
	Updated   []string
	Failed    map[string]error
	Pending   []string
	Cause     error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge of product %s incomplete: %d updated, %d failed, %d pending",
		e.ProductID, len(e.Updated), len(e.Failed), len(e.Pending))
}

// Unwrap exposes the per-order causes and the stop cause so errors.Is sees
// their kinds.
func (e *PurgeError) Unwrap() []error {
	ids := e.FailedIDs()
	errs := make([]error, 0, len(ids)+1)
	for _, id := range ids {
		errs = append(errs, e.Failed[id])
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// FailedIDs returns the failed order ids in sorted order.
func (e *PurgeError) FailedIDs() []string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PurgeListError reports a purge whose writes all landed but whose final
// order listing failed. Report holds everything but the order set.
type PurgeListError struct {
	Report *PurgeReport
	Err    error
}

func (e *PurgeListError) Error() string {
	return fmt.Sprintf("purge of product %s applied, listing orders: %v", e.Report.ProductID, e.Err)
}

func (e *PurgeListError) Unwrap() error { return e.Err }

// PurgeProduct removes every item with productID from every order and
// recounts each order it touches. All orders are visited, and an order
// whose products number drifted is repaired even if it never held the
// product. An order deleted meanwhile is skipped. A conflicting write is
// recorded and the pass moves on; a store failure or an expired context
// stops the pass and leaves the rest pending.
func (s *OrderService) PurgeProduct(ctx context.Context, productID string) (*PurgeReport, error) {
	started := time.Now()
	report, err := s.purge(ctx, productID)
	s.metrics.Observe("order.purge_product", started, err)
	return report, err
}

func (s *OrderService) purge(ctx context.Context, productID string) (*PurgeReport, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidInput)
	}
	ctx = s.log.WithField(ctx, "product_id", productID)

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	report := &PurgeReport{ProductID: productID}
	failed := make(map[string]error)
	var (
		pending []string
		cause   error
	)

	for i, order := range orders {
		if err := ctx.Err(); err != nil {
			pending = remainingIDs(orders[i:])
			cause = err
			break
		}

		consistent := order.Consistent()
		removed := order.PurgeProduct(productID)
		if removed == 0 && consistent {
			report.Unchanged = append(report.Unchanged, order.ID)
			continue
		}

		order.UpdatedAt = s.now()
		if err := s.repo.SaveOrder(ctx, order); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				report.Skipped = append(report.Skipped, order.ID)
				continue
			}
			s.log.Warn(s.log.WithField(ctx, "order_id", order.ID), "order.purge_save_failed", err)
			failed[order.ID] = err
			if !errors.Is(err, domain.ErrConflict) {
				pending = remainingIDs(orders[i+1:])
				break
			}
			continue
		}
		report.Updated = append(report.Updated, order.ID)
		report.RemovedItems += removed
	}

	s.metrics.AddPurgedItems(report.RemovedItems)

	if len(failed) > 0 || len(pending) > 0 {
		return nil, &PurgeError{
			ProductID: productID,
			Updated:   report.Updated,
			Failed:    failed,
			Pending:   pending,
			Cause:     cause,
		}
	}

	s.publish(ctx, events.Event{Type: events.ProductPurged, ProductID: productID, OrderIDs: report.Updated})

	report.Orders, err = s.repo.ListOrders(ctx)
	if err != nil {
		return nil, &PurgeListError{Report: report, Err: err}
	}
	return report, nil
}

func remainingIDs(orders []*domain.Order) []string {
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	return ids
}
