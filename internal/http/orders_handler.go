package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrderService interface {
	Place(ctx context.Context, lines []domain.Item) (*domain.Order, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
	IncrementLine(ctx context.Context, orderID, itemID string) ([]*domain.Order, error)
	DecrementLine(ctx context.Context, orderID, itemID string) ([]*domain.Order, error)
	DeleteLine(ctx context.Context, orderID, itemID string) ([]*domain.Order, error)
	Delete(ctx context.Context, orderID string) ([]*domain.Order, error)
	DeleteAll(ctx context.Context) ([]*domain.Order, error)
	PurgeProduct(ctx context.Context, productID string) (*service.PurgeReport, error)
}

type OrdersHandler struct {
	orders  OrderService
	log     *logger.Logger
	timeout time.Duration
}

func NewOrdersHandler(orders OrderService, log *logger.Logger, timeout time.Duration) *OrdersHandler {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &OrdersHandler{
		orders:  orders,
		log:     log,
		timeout: timeout,
	}
}

func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	items, err := req.toItems()
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}

	order, err := h.orders.Place(ctx, items)
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.Get(ctx, chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	h.serveOrders(w, r, func(ctx context.Context) ([]*domain.Order, error) {
		return h.orders.List(ctx)
	})
}

func (h *OrdersHandler) IncrementLine(w http.ResponseWriter, r *http.Request) {
	orderID, itemID := chi.URLParam(r, "order_id"), chi.URLParam(r, "item_id")
	h.serveOrders(w, r, func(ctx context.Context) ([]*domain.Order, error) {
		return h.orders.IncrementLine(ctx, orderID, itemID)
	})
}

func (h *OrdersHandler) DecrementLine(w http.ResponseWriter, r *http.Request) {
	orderID, itemID := chi.URLParam(r, "order_id"), chi.URLParam(r, "item_id")
	h.serveOrders(w, r, func(ctx context.Context) ([]*domain.Order, error) {
		return h.orders.DecrementLine(ctx, orderID, itemID)
	})
}

func (h *OrdersHandler) DeleteLine(w http.ResponseWriter, r *http.Request) {
	orderID, itemID := chi.URLParam(r, "order_id"), chi.URLParam(r, "item_id")
	h.serveOrders(w, r, func(ctx context.Context) ([]*domain.Order, error) {
		return h.orders.DeleteLine(ctx, orderID, itemID)
	})
}

func (h *OrdersHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	h.serveOrders(w, r, func(ctx context.Context) ([]*domain.Order, error) {
		return h.orders.Delete(ctx, orderID)
	})
}

func (h *OrdersHandler) DeleteAllOrders(w http.ResponseWriter, r *http.Request) {
	h.serveOrders(w, r, func(ctx context.Context) ([]*domain.Order, error) {
		return h.orders.DeleteAll(ctx)
	})
}

func (h *OrdersHandler) PurgeProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	report, err := h.orders.PurgeProduct(ctx, chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toPurgeResponse(report))
}

func (h *OrdersHandler) serveOrders(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context) ([]*domain.Order, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := fn(ctx)
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrdersResponse(orders))
}
