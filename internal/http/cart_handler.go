package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/go-chi/chi/v5"
)

const defaultRequestTimeout = 10 * time.Second

type CartService interface {
	GetCart(ctx context.Context, cartID string) (*domain.Cart, error)
	Add(ctx context.Context, auth domain.AuthContext, cartID string, item domain.Item, quantity int) (*domain.Cart, error)
	Increment(ctx context.Context, cartID, productID string) (*domain.Cart, error)
	Decrement(ctx context.Context, cartID, productID string) (*domain.Cart, error)
	Delete(ctx context.Context, cartID, productID string) (*domain.Cart, error)
	Clear(ctx context.Context, cartID string) (*domain.Cart, error)
}

type CheckoutService interface {
	PlaceFromCart(ctx context.Context, auth domain.AuthContext, cartID string) (*domain.Order, error)
}

// CartHandler serves the signed-in user's cart. The user id doubles as the
// cart id.
type CartHandler struct {
	carts    CartService
	checkout CheckoutService
	log      *logger.Logger
	timeout  time.Duration
}

func NewCartHandler(carts CartService, checkout CheckoutService, log *logger.Logger, timeout time.Duration) *CartHandler {
	if log == nil {
		log = logger.Nop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &CartHandler{
		carts:    carts,
		checkout: checkout,
		log:      log,
		timeout:  timeout,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.serveCart(w, r, func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error) {
		return h.carts.GetCart(ctx, auth.UserID)
	})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := decodeJSONBody(w, r, &req); err != nil {
		handleServiceError(r.Context(), h.log, w, err)
		return
	}
	item, err := req.toItem(chi.URLParam(r, "product_id"))
	if err != nil {
		handleServiceError(r.Context(), h.log, w, err)
		return
	}

	h.serveCart(w, r, func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error) {
		return h.carts.Add(ctx, auth, auth.UserID, item, req.Quantity)
	})
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.serveCart(w, r, func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error) {
		return h.carts.Increment(ctx, auth.UserID, productID)
	})
}

func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.serveCart(w, r, func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error) {
		return h.carts.Decrement(ctx, auth.UserID, productID)
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "product_id")
	h.serveCart(w, r, func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error) {
		return h.carts.Delete(ctx, auth.UserID, productID)
	})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.serveCart(w, r, func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error) {
		return h.carts.Clear(ctx, auth.UserID)
	})
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	auth := authFromContext(ctx)
	order, err := h.checkout.PlaceFromCart(ctx, auth, auth.UserID)
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *CartHandler) serveCart(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, auth domain.AuthContext) (*domain.Cart, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	auth := authFromContext(ctx)
	if err := auth.Require(); err != nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication", nil)
		return
	}

	cart, err := fn(ctx, auth)
	if err != nil {
		handleServiceError(ctx, h.log, w, err)
		return
	}
	respondJSON(w, http.StatusOK, toCartResponse(cart))
}
