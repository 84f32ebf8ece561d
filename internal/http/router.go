package http

import (
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterConfig struct {
	Carts          *CartHandler
	Orders         *OrdersHandler
	Logger         *logger.Logger
	RequestTimeout time.Duration
	// AllowedOrigins enables CORS for browser clients when set.
	AllowedOrigins []string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(cfg RouterConfig) chi.Router {
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(CORS(cfg.AllowedOrigins))
	}
	r.Use(RequestID(cfg.Logger))
	r.Use(Logging(cfg.Logger))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Session(cfg.Logger))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Carts.GetCart)
			r.Delete("/", cfg.Carts.ClearCart)
			r.Post("/checkout", cfg.Carts.Checkout)
			r.Put("/items/{product_id}", cfg.Carts.AddItem)
			r.Delete("/items/{product_id}", cfg.Carts.RemoveItem)
			r.Put("/items/{product_id}/increment", cfg.Carts.Increment)
			r.Put("/items/{product_id}/decrement", cfg.Carts.Decrement)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", cfg.Orders.ListOrders)
			r.Post("/", cfg.Orders.PlaceOrder)
			r.Delete("/", cfg.Orders.DeleteAllOrders)
			r.Delete("/products/{product_id}", cfg.Orders.PurgeProduct)
			r.Get("/{order_id}", cfg.Orders.GetOrder)
			r.Delete("/{order_id}", cfg.Orders.DeleteOrder)
			r.Put("/{order_id}/items/{item_id}/increment", cfg.Orders.IncrementLine)
			r.Put("/{order_id}/items/{item_id}/decrement", cfg.Orders.DecrementLine)
			r.Delete("/{order_id}/items/{item_id}", cfg.Orders.DeleteLine)
		})
	})

	return r
}
