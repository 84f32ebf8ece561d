package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/events"
	h "github.com/fjod/go_cart/storefront/internal/http"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/fjod/go_cart/storefront/internal/metrics"
	"github.com/fjod/go_cart/storefront/internal/repository"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment", nil)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.App.Name,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})
	ctx := context.Background()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	carts, orders, closeStore, err := openStore(ctx, cfg, logg)
	if err != nil {
		logg.Error(ctx, "failed to open store", err)
		os.Exit(1)
	}
	defer closeStore()

	cartCache, closeCache := openCache(ctx, cfg, logg)
	defer closeCache()

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled() {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Topic, cfg.Kafka.WriteTimeout, cfg.Kafka.Brokers...)
		logg.Info(logg.WithField(ctx, "topic", cfg.Kafka.Topic), "publishing order events to kafka")
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logg.Error(ctx, "error closing event publisher", err)
		}
	}()

	cartService := service.NewCartService(carts, cartCache, logg, m)
	orderService := service.NewOrderService(orders, publisher, logg, m)
	checkoutService := service.NewCheckoutService(cartService, orderService)

	router := h.NewRouter(h.RouterConfig{
		Carts:          h.NewCartHandler(cartService, checkoutService, logg, cfg.HTTP.RequestTimeout),
		Orders:         h.NewOrdersHandler(orderService, logg, cfg.HTTP.RequestTimeout),
		Logger:         logg,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"addr":  srv.Addr,
			"store": cfg.Store.Driver,
		}), "storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "server error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info(ctx, "shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "server forced to shutdown", err)
	}
	logg.Info(ctx, "server exited")
}

func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (repository.CartRepository, repository.OrderRepository, func(), error) {
	if cfg.Store.Driver == config.StoreMemory {
		logg.Warn(ctx, "using in-memory store, data is lost on restart", nil)
		store := repository.NewMemoryStore()
		return store, store, func() {}, nil
	}

	db, err := repository.ConnectMongoDB(ctx, repository.MongoOptions{
		URI:              cfg.Mongo.URI,
		Database:         cfg.Mongo.Database,
		MaxPoolSize:      cfg.Mongo.MaxPoolSize,
		MinPoolSize:      cfg.Mongo.MinPoolSize,
		ConnectTimeout:   cfg.Mongo.ConnectTimeout,
		OperationTimeout: cfg.Mongo.OperationTimeout,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	carts := repository.NewMongoCartRepository(db)
	orders := repository.NewMongoOrderRepository(db)
	if err := carts.CreateIndexes(ctx); err != nil {
		return nil, nil, nil, err
	}
	if err := orders.CreateIndexes(ctx); err != nil {
		return nil, nil, nil, err
	}
	logg.Info(logg.WithField(ctx, "database", cfg.Mongo.Database), "connected to mongodb")

	closeFn := func() {
		if err := db.Client().Disconnect(context.Background()); err != nil {
			logg.Error(ctx, "error disconnecting mongodb", err)
		}
	}
	return carts, orders, closeFn, nil
}

// openCache falls back to no caching when Redis is not configured. An
// unreachable Redis is only logged; the breaker keeps requests flowing.
func openCache(ctx context.Context, cfg *config.Config, logg *logger.Logger) (cache.CartCache, func()) {
	if !cfg.Redis.Enabled() {
		logg.Info(ctx, "redis not configured, cart cache disabled")
		return cache.NoopCache{}, func() {}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logg.Warn(ctx, "redis ping failed", err)
	} else {
		logg.Info(ctx, "redis ping succeeded")
	}

	c := cache.NewRedisCache(client, cache.Options{
		BaseTTL:         cfg.Redis.CacheTTL,
		BreakerFailures: cfg.Redis.BreakerFailures,
		BreakerCooldown: cfg.Redis.BreakerCooldown,
	})
	return c, func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}
}
