package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	// Get connection string
	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	// Connect to MongoDB
	db, err := ConnectMongoDB(ctx, MongoOptions{
		URI:            uri,
		Database:       "testdb",
		MaxPoolSize:    10,
		ConnectTimeout: 10 * time.Second,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = db.Client().Disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func setupCartRepo(t *testing.T) (*MongoCartRepository, func()) {
	db, cleanup := setupTestDB(t)
	repo := NewMongoCartRepository(db)
	require.NoError(t, repo.CreateIndexes(context.Background()))
	return repo, cleanup
}

func setupOrderRepo(t *testing.T) (*MongoOrderRepository, func()) {
	db, cleanup := setupTestDB(t)
	repo := NewMongoOrderRepository(db)
	require.NoError(t, repo.CreateIndexes(context.Background()))
	return repo, cleanup
}

func TestMongoCart_GetCart_NotFound(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()

	cart, err := repo.GetCart(context.Background(), "nonexistent")

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestMongoCart_AddItem_NewCart(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()
	ctx := context.Background()

	item := domain.Item{ID: "p1", Name: "Lamp", ImageRef: "lamp.png", Price: decimal.RequireFromString("19.99")}
	require.NoError(t, repo.AddItem(ctx, "user123", item, 3))

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, "user123", cart.ID)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p1", cart.Lines[0].ID)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.True(t, decimal.RequireFromString("19.99").Equal(cart.Lines[0].Price))
	assert.False(t, cart.CreatedAt.IsZero())
}

func TestMongoCart_AddItem_ExistingItem_MergesQuantity(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "user123", product("p1"), 2))
	require.NoError(t, repo.AddItem(ctx, "user123", product("p1"), 5))

	// Verify quantity was added, not overwritten
	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 7, cart.Lines[0].Quantity)
}

func TestMongoCart_AddItem_ConcurrentFirstAdds(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AddItem(ctx, "user123", product("p1"), 1))
		}()
	}
	wg.Wait()

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 10, cart.Lines[0].Quantity)
}

func TestMongoCart_AdjustQuantity(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()
	ctx := context.Background()
	require.NoError(t, repo.AddItem(ctx, "user123", product("p1"), 1))

	changed, err := repo.AdjustQuantity(ctx, "user123", "p1", -1)
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = repo.AdjustQuantity(ctx, "user123", "p1", 1)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = repo.AdjustQuantity(ctx, "user123", "p2", 1)
	assert.ErrorIs(t, err, domain.ErrLineNotFound)

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestMongoCart_RemoveItem(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "user123", product("p1"), 2))
	require.NoError(t, repo.AddItem(ctx, "user123", product("p2"), 3))

	require.NoError(t, repo.RemoveItem(ctx, "user123", "p1"))
	assert.ErrorIs(t, repo.RemoveItem(ctx, "user123", "p1"), domain.ErrLineNotFound)

	cart, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p2", cart.Lines[0].ID)
}

func TestMongoCart_DeleteCart(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.AddItem(ctx, "user123", product("p1"), 2))
	require.NoError(t, repo.DeleteCart(ctx, "user123"))

	_, err := repo.GetCart(ctx, "user123")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, repo.DeleteCart(ctx, "user123"), ErrCartNotFound)
}

func TestMongoOrder_CreateAndGet(t *testing.T) {
	repo, cleanup := setupOrderRepo(t)
	defer cleanup()
	ctx := context.Background()

	order, err := domain.NewOrder("o1", []domain.Item{product("p1"), product("p2")}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, order))

	fetched, err := repo.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), fetched.Version)
	assert.Equal(t, 2, fetched.ProductsNumber)
	assert.Len(t, fetched.Items, 2)

	assert.ErrorIs(t, repo.CreateOrder(ctx, order), domain.ErrConflict)

	_, err = repo.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestMongoOrder_SaveOrder_CompareAndSwap(t *testing.T) {
	repo, cleanup := setupOrderRepo(t)
	defer cleanup()
	ctx := context.Background()

	order, err := domain.NewOrder("o1", []domain.Item{product("p1")}, time.Now().UTC())
	require.NoError(t, err)
	require.NoError(t, repo.CreateOrder(ctx, order))

	stale, err := repo.GetOrder(ctx, "o1")
	require.NoError(t, err)

	_, err = order.AdjustLine("p1", 2)
	require.NoError(t, err)
	require.NoError(t, repo.SaveOrder(ctx, order))

	stale.PurgeProduct("p1")
	assert.ErrorIs(t, repo.SaveOrder(ctx, stale), domain.ErrConflict)

	fetched, err := repo.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, 3, fetched.ProductsNumber)
	assert.Equal(t, int64(2), fetched.Version)
}

func TestMongoOrder_ListAndDelete(t *testing.T) {
	repo, cleanup := setupOrderRepo(t)
	defer cleanup()
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"o1", "o2", "o3"} {
		order, err := domain.NewOrder(id, []domain.Item{product("p1")}, base.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.NoError(t, repo.CreateOrder(ctx, order))
	}

	orders, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "o1", orders[0].ID)

	require.NoError(t, repo.DeleteOrder(ctx, "o2"))
	assert.ErrorIs(t, repo.DeleteOrder(ctx, "o2"), domain.ErrOrderNotFound)

	n, err := repo.DeleteAllOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	orders, err = repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestMongoContextCancellation(t *testing.T) {
	repo, cleanup := setupCartRepo(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := repo.GetCart(ctx, "user123")
	assert.ErrorIs(t, err, domain.ErrDependency)
	assert.Contains(t, err.Error(), "context")
}
