package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoOrderRepository struct {
	collection *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{
		collection: db.Collection("orders"),
	}
}

func (m *MongoOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) error {
	doc, err := newOrderDocument(order, 1)
	if err != nil {
		return err
	}

	if _, err := m.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: order %s already exists", domain.ErrConflict, order.ID)
		}
		return dependency("insert order", err)
	}

	order.Version = doc.Version
	return nil
}

func (m *MongoOrderRepository) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var doc orderDocument

	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, dependency("get order", err)
	}

	return doc.toDomain()
}

func (m *MongoOrderRepository) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, dependency("list orders", err)
	}
	defer cursor.Close(ctx)

	orders := make([]*domain.Order, 0)
	for cursor.Next(ctx) {
		var doc orderDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, dependency("decode order", err)
		}
		order, err := doc.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	if err := cursor.Err(); err != nil {
		return nil, dependency("iterate orders", err)
	}

	return orders, nil
}

func (m *MongoOrderRepository) SaveOrder(ctx context.Context, order *domain.Order) error {
	expected := order.Version
	order.UpdatedAt = time.Now()

	doc, err := newOrderDocument(order, expected+1)
	if err != nil {
		return err
	}

	// Items and products_number are replaced together, guarded by version.
	result, err := m.collection.ReplaceOne(ctx, bson.M{"_id": order.ID, "version": expected}, doc)
	if err != nil {
		return dependency("save order", err)
	}

	if result.MatchedCount == 0 {
		n, err := m.collection.CountDocuments(ctx, bson.M{"_id": order.ID})
		if err != nil {
			return dependency("check order", err)
		}
		if n == 0 {
			return domain.ErrOrderNotFound
		}
		return fmt.Errorf("%w: order %s changed since version %d", domain.ErrConflict, order.ID, expected)
	}

	order.Version = doc.Version
	return nil
}

func (m *MongoOrderRepository) DeleteOrder(ctx context.Context, id string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return dependency("delete order", err)
	}

	if result.DeletedCount == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}

func (m *MongoOrderRepository) DeleteAllOrders(ctx context.Context) (int64, error) {
	result, err := m.collection.DeleteMany(ctx, bson.M{})
	if err != nil {
		return 0, dependency("delete all orders", err)
	}

	return result.DeletedCount, nil
}

func (m *MongoOrderRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return dependency("create order indexes", err)
	}

	return nil
}
