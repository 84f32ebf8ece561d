package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *MongoCartRepository) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"_id": cartID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, dependency("get cart", err)
	}

	return doc.toDomain()
}

func (m *MongoCartRepository) AddItem(ctx context.Context, cartID string, item domain.Item, quantity int) error {
	now := time.Now()

	merged, err := m.mergeQuantity(ctx, cartID, item.ID, quantity, now)
	if err != nil || merged {
		return err
	}

	item.Quantity = quantity
	line, err := toLineDocument(item)
	if err != nil {
		return err
	}

	// Push only when the line is still absent; creates the cart on first add.
	filter := bson.M{
		"_id":              cartID,
		"items.product_id": bson.M{"$ne": item.ID},
	}
	update := bson.M{
		"$push":        bson.M{"items": line},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err = m.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return dependency("add item", err)
	}

	// The line appeared between the two updates: the upsert collided with
	// the existing cart document, so merge onto it instead.
	merged, err = m.mergeQuantity(ctx, cartID, item.ID, quantity, now)
	if err != nil {
		return err
	}
	if !merged {
		return domain.ErrConflict
	}
	return nil
}

func (m *MongoCartRepository) mergeQuantity(ctx context.Context, cartID, productID string, quantity int, now time.Time) (bool, error) {
	filter := bson.M{
		"_id":              cartID,
		"items.product_id": productID,
	}
	update := bson.M{
		"$inc": bson.M{"items.$.quantity": quantity},
		"$set": bson.M{"updated_at": now},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, dependency("merge item quantity", err)
	}
	return result.MatchedCount > 0, nil
}

func (m *MongoCartRepository) AdjustQuantity(ctx context.Context, cartID, productID string, delta int) (bool, error) {
	// The quantity bound in the filter makes the floor clamp part of the
	// same atomic update.
	filter := bson.M{
		"_id": cartID,
		"items": bson.M{"$elemMatch": bson.M{
			"product_id": productID,
			"quantity":   bson.M{"$gte": domain.MinQuantity - delta},
		}},
	}
	update := bson.M{
		"$inc": bson.M{"items.$.quantity": delta},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, dependency("update item quantity", err)
	}
	if result.MatchedCount > 0 {
		return true, nil
	}

	n, err := m.collection.CountDocuments(ctx, bson.M{"_id": cartID, "items.product_id": productID})
	if err != nil {
		return false, dependency("check item", err)
	}
	if n == 0 {
		return false, domain.ErrLineNotFound
	}
	return false, nil
}

func (m *MongoCartRepository) RemoveItem(ctx context.Context, cartID, productID string) error {
	filter := bson.M{
		"_id":              cartID,
		"items.product_id": productID,
	}
	update := bson.M{
		"$pull": bson.M{
			"items": bson.M{"product_id": productID},
		},
		"$set": bson.M{"updated_at": time.Now()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return dependency("remove item", err)
	}

	if result.MatchedCount == 0 {
		return domain.ErrLineNotFound
	}

	return nil
}

func (m *MongoCartRepository) DeleteCart(ctx context.Context, cartID string) error {
	result, err := m.collection.DeleteOne(ctx, bson.M{"_id": cartID})
	if err != nil {
		return dependency("delete cart", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *MongoCartRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 60 * 60), // 90 days TTL
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return dependency("create cart indexes", err)
	}

	return nil
}
