package repository

import (
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type lineDocument struct {
	ProductID string               `bson:"product_id"`
	Name      string               `bson:"name"`
	ImageRef  string               `bson:"image_ref"`
	Price     primitive.Decimal128 `bson:"price"`
	Quantity  int                  `bson:"quantity"`
}

type cartDocument struct {
	ID        string         `bson:"_id"`
	Items     []lineDocument `bson:"items"`
	CreatedAt time.Time      `bson:"created_at"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type orderDocument struct {
	ID             string         `bson:"_id"`
	Items          []lineDocument `bson:"items"`
	ProductsNumber int            `bson:"products_number"`
	Version        int64          `bson:"version"`
	CreatedAt      time.Time      `bson:"created_at"`
	UpdatedAt      time.Time      `bson:"updated_at"`
}

func toLineDocument(item domain.Item) (lineDocument, error) {
	price, err := primitive.ParseDecimal128(item.Price.String())
	if err != nil {
		return lineDocument{}, fmt.Errorf("%w: encode price of %q: %w", domain.ErrInvalidInput, item.ID, err)
	}
	return lineDocument{
		ProductID: item.ID,
		Name:      item.Name,
		ImageRef:  item.ImageRef,
		Price:     price,
		Quantity:  item.Quantity,
	}, nil
}

func toLineDocuments(items []domain.Item) ([]lineDocument, error) {
	docs := make([]lineDocument, 0, len(items))
	for _, item := range items {
		doc, err := toLineDocument(item)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func fromLineDocuments(docs []lineDocument) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(docs))
	for _, doc := range docs {
		price, err := decimal.NewFromString(doc.Price.String())
		if err != nil {
			return nil, fmt.Errorf("%w: decode price of %q: %w", domain.ErrDependency, doc.ProductID, err)
		}
		items = append(items, domain.Item{
			ID:       doc.ProductID,
			Name:     doc.Name,
			ImageRef: doc.ImageRef,
			Price:    price,
			Quantity: doc.Quantity,
		})
	}
	return items, nil
}

func (d cartDocument) toDomain() (*domain.Cart, error) {
	lines, err := fromLineDocuments(d.Items)
	if err != nil {
		return nil, err
	}
	return &domain.Cart{
		ID:        d.ID,
		Lines:     lines,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}, nil
}

func (d orderDocument) toDomain() (*domain.Order, error) {
	items, err := fromLineDocuments(d.Items)
	if err != nil {
		return nil, err
	}
	return &domain.Order{
		ID:             d.ID,
		Items:          items,
		ProductsNumber: d.ProductsNumber,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

func newOrderDocument(o *domain.Order, version int64) (orderDocument, error) {
	items, err := toLineDocuments(o.Items)
	if err != nil {
		return orderDocument{}, err
	}
	return orderDocument{
		ID:             o.ID,
		Items:          items,
		ProductsNumber: o.ProductsNumber,
		Version:        version,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}, nil
}

func dependency(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrDependency, op, err)
}
