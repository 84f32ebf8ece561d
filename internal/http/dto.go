package http

import (
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/shopspring/decimal"
)

type AddItemRequestDTO struct {
	Name     string `json:"name" validate:"required"`
	Price    string `json:"price" validate:"required,numeric"`
	ImageRef string `json:"image_ref"`
	Quantity int    `json:"quantity" validate:"min=1,max=99"`
}

func (r AddItemRequestDTO) toItem(productID string) (domain.Item, error) {
	price, err := parsePrice("price", r.Price)
	if err != nil {
		return domain.Item{}, err
	}
	return domain.Item{
		ID:       productID,
		Name:     r.Name,
		ImageRef: r.ImageRef,
		Price:    price,
	}, nil
}

// PlaceOrderRequestDTO carries a cart snapshot. An empty item list is left
// to the order service so it fails with the empty order error.
type PlaceOrderRequestDTO struct {
	Items []OrderItemRequestDTO `json:"items" validate:"dive"`
}

type OrderItemRequestDTO struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	ImageRef string `json:"image_ref"`
	Price    string `json:"price" validate:"required,numeric"`
	Quantity *int   `json:"quantity,omitempty" validate:"omitempty,min=0"`
}

func (r PlaceOrderRequestDTO) toItems() ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(r.Items))
	for _, it := range r.Items {
		price, err := parsePrice("items.price", it.Price)
		if err != nil {
			return nil, err
		}
		item := domain.Item{ID: it.ID, Name: it.Name, ImageRef: it.ImageRef, Price: price}
		if it.Quantity != nil {
			item.Quantity = *it.Quantity
		}
		items = append(items, item)
	}
	return items, nil
}

func parsePrice(field, value string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, &requestError{
			msg:     "validation failed",
			details: map[string]string{field: "must be a decimal number"},
		}
	}
	return price, nil
}

type ItemResponseDTO struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ImageRef string          `json:"image_ref"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type CartResponseDTO struct {
	ID        string            `json:"id"`
	Items     []ItemResponseDTO `json:"items"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type OrderResponseDTO struct {
	ID             string            `json:"id"`
	Items          []ItemResponseDTO `json:"items"`
	ProductsNumber int               `json:"products_number"`
	TotalPrice     decimal.Decimal   `json:"total_price"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type OrdersResponseDTO struct {
	Orders []OrderResponseDTO `json:"orders"`
}

type PurgeResponseDTO struct {
	ProductID    string             `json:"product_id"`
	Updated      []string           `json:"updated"`
	Unchanged    []string           `json:"unchanged"`
	Skipped      []string           `json:"skipped"`
	RemovedItems int                `json:"removed_items"`
	Orders       []OrderResponseDTO `json:"orders"`
}

func toItemResponses(items []domain.Item) []ItemResponseDTO {
	out := make([]ItemResponseDTO, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponseDTO{
			ID:       it.ID,
			Name:     it.Name,
			ImageRef: it.ImageRef,
			Price:    it.Price,
			Quantity: it.Quantity,
			Subtotal: it.Subtotal(),
		})
	}
	return out
}

func toCartResponse(c *domain.Cart) CartResponseDTO {
	return CartResponseDTO{
		ID:        c.ID,
		Items:     toItemResponses(c.Lines),
		Subtotal:  c.Subtotal(),
		UpdatedAt: c.UpdatedAt,
	}
}

func toOrderResponse(o *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{
		ID:             o.ID,
		Items:          toItemResponses(o.Items),
		ProductsNumber: o.ProductsNumber,
		TotalPrice:     o.TotalPrice(),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func toOrdersResponse(orders []*domain.Order) OrdersResponseDTO {
	out := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return OrdersResponseDTO{Orders: out}
}

func toPurgeResponse(r *service.PurgeReport) PurgeResponseDTO {
	return PurgeResponseDTO{
		ProductID:    r.ProductID,
		Updated:      nonNil(r.Updated),
		Unchanged:    nonNil(r.Unchanged),
		Skipped:      nonNil(r.Skipped),
		RemovedItems: r.RemovedItems,
		Orders:       toOrdersResponse(r.Orders).Orders,
	}
}
