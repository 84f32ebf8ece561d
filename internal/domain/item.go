package domain

import (
	"github.com/shopspring/decimal"
)

// MinQuantity is the floor for any stored cart line or order item.
const MinQuantity = 1

// Item is one product entry. Inside a cart it is a cart line, inside an
// order it is an order item; ID is the product identifier in both cases.
type Item struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ImageRef string          `json:"image_ref"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// EffectiveQuantity counts an unset quantity as one.
func (i Item) EffectiveQuantity() int {
	if i.Quantity <= 0 {
		return 1
	}
	return i.Quantity
}

// Subtotal returns price * quantity.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.EffectiveQuantity())))
}

// Validate checks the fields every stored item must carry. A zero quantity
// is accepted here since it means "unspecified" in transit.
func (i Item) Validate() error {
	if i.ID == "" {
		return invalid("item id is required")
	}
	if i.Name == "" {
		return invalid("item %q: name is required", i.ID)
	}
	if i.Price.IsNegative() {
		return invalid("item %q: price must not be negative", i.ID)
	}
	if i.Quantity < 0 {
		return invalid("item %q: quantity must not be negative", i.ID)
	}
	return nil
}

func copyItems(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

func indexOf(items []Item, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func sumQuantities(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.EffectiveQuantity()
	}
	return total
}

func sumPrices(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
