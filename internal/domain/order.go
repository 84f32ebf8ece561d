package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a placed snapshot of cart lines. ProductsNumber caches the sum of
// item quantities and must be recomputed whenever Items changes.
type Order struct {
	ID             string    `json:"id"`
	Items          []Item    `json:"items"`
	ProductsNumber int       `json:"products_number"`
	Version        int64     `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewOrder validates lines and builds an order from an independent copy of
// them. Unset quantities are stored as 1.
func NewOrder(id string, lines []Item, now time.Time) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	items := make([]Item, 0, len(lines))
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[line.ID]; dup {
			return nil, invalid("item %q appears more than once", line.ID)
		}
		seen[line.ID] = struct{}{}

		line.Quantity = line.EffectiveQuantity()
		items = append(items, line)
	}

	o := &Order{
		ID:        id,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	o.Recount()
	return o, nil
}

// Recount recomputes ProductsNumber from Items.
func (o *Order) Recount() {
	o.ProductsNumber = sumQuantities(o.Items)
}

// Consistent reports whether the cached aggregate matches the items.
func (o *Order) Consistent() bool {
	return o.ProductsNumber == sumQuantities(o.Items)
}

// AdjustLine changes one item's quantity by delta and recounts. A change
// that would go below MinQuantity is refused with changed=false.
func (o *Order) AdjustLine(itemID string, delta int) (changed bool, err error) {
	i := indexOf(o.Items, itemID)
	if i < 0 {
		return false, ErrOrderLineNotFound
	}
	if o.Items[i].EffectiveQuantity()+delta < MinQuantity {
		return false, nil
	}
	o.Items[i].Quantity = o.Items[i].EffectiveQuantity() + delta
	o.Recount()
	return true, nil
}

// RemoveLine drops one item and recounts. The order survives even when it
// ends up empty.
func (o *Order) RemoveLine(itemID string) error {
	i := indexOf(o.Items, itemID)
	if i < 0 {
		return ErrOrderLineNotFound
	}
	o.Items = append(o.Items[:i], o.Items[i+1:]...)
	o.Recount()
	return nil
}

// PurgeProduct removes every item with productID and recounts. It returns
// the number of removed items.
func (o *Order) PurgeProduct(productID string) int {
	kept := o.Items[:0]
	removed := 0
	for _, item := range o.Items {
		if item.ID == productID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	o.Items = kept
	o.Recount()
	return removed
}

func (o *Order) TotalPrice() decimal.Decimal {
	return sumPrices(o.Items)
}

func (o *Order) Clone() *Order {
	clone := *o
	clone.Items = copyItems(o.Items)
	return &clone
}
