package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart holds at most one line per product id.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Item    `json:"lines"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCart(id string, now time.Time) *Cart {
	return &Cart{
		ID:        id,
		Lines:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Line returns the line for productID.
func (c *Cart) Line(productID string) (Item, bool) {
	i := indexOf(c.Lines, productID)
	if i < 0 {
		return Item{}, false
	}
	return c.Lines[i], true
}

// Add creates the line or merge-adds quantity onto the existing one.
func (c *Cart) Add(item Item, quantity int) error {
	if err := item.Validate(); err != nil {
		return err
	}
	if quantity < MinQuantity {
		return invalid("quantity must be at least %d", MinQuantity)
	}

	if i := indexOf(c.Lines, item.ID); i >= 0 {
		c.Lines[i].Quantity += quantity
		return nil
	}

	item.Quantity = quantity
	c.Lines = append(c.Lines, item)
	return nil
}

// Adjust changes a line's quantity by delta. A change that would take the
// line below MinQuantity leaves it untouched and reports changed=false.
func (c *Cart) Adjust(productID string, delta int) (changed bool, err error) {
	i := indexOf(c.Lines, productID)
	if i < 0 {
		return false, ErrLineNotFound
	}
	if c.Lines[i].Quantity+delta < MinQuantity {
		return false, nil
	}
	c.Lines[i].Quantity += delta
	return true, nil
}

func (c *Cart) Remove(productID string) error {
	i := indexOf(c.Lines, productID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	return nil
}

func (c *Cart) Clear() {
	c.Lines = []Item{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Snapshot returns an independent copy of the lines.
func (c *Cart) Snapshot() []Item {
	return copyItems(c.Lines)
}

func (c *Cart) Clone() *Cart {
	clone := *c
	clone.Lines = copyItems(c.Lines)
	return &clone
}

// Subtotal is the sum of price * quantity over all lines.
func (c *Cart) Subtotal() decimal.Decimal {
	return sumPrices(c.Lines)
}
