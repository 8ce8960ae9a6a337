// Package cart implements the two in-memory shopping engines of the
// portal: a merchandise cart keyed by product variant and a ticket cart
// scoped to a single match. Both are cleared only by checkout
// completion; closing a view never touches cart contents.
package cart

import "sync"

// LineKey is the composite identity of a merchandise line. Two lines
// with the same product but a different size or color are distinct.
type LineKey struct {
	ProductID string `json:"product_id"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Line is one merchandise cart entry. UnitPrice is a snapshot taken
// when the line was first added, in minor currency units.
type Line struct {
	LineKey
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Cart is the merchandise cart engine.
type Cart struct {
	mu    sync.Mutex
	lines []Line
}

// NewCart creates an empty merchandise cart.
func NewCart() *Cart {
	return &Cart{}
}

// Add merges quantity into an existing line with the identical
// (product, size, color) identity, or appends a new line.
func (c *Cart) Add(key LineKey, name string, unitPrice int64, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].LineKey == key {
			c.lines[i].Quantity += quantity
			return nil
		}
	}
	c.lines = append(c.lines, Line{LineKey: key, Name: name, UnitPrice: unitPrice, Quantity: quantity})
	return nil
}

// SetQuantity updates the line matching the full variant identity.
// Variant lines of one product coexist, so the key must be exact.
func (c *Cart) SetQuantity(key LineKey, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.lines {
		if c.lines[i].LineKey == key {
			c.lines[i].Quantity = quantity
			return nil
		}
	}
	return ErrLineNotFound
}

// Remove deletes every variant line of the given product.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.lines[:0]
	for _, l := range c.lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	c.lines = kept
}

// Total sums unit price times quantity over all lines.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total int64
	for _, l := range c.lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

// Lines returns a copy of the current cart contents.
func (c *Cart) Lines() []Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.lines) == 0
}

// Clear drops all lines. Called by checkout completion only.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
}
