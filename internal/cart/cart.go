package cart

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrOutOfStock    = errors.New("out of stock")
	ErrStockExceeded = errors.New("stock exceeded")
	ErrLineNotFound  = errors.New("line not found")
)

// Line is one product(+variant) entry of an in-progress sale.
// UnitPrice and AvailableStock are captured when the line is created and never re-derived.
type Line struct {
	Selection      Selection
	Quantity       int
	UnitPrice      int64
	AvailableStock int
}

// Key returns the identity of the line
func (l Line) Key() LineKey { return l.Selection.Key() }

// Total returns unit price times quantity
func (l Line) Total() int64 { return l.UnitPrice * int64(l.Quantity) }

// WeightGrams returns the shipping weight of the whole line
func (l Line) WeightGrams() int { return l.Quantity * l.Selection.UnitWeightGrams() }

func (l Line) MarshalJSON() ([]byte, error) {
	p := l.Selection.Base()
	return json.Marshal(struct {
		Key            LineKey `json:"key"`
		ProductID      string  `json:"product_id"`
		VariantID      *string `json:"variant_id,omitempty"`
		Name           string  `json:"name"`
		Quantity       int     `json:"quantity"`
		UnitPrice      int64   `json:"unit_price"`
		AvailableStock int     `json:"available_stock"`
		LineTotal      int64   `json:"line_total"`
	}{
		Key:            l.Key(),
		ProductID:      p.ID,
		VariantID:      VariantID(l.Selection),
		Name:           Describe(l.Selection),
		Quantity:       l.Quantity,
		UnitPrice:      l.UnitPrice,
		AvailableStock: l.AvailableStock,
		LineTotal:      l.Total(),
	})
}

// Cart is an ordered collection of lines owned by one terminal session
type Cart struct {
	lines []Line
}

// New creates an empty cart
func New() *Cart {
	return &Cart{}
}

// Add puts one unit of the selection into the cart, incrementing an existing line
func (c *Cart) Add(sel Selection) error {
	available := sel.AvailableStock()
	if available <= 0 {
		return fmt.Errorf("%w: %s", ErrOutOfStock, Describe(sel))
	}

	if c.indexOf(sel.Key()) >= 0 {
		return c.ChangeQuantity(sel.Key(), 1)
	}

	c.lines = append(c.lines, Line{
		Selection:      sel,
		Quantity:       1,
		UnitPrice:      sel.UnitPrice(),
		AvailableStock: available,
	})
	return nil
}

// ChangeQuantity applies delta to a line. A result of zero or less removes the line;
// a result above the captured stock ceiling is rejected and the line left untouched.
func (c *Cart) ChangeQuantity(key LineKey, delta int) error {
	i := c.indexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrLineNotFound, key)
	}

	line := &c.lines[i]
	qty := line.Quantity + delta
	if qty <= 0 {
		c.Remove(key)
		return nil
	}
	if qty > line.AvailableStock {
		return fmt.Errorf("%w: %s has only %d available", ErrStockExceeded, Describe(line.Selection), line.AvailableStock)
	}

	line.Quantity = qty
	return nil
}

// Remove deletes a line if present
func (c *Cart) Remove(key LineKey) {
	i := c.indexOf(key)
	if i < 0 {
		return
	}
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a copy of the lines in insertion order
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Line returns the line with the given key
func (c *Cart) Line(key LineKey) (Line, bool) {
	i := c.indexOf(key)
	if i < 0 {
		return Line{}, false
	}
	return c.lines[i], true
}

func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

// Subtotal sums unit price times quantity over all lines
func (c *Cart) Subtotal() int64 {
	return Subtotal(c.lines)
}

// TotalWeightGrams sums the shipping weight of all lines
func (c *Cart) TotalWeightGrams() int {
	var total int
	for _, l := range c.lines {
		total += l.WeightGrams()
	}
	return total
}

// TotalQuantity sums quantities over all lines
func (c *Cart) TotalQuantity() int {
	var total int
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

func (c *Cart) indexOf(key LineKey) int {
	for i := range c.lines {
		if c.lines[i].Key() == key {
			return i
		}
	}
	return -1
}

// Subtotal sums unit price times quantity over lines
func Subtotal(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.Total()
	}
	return total
}
