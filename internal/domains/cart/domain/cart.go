// Package domain holds the cart value type. Every operation returns a new Cart and leaves the
// receiver untouched, so a cart can be shared without locking.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/localborga/milling-orders/internal/domains/pricing"
)

// LineType is shared with pricing so a cart line can be priced without conversion.
type LineType = pricing.LineType

const (
	Shelf         = pricing.Shelf
	CustomMilling = pricing.CustomMilling
)

var (
	ErrNameRequired    = errors.New("cart line name is required")
	ErrProductRequired = errors.New("shelf line requires a product id")
	ErrMillingRequired = errors.New("custom milling line requires a milling configuration")
)

// MillingConfig describes a custom production request.
type MillingConfig struct {
	Style       string
	WeightKg    decimal.Decimal
	Texture     string
	Instruction string
}

// Line is one entry of the cart. Quantity is always 1 for custom milling.
type Line struct {
	ID        string
	Type      LineType
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	ProductID int64
	Milling   *MillingConfig
}

// Total is the line's contribution to the cart total.
func (l Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered list of lines.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() Cart {
	return Cart{}
}

// Add merges a shelf line into an existing line for the same product, or appends it.
// Custom milling lines are always appended under a fresh id.
func (c Cart) Add(line Line) (Cart, error) {
	line.Name = strings.TrimSpace(line.Name)
	if line.Name == "" {
		return c, ErrNameRequired
	}
	if line.UnitPrice.IsNegative() {
		return c, pricing.ErrInvalidPrice
	}
	switch line.Type {
	case Shelf:
		return c.addShelf(line)
	case CustomMilling:
		return c.addCustom(line)
	default:
		return c, fmt.Errorf("%w: %q", pricing.ErrUnknownLineType, line.Type)
	}
}

func (c Cart) addShelf(line Line) (Cart, error) {
	if line.ProductID <= 0 {
		return c, ErrProductRequired
	}
	if line.Quantity < 1 {
		return c, fmt.Errorf("%w: got %d", pricing.ErrInvalidQuantity, line.Quantity)
	}
	lines := c.copyLines(0)
	for i := range lines {
		if lines[i].Type == Shelf && lines[i].ProductID == line.ProductID {
			lines[i].Quantity += line.Quantity
			return Cart{lines: lines}, nil
		}
	}
	line.ID = shelfLineID(line.ProductID)
	line.Milling = nil
	return Cart{lines: append(lines, line)}, nil
}

func (c Cart) addCustom(line Line) (Cart, error) {
	if line.Milling == nil {
		return c, ErrMillingRequired
	}
	if !line.Milling.WeightKg.IsPositive() {
		return c, fmt.Errorf("%w: %s kg", pricing.ErrInvalidWeight, line.Milling.WeightKg)
	}
	milling := *line.Milling
	line.Milling = &milling
	line.ID = uuid.NewString()
	line.Quantity = 1
	line.ProductID = 0
	return Cart{lines: append(c.copyLines(1), line)}, nil
}

// Remove drops the line with id. Unknown ids leave the cart unchanged.
func (c Cart) Remove(lineID string) Cart {
	lines := make([]Line, 0, len(c.lines))
	for _, l := range c.lines {
		if l.ID != lineID {
			lines = append(lines, l)
		}
	}
	return Cart{lines: lines}
}

// SetQuantity updates a shelf line's quantity. A quantity of zero or less removes the line;
// custom milling lines keep quantity 1 and can only be removed.
func (c Cart) SetQuantity(lineID string, qty int) Cart {
	if qty <= 0 {
		return c.Remove(lineID)
	}
	lines := c.copyLines(0)
	for i := range lines {
		if lines[i].ID == lineID && lines[i].Type == Shelf {
			lines[i].Quantity = qty
		}
	}
	return Cart{lines: lines}
}

// Clear returns an empty cart.
func (c Cart) Clear() Cart {
	return Cart{}
}

// Total sums unit price times quantity over every line.
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Count sums the quantities.
func (c Cart) Count() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns a copy of the lines in insertion order.
func (c Cart) Lines() []Line {
	return c.copyLines(0)
}

// Len is the number of distinct lines.
func (c Cart) Len() int {
	return len(c.lines)
}

func (c Cart) copyLines(extra int) []Line {
	lines := make([]Line, len(c.lines), len(c.lines)+extra)
	copy(lines, c.lines)
	for i := range lines {
		if lines[i].Milling != nil {
			m := *lines[i].Milling
			lines[i].Milling = &m
		}
	}
	return lines
}

func shelfLineID(productID int64) string {
	return fmt.Sprintf("product-%d", productID)
}
