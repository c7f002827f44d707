// Package cart holds the in-memory lines of an order in progress. It never
// touches the store.
package cart

import (
	"github.com/shopspring/decimal"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
)

// Line is one product in the cart. Name and UnitPrice are snapshots taken
// when the product was first added.
type Line struct {
	ProductID string          `json:"idProducto"`
	Name      string          `json:"nombre"`
	Quantity  int             `json:"cantidad"`
	UnitPrice decimal.Decimal `json:"precio"`
}

// Extension returns quantity x unit price.
func (l Line) Extension() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart keeps lines in insertion order. The zero value is an empty cart.
type Cart struct {
	lines []Line
	index map[string]int // productID -> position in lines
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add puts one unit of product in the cart. product.AvailableQuantity is the
// stock the caller read from the catalog.
func (c *Cart) Add(product models.Product) error {
	if !product.InStock() {
		return apperr.OutOfStock(product.Name)
	}

	if i, ok := c.index[product.ID]; ok {
		requested := c.lines[i].Quantity + 1
		if requested > product.AvailableQuantity {
			return apperr.InsufficientStock(apperr.Shortage{
				ProductID:   product.ID,
				ProductName: c.lines[i].Name,
				Requested:   requested,
				Available:   product.AvailableQuantity,
			})
		}
		c.lines[i].Quantity = requested
		return nil
	}

	if c.index == nil {
		c.index = make(map[string]int)
	}
	c.index[product.ID] = len(c.lines)
	c.lines = append(c.lines, Line{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  1,
		UnitPrice: product.Price,
	})
	return nil
}

// Remove takes one unit of productID out of the cart and drops the line when
// it reaches zero. Unknown ids are ignored.
func (c *Cart) Remove(productID string) {
	i, ok := c.index[productID]
	if !ok {
		return
	}
	c.lines[i].Quantity--
	if c.lines[i].Quantity > 0 {
		return
	}

	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	delete(c.index, productID)
	for j := i; j < len(c.lines); j++ {
		c.index[c.lines[j].ProductID] = j
	}
}

// Total returns the sum of line extensions.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Extension())
	}
	return total
}

// Quantity returns the units of productID in the cart.
func (c *Cart) Quantity(productID string) int {
	if i, ok := c.index[productID]; ok {
		return c.lines[i].Quantity
	}
	return 0
}

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len is the number of distinct products in the cart.
func (c *Cart) Len() int {
	return len(c.lines)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
	c.index = nil
}
