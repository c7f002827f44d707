package models

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Prices and totals are stored as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Product represents a product in the catalog and in the "products" collection
type Product struct {
	ID                string          `json:"idProducto"`
	Name              string          `json:"nombre"`
	CategoryID        string          `json:"idCategoria"`
	Price             decimal.Decimal `json:"precioVenta"`
	AvailableQuantity int             `json:"cantidadDisponible"`
}

// InStock reports whether at least one unit can be sold.
func (p Product) InStock() bool {
	return p.AvailableQuantity > 0
}

// ProductCSV represents a product as read from a CSV upload
type ProductCSV struct {
	ID         string          `csv:"id"` // Optional: if CSV has ID, else generate
	Name       string          `csv:"name"`
	CategoryID string          `csv:"category"`
	Price      decimal.Decimal `csv:"price"`
	Qty        int             `csv:"qty"`
}

// Category represents an entry of the "categories" collection
type Category struct {
	ID    string `json:"idCategoria"`
	Name  string `json:"nombre"`
	Image string `json:"imagen"`
}
