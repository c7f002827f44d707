// Package catalog reads and maintains the "products" and "categories"
// collections.
package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
	"gitlab.connectwisedev.com/pos-service/pkg/validation"
)

const (
	UnknownCategory = "Unknown category"
	UnknownProduct  = "Unknown product"
)

// Catalog reads and writes the product and category collections of a store.
type Catalog struct {
	store  kvstore.Store
	logger *zap.Logger
}

// New returns a Catalog over store. A nil logger disables logging.
func New(store kvstore.Store, logger *zap.Logger) *Catalog {
	return &Catalog{store: store, logger: logging.OrNop(logger)}
}

// Products loads the whole product collection.
func (c *Catalog) Products(ctx context.Context) ([]models.Product, error) {
	products, err := kvstore.LoadCollection[models.Product](ctx, c.store, kvstore.KeyProducts)
	if err != nil {
		return nil, apperr.StoreUnavailable("", err)
	}
	return products, nil
}

// Categories loads the whole category collection.
func (c *Catalog) Categories(ctx context.Context) ([]models.Category, error) {
	categories, err := kvstore.LoadCollection[models.Category](ctx, c.store, kvstore.KeyCategories)
	if err != nil {
		return nil, apperr.StoreUnavailable("", err)
	}
	return categories, nil
}

// Product returns the product with the given id.
func (c *Catalog) Product(ctx context.Context, id string) (models.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return models.Product{}, err
	}
	p, ok := FindProduct(products, id)
	if !ok {
		return models.Product{}, apperr.Newf(apperr.KindNotFound, "Product %s not found", id)
	}
	return p, nil
}

// FindProduct looks a product up by id in an already loaded collection.
func FindProduct(products []models.Product, id string) (models.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// ProductName returns the product name or UnknownProduct.
func ProductName(products []models.Product, id string) string {
	if p, ok := FindProduct(products, id); ok {
		return p.Name
	}
	return UnknownProduct
}

// CategoryName returns "name (id)" or UnknownCategory.
func CategoryName(categories []models.Category, id string) string {
	for _, cat := range categories {
		if cat.ID == id {
			return cat.Name + " (" + cat.ID + ")"
		}
	}
	return UnknownCategory
}

// SearchProducts keeps products whose name contains query (case-insensitive)
// and whose category id equals category. Empty arguments do not filter.
func SearchProducts(products []models.Product, query, category string) []models.Product {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
			continue
		}
		if category != "" && p.CategoryID != category {
			continue
		}
		out = append(out, p)
	}
	return out
}

// nextID returns len+1 as a string, bumped until it is unused.
func nextID(n int, taken func(string) bool) string {
	for i := n + 1; ; i++ {
		id := strconv.Itoa(i)
		if !taken(id) {
			return id
		}
	}
}

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name              string          `json:"nombre"`
	CategoryID        string          `json:"idCategoria"`
	Price             decimal.Decimal `json:"precioVenta"`
	AvailableQuantity int             `json:"cantidadDisponible"`
}

func (in ProductInput) validate() error {
	v := validation.Violations{}
	validation.Required("nombre", in.Name, v)
	validation.Required("idCategoria", in.CategoryID, v)
	validation.NonNegativeDecimal("precioVenta", in.Price, v)
	validation.NonNegativeInt("cantidadDisponible", in.AvailableQuantity, v)
	return v.Err()
}

// AddProduct appends a product and returns it with its allocated id.
func (c *Catalog) AddProduct(ctx context.Context, in ProductInput) (models.Product, error) {
	if err := in.validate(); err != nil {
		return models.Product{}, err
	}
	products, err := c.Products(ctx)
	if err != nil {
		return models.Product{}, err
	}

	p := models.Product{
		ID: nextID(len(products), func(id string) bool {
			_, ok := FindProduct(products, id)
			return ok
		}),
		Name:              in.Name,
		CategoryID:        in.CategoryID,
		Price:             in.Price,
		AvailableQuantity: in.AvailableQuantity,
	}
	if err := c.saveProducts(ctx, append(products, p)); err != nil {
		return models.Product{}, err
	}
	c.logger.Info("product added", zap.String("product_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// UpdateProduct replaces the editable fields of an existing product.
func (c *Catalog) UpdateProduct(ctx context.Context, id string, in ProductInput) (models.Product, error) {
	if err := in.validate(); err != nil {
		return models.Product{}, err
	}
	products, err := c.Products(ctx)
	if err != nil {
		return models.Product{}, err
	}
	for i := range products {
		if products[i].ID != id {
			continue
		}
		products[i].Name = in.Name
		products[i].CategoryID = in.CategoryID
		products[i].Price = in.Price
		products[i].AvailableQuantity = in.AvailableQuantity
		if err := c.saveProducts(ctx, products); err != nil {
			return models.Product{}, err
		}
		c.logger.Info("product updated", zap.String("product_id", id))
		return products[i], nil
	}
	return models.Product{}, apperr.Newf(apperr.KindNotFound, "Product %s not found", id)
}

// DeleteProduct removes a product. Sales that reference it keep the id and
// resolve to UnknownProduct afterwards.
func (c *Catalog) DeleteProduct(ctx context.Context, id string) error {
	products, err := c.Products(ctx)
	if err != nil {
		return err
	}
	kept := products[:0]
	for _, p := range products {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(products) {
		return apperr.Newf(apperr.KindNotFound, "Product %s not found", id)
	}
	if err := c.saveProducts(ctx, kept); err != nil {
		return err
	}
	c.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// UpsertResult summarizes an UpsertProducts call.
type UpsertResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// UpsertProducts merges rows into the catalog keyed by product name: an
// existing name gets its category, price and quantity replaced, a new name
// is appended with the row id, or a fresh UUID when the row has none or its id
// already belongs to another product. The collection is written once.
func (c *Catalog) UpsertProducts(ctx context.Context, rows []models.ProductCSV) (UpsertResult, error) {
	var res UpsertResult
	products, err := c.Products(ctx)
	if err != nil {
		return res, err
	}

	byName := make(map[string]int, len(products))
	taken := make(map[string]bool, len(products))
	for i, p := range products {
		byName[p.Name] = i
		taken[p.ID] = true
	}

	for _, row := range rows {
		if i, ok := byName[row.Name]; ok {
			products[i].CategoryID = row.CategoryID
			products[i].Price = row.Price
			products[i].AvailableQuantity = row.Qty
			res.Updated++
			continue
		}
		id := row.ID
		if taken[id] {
			c.logger.Warn("csv id already in use, assigning a new one",
				zap.String("id", id), zap.String("name", row.Name))
			id = ""
		}
		if id == "" {
			id = uuid.New().String()
		}
		taken[id] = true
		products = append(products, models.Product{
			ID:                id,
			Name:              row.Name,
			CategoryID:        row.CategoryID,
			Price:             row.Price,
			AvailableQuantity: row.Qty,
		})
		byName[row.Name] = len(products) - 1
		res.Inserted++
	}

	if err := c.saveProducts(ctx, products); err != nil {
		return res, err
	}
	c.logger.Info("products upserted", zap.Int("inserted", res.Inserted), zap.Int("updated", res.Updated))
	return res, nil
}

func (c *Catalog) saveProducts(ctx context.Context, products []models.Product) error {
	if err := kvstore.SaveCollection(ctx, c.store, kvstore.KeyProducts, products); err != nil {
		return apperr.StoreUnavailable("", err)
	}
	return nil
}
