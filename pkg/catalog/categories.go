package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/validation"
)

// CategoryInput carries the editable category fields.
type CategoryInput struct {
	Name  string `json:"nombre"`
	Image string `json:"imagen"`
}

func (in CategoryInput) validate() error {
	v := validation.Violations{}
	validation.Required("nombre", in.Name, v)
	validation.Required("imagen", in.Image, v)
	return v.Err()
}

// SearchCategories keeps categories whose name contains query, ignoring case.
// An empty query keeps everything.
func SearchCategories(categories []models.Category, query string) []models.Category {
	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Category, 0, len(categories))
	for _, cat := range categories {
		if query == "" || strings.Contains(strings.ToLower(cat.Name), query) {
			out = append(out, cat)
		}
	}
	return out
}

func findCategory(categories []models.Category, id string) int {
	for i, cat := range categories {
		if cat.ID == id {
			return i
		}
	}
	return -1
}

// AddCategory appends a category and returns it with its allocated id.
func (c *Catalog) AddCategory(ctx context.Context, in CategoryInput) (models.Category, error) {
	if err := in.validate(); err != nil {
		return models.Category{}, err
	}
	categories, err := c.Categories(ctx)
	if err != nil {
		return models.Category{}, err
	}

	cat := models.Category{
		ID: nextID(len(categories), func(id string) bool {
			return findCategory(categories, id) >= 0
		}),
		Name:  in.Name,
		Image: in.Image,
	}
	if err := c.saveCategories(ctx, append(categories, cat)); err != nil {
		return models.Category{}, err
	}
	c.logger.Info("category added", zap.String("category_id", cat.ID), zap.String("name", cat.Name))
	return cat, nil
}

// UpdateCategory renames a category or changes its image; the id is kept.
func (c *Catalog) UpdateCategory(ctx context.Context, id string, in CategoryInput) (models.Category, error) {
	if err := in.validate(); err != nil {
		return models.Category{}, err
	}
	categories, err := c.Categories(ctx)
	if err != nil {
		return models.Category{}, err
	}
	i := findCategory(categories, id)
	if i < 0 {
		return models.Category{}, apperr.Newf(apperr.KindNotFound, "Category %s not found", id)
	}
	categories[i].Name = in.Name
	categories[i].Image = in.Image
	if err := c.saveCategories(ctx, categories); err != nil {
		return models.Category{}, err
	}
	c.logger.Info("category updated", zap.String("category_id", id))
	return categories[i], nil
}

// DeleteCategory removes a category. Products keep their categoryId.
func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	categories, err := c.Categories(ctx)
	if err != nil {
		return err
	}
	i := findCategory(categories, id)
	if i < 0 {
		return apperr.Newf(apperr.KindNotFound, "Category %s not found", id)
	}
	categories = append(categories[:i], categories[i+1:]...)
	if err := c.saveCategories(ctx, categories); err != nil {
		return err
	}
	c.logger.Info("category deleted", zap.String("category_id", id))
	return nil
}

func (c *Catalog) saveCategories(ctx context.Context, categories []models.Category) error {
	if err := kvstore.SaveCollection(ctx, c.store, kvstore.KeyCategories, categories); err != nil {
		return apperr.StoreUnavailable("", err)
	}
	return nil
}
