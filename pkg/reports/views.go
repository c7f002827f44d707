// Package reports holds the read side: sale filters, client orders and name
// resolution for display. Data is pulled on demand with Refresh.
package reports

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/apperr"
	"gitlab.connectwisedev.com/pos-service/pkg/catalog"
	"gitlab.connectwisedev.com/pos-service/pkg/clients"
	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
	"gitlab.connectwisedev.com/pos-service/pkg/logging"
)

// Filter selects sales. Empty fields match everything.
type Filter struct {
	// Date is matched as a substring of the stored ISO timestamp, e.g.
	// "2024-05" for a month.
	Date string
	// Client is matched as a substring of the client id or of the client's
	// national id.
	Client        string
	OperationType models.OperationType
}

type Views struct {
	store  kvstore.Store
	logger *zap.Logger

	clients  []models.Client
	products []models.Product
}

func NewViews(store kvstore.Store, logger *zap.Logger) *Views {
	return &Views{store: store, logger: logging.OrNop(logger)}
}

// Refresh reloads the clients and products used for name resolution.
func (v *Views) Refresh(ctx context.Context) error {
	list, err := kvstore.LoadCollection[models.Client](ctx, v.store, kvstore.KeyClients)
	if err != nil {
		return apperr.StoreUnavailable("", err)
	}
	products, err := kvstore.LoadCollection[models.Product](ctx, v.store, kvstore.KeyProducts)
	if err != nil {
		return apperr.StoreUnavailable("", err)
	}
	v.clients, v.products = list, products
	v.logger.Debug("views refreshed", zap.Int("clients", len(list)), zap.Int("products", len(products)))
	return nil
}

// Sales loads the whole sales collection.
func (v *Views) Sales(ctx context.Context) ([]models.Sale, error) {
	sales, err := kvstore.LoadCollection[models.Sale](ctx, v.store, kvstore.KeySales)
	if err != nil {
		return nil, apperr.StoreUnavailable("", err)
	}
	return sales, nil
}

// Sale returns one sale by id.
func (v *Views) Sale(ctx context.Context, id string) (models.Sale, error) {
	sales, err := v.Sales(ctx)
	if err != nil {
		return models.Sale{}, err
	}
	for _, s := range sales {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Sale{}, apperr.Newf(apperr.KindNotFound, "Sale %s not found", id)
}

// FilterSales keeps the sales matching f, in stored order.
func (v *Views) FilterSales(sales []models.Sale, f Filter) []models.Sale {
	out := make([]models.Sale, 0, len(sales))
	for _, s := range sales {
		if f.Date != "" && !strings.Contains(s.Date, f.Date) {
			continue
		}
		if f.Client != "" && !v.clientMatches(s.ClientID, f.Client) {
			continue
		}
		if f.OperationType != "" && s.OperationType != f.OperationType {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *Views) clientMatches(clientID, query string) bool {
	if strings.Contains(clientID, query) {
		return true
	}
	c, ok := clients.FindByID(v.clients, clientID)
	return ok && strings.Contains(c.NationalID, query)
}

// FindSalesByClient returns every sale of clientID.
func (v *Views) FindSalesByClient(ctx context.Context, clientID string) ([]models.Sale, error) {
	sales, err := v.Sales(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Sale, 0)
	for _, s := range sales {
		if s.ClientID == clientID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (v *Views) ResolveClientName(id string) string {
	return clients.DisplayName(v.clients, id)
}

func (v *Views) ResolveProductName(id string) string {
	return catalog.ProductName(v.products, id)
}

// SearchClients backs the client picker of the sales query screen.
func (v *Views) SearchClients(text string) []models.Client {
	return clients.Search(v.clients, text)
}

// DetailLine is a sale line joined with its product name.
type DetailLine struct {
	ProductID   string          `json:"idProducto"`
	ProductName string          `json:"producto"`
	Quantity    int             `json:"cantidad"`
	Price       decimal.Decimal `json:"precio"`
	Extension   decimal.Decimal `json:"subtotal"`
}

// SaleDetailView is a sale joined with client and product names.
type SaleDetailView struct {
	SaleID        string               `json:"idVenta"`
	Date          string               `json:"fecha"`
	ClientID      string               `json:"idCliente"`
	ClientName    string               `json:"cliente"`
	OperationType models.OperationType `json:"tipoOperacion"`
	Address       string               `json:"direccion,omitempty"`
	Location      *models.Location     `json:"location,omitempty"`
	Total         decimal.Decimal      `json:"total"`
	Lines         []DetailLine         `json:"lineas"`
}

// Detail joins sale with the names loaded by the last Refresh. The date is
// left raw; callers format it for their locale.
func (v *Views) Detail(sale models.Sale) SaleDetailView {
	view := SaleDetailView{
		SaleID:        sale.ID,
		Date:          sale.Date,
		ClientID:      sale.ClientID,
		ClientName:    v.ResolveClientName(sale.ClientID),
		OperationType: sale.OperationType,
		Total:         sale.Total,
		Lines:         make([]DetailLine, len(sale.Details)),
	}
	if sale.Delivery != nil {
		view.Address = sale.Delivery.Address
		view.Location = sale.Delivery.Location
	}
	for i, d := range sale.Details {
		view.Lines[i] = DetailLine{
			ProductID:   d.ProductID,
			ProductName: v.ResolveProductName(d.ProductID),
			Quantity:    d.Quantity,
			Price:       d.Price,
			Extension:   d.Extension(),
		}
	}
	return view
}
