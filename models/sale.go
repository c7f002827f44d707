package models

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// OperationType is the fulfillment mode of a sale.
type OperationType string

const (
	OperationPickup   OperationType = "pickup"
	OperationDelivery OperationType = "delivery"
)

// Valid reports whether t is one of the known fulfillment modes.
func (t OperationType) Valid() bool {
	return t == OperationPickup || t == OperationDelivery
}

// Location is a point picked on the delivery map.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Delivery holds the data a delivery order carries. Location is optional,
// Address is required.
type Delivery struct {
	Location *Location
	Address  string
}

// SaleDetail is a line of a sale.
type SaleDetail struct {
	SaleID    string
	DetailID  string
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

// Extension returns quantity x unit price.
func (d SaleDetail) Extension() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Sale is an entry of the "sales" collection. Once written it is never
// modified.
//
// Delivery is nil for pickup orders. On the wire the delivery data is
// repeated on every detail line as location/locationText.
type Sale struct {
	ID            string
	Date          string // ISO 8601, kept raw so unparseable values survive a round trip
	ClientID      string
	Total         decimal.Decimal
	OperationType OperationType
	Delivery      *Delivery
	Details       []SaleDetail
}

type saleDetailJSON struct {
	SaleID       string          `json:"idVenta,omitempty"`
	DetailID     string          `json:"idDetalleVenta,omitempty"`
	ProductID    string          `json:"idProducto"`
	Quantity     int             `json:"cantidad"`
	Price        decimal.Decimal `json:"precio"`
	Location     *Location       `json:"location,omitempty"`
	LocationText string          `json:"locationText,omitempty"`
}

type saleJSON struct {
	ID            string           `json:"idVenta"`
	Date          string           `json:"fecha"`
	ClientID      string           `json:"idCliente"`
	Total         decimal.Decimal  `json:"total"`
	OperationType OperationType    `json:"tipoOperacion,omitempty"`
	Details       []saleDetailJSON `json:"details"`
}

// MarshalJSON writes the sale in the stored collection format.
func (s Sale) MarshalJSON() ([]byte, error) {
	out := saleJSON{
		ID:            s.ID,
		Date:          s.Date,
		ClientID:      s.ClientID,
		Total:         s.Total,
		OperationType: s.OperationType,
		Details:       make([]saleDetailJSON, len(s.Details)),
	}
	for i, d := range s.Details {
		line := saleDetailJSON{
			SaleID:    d.SaleID,
			DetailID:  d.DetailID,
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			Price:     d.Price,
		}
		if s.Delivery != nil {
			line.Location = s.Delivery.Location
			line.LocationText = s.Delivery.Address
		}
		out.Details[i] = line
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the stored collection format. Sales written before
// operation types existed load as pickup.
func (s *Sale) UnmarshalJSON(data []byte) error {
	var in saleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	sale := Sale{
		ID:            in.ID,
		Date:          in.Date,
		ClientID:      in.ClientID,
		Total:         in.Total,
		OperationType: in.OperationType,
		Details:       make([]SaleDetail, len(in.Details)),
	}
	if sale.OperationType == "" {
		sale.OperationType = OperationPickup
	}
	if !sale.OperationType.Valid() {
		return fmt.Errorf("sale %s: unknown tipoOperacion %q", in.ID, in.OperationType)
	}

	for i, d := range in.Details {
		sale.Details[i] = SaleDetail{
			SaleID:    d.SaleID,
			DetailID:  d.DetailID,
			ProductID: d.ProductID,
			Quantity:  d.Quantity,
			Price:     d.Price,
		}
		if sale.Delivery == nil && (d.Location != nil || d.LocationText != "") {
			sale.Delivery = &Delivery{Location: d.Location, Address: d.LocationText}
		}
	}
	if sale.OperationType == OperationPickup {
		sale.Delivery = nil
	}

	*s = sale
	return nil
}
