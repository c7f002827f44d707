package sales

import (
	"strings"
	"sync"

	"gitlab.connectwisedev.com/pos-service/models"
	"gitlab.connectwisedev.com/pos-service/pkg/cart"
)

// ClientForm is the client data typed at the counter.
type ClientForm struct {
	NationalID string `json:"cedula"`
	FirstName  string `json:"nombre"`
	LastName   string `json:"apellido"`
}

func (f ClientForm) complete() bool {
	return strings.TrimSpace(f.NationalID) != "" &&
		strings.TrimSpace(f.FirstName) != "" &&
		strings.TrimSpace(f.LastName) != ""
}

// Session is the state of one order in progress. It is owned by a single
// caller and handed to Finalizer.Finalize explicitly.
type Session struct {
	Cart   *cart.Cart
	Client ClientForm
	// OperationType defaults to pickup; Delivery is only read for delivery
	// orders.
	OperationType models.OperationType
	Delivery      models.Delivery

	finalizing sync.Mutex
}

func NewSession() *Session {
	return &Session{Cart: cart.New(), OperationType: models.OperationPickup}
}

// SetPickup switches the order to pickup and forgets delivery data.
func (s *Session) SetPickup() {
	s.OperationType = models.OperationPickup
	s.Delivery = models.Delivery{}
}

// SetDelivery switches the order to delivery.
func (s *Session) SetDelivery(address string, location *models.Location) {
	s.OperationType = models.OperationDelivery
	s.Delivery = models.Delivery{Address: address, Location: location}
}

// Reset clears the cart and the form and goes back to pickup.
func (s *Session) Reset() {
	if s.Cart == nil {
		s.Cart = cart.New()
	}
	s.Cart.Clear()
	s.Client = ClientForm{}
	s.SetPickup()
}

func (s *Session) operationType() models.OperationType {
	if s.OperationType == "" {
		return models.OperationPickup
	}
	return s.OperationType
}
