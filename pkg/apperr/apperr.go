package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the failures the sale core reports to callers.
type Kind int

const (
	KindIncompleteClientData Kind = iota + 1
	KindIncompleteDeliveryData
	KindInsufficientStock
	KindOutOfStock
	KindStoreUnavailable
	KindInvalidInput
	KindNotFound
)

// Error message constants.
const (
	ErrMsgIncompleteClientData   = "Client data is incomplete or the cart is empty"
	ErrMsgIncompleteDeliveryData = "Delivery orders need a delivery address"
	ErrMsgOutOfStock             = "Product is out of stock"
	ErrMsgInsufficientStock      = "Not enough stock"
	ErrMsgStoreUnavailable       = "Storage is unavailable"
)

func (k Kind) String() string {
	switch k {
	case KindIncompleteClientData:
		return "INCOMPLETE_CLIENT_DATA"
	case KindIncompleteDeliveryData:
		return "INCOMPLETE_DELIVERY_DATA"
	case KindInsufficientStock:
		return "INSUFFICIENT_STOCK"
	case KindOutOfStock:
		return "OUT_OF_STOCK"
	case KindStoreUnavailable:
		return "STORE_UNAVAILABLE"
	case KindInvalidInput:
		return "INVALID_INPUT"
	case KindNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// Recoverable reports whether the failure is a validation outcome the user
// can fix, as opposed to an infrastructure failure.
func (k Kind) Recoverable() bool {
	return k != KindStoreUnavailable
}

// Shortage describes one cart line that exceeds current stock.
type Shortage struct {
	ProductID   string `json:"idProducto"`
	ProductName string `json:"nombre"`
	Requested   int    `json:"solicitado"`
	Available   int    `json:"disponible"`
}

type Error struct {
	Kind      Kind
	Message   string
	Shortages []Shortage
	// Stage is the commit step a StoreUnavailable failure stopped at.
	Stage string
	Cause error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Stage != "" {
		fmt.Fprintf(&b, " (stage %s)", e.Stage)
	}
	for i, s := range e.Shortages {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s requested %d available %d", s.ProductName, s.Requested, s.Available)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func IncompleteClientData() *Error {
	return New(KindIncompleteClientData, ErrMsgIncompleteClientData)
}

func IncompleteDeliveryData() *Error {
	return New(KindIncompleteDeliveryData, ErrMsgIncompleteDeliveryData)
}

func OutOfStock(productName string) *Error {
	return Newf(KindOutOfStock, "%s: %s", ErrMsgOutOfStock, productName)
}

func InsufficientStock(shortages ...Shortage) *Error {
	return &Error{Kind: KindInsufficientStock, Message: ErrMsgInsufficientStock, Shortages: shortages}
}

// StoreUnavailable wraps a storage failure. stage may be empty outside the
// finalize commit sequence.
func StoreUnavailable(stage string, cause error) *Error {
	return &Error{Kind: KindStoreUnavailable, Message: ErrMsgStoreUnavailable, Stage: stage, Cause: cause}
}

// WithStage tags a storage failure with the commit stage it happened in.
// Errors of other kinds are returned unchanged.
func WithStage(err error, stage string) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Kind != KindStoreUnavailable {
			return err
		}
		tagged := *e
		tagged.Stage = stage
		return &tagged
	}
	return StoreUnavailable(stage, err)
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
