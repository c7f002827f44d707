// Package kvstore defines the key-value storage contract the sale core is
// built on, plus helpers to keep JSON collections under a single key.
package kvstore

import "context"

// Collection keys.
const (
	KeyCategories = "categories"
	KeyProducts   = "products"
	KeyClients    = "clients"
	KeySales      = "sales"
)

// Store is the minimal contract: a missing key is reported with found=false
// and a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// Batcher is implemented by stores that can write several keys atomically.
type Batcher interface {
	PutMulti(ctx context.Context, values map[string][]byte) error
}
