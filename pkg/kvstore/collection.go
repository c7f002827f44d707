package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// LoadCollection reads the JSON array stored under key. An absent key is an
// empty collection.
func LoadCollection[T any](ctx context.Context, s Store, key string) ([]T, error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", key, err)
	}
	if !found || len(raw) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %q: %w", key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// EncodeCollection marshals items as a JSON array, never as null.
func EncodeCollection[T any](items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	return json.Marshal(items)
}

// SaveCollection replaces the whole collection stored under key.
func SaveCollection[T any](ctx context.Context, s Store, key string, items []T) error {
	raw, err := EncodeCollection(items)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	if err := s.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}
