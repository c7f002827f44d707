// Package kvstoretest provides Store doubles for tests.
package kvstoretest

import (
	"context"
	"errors"
	"sync"

	"gitlab.connectwisedev.com/pos-service/pkg/kvstore"
)

// ErrInjected is returned by Faulty for every injected failure.
var ErrInjected = errors.New("injected store failure")

// Faulty wraps a Store and fails reads or writes of selected keys. It
// deliberately does not implement kvstore.Batcher so callers take the
// sequential write path.
type Faulty struct {
	Inner kvstore.Store

	mu        sync.Mutex
	failGet   map[string]bool
	failPut   map[string]bool
	putCounts map[string]int
}

func NewFaulty(inner kvstore.Store) *Faulty {
	return &Faulty{
		Inner:     inner,
		failGet:   make(map[string]bool),
		failPut:   make(map[string]bool),
		putCounts: make(map[string]int),
	}
}

// FailGet makes every Get of key fail.
func (f *Faulty) FailGet(key string) *Faulty {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[key] = true
	return f
}

// FailPut makes every Put of key fail.
func (f *Faulty) FailPut(key string) *Faulty {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut[key] = true
	return f
}

// Puts returns how many successful writes key received.
func (f *Faulty) Puts(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCounts[key]
}

func (f *Faulty) Get(ctx context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	fail := f.failGet[key]
	f.mu.Unlock()
	if fail {
		return nil, false, ErrInjected
	}
	return f.Inner.Get(ctx, key)
}

func (f *Faulty) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	fail := f.failPut[key]
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	if err := f.Inner.Put(ctx, key, value); err != nil {
		return err
	}
	f.mu.Lock()
	f.putCounts[key]++
	f.mu.Unlock()
	return nil
}
