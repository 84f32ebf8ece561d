package service

import (
	"context"
	"fmt"
	"sync"
)

// keyedLock serializes work per key. Entries are dropped once nobody holds
// or waits for them, so idle carts cost nothing.
type keyedLock struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	sem  chan struct{}
	refs int
}

// acquire blocks until the key is free or ctx is done. The returned func
// releases the key and must be called exactly once.
func (k *keyedLock) acquire(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	if k.entries == nil {
		k.entries = make(map[string]*lockEntry)
	}
	entry, ok := k.entries[key]
	if !ok {
		entry = &lockEntry{sem: make(chan struct{}, 1)}
		k.entries[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	select {
	case entry.sem <- struct{}{}:
		return func() {
			<-entry.sem
			k.forget(key, entry)
		}, nil
	case <-ctx.Done():
		k.forget(key, entry)
		return nil, fmt.Errorf("waiting for cart %s: %w", key, ctx.Err())
	}
}

func (k *keyedLock) forget(key string, entry *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(k.entries, key)
	}
}

func (k *keyedLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}
