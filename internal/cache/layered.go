package cache

import (
	"context"
	"time"
)

// Layered combines the in-process layer with the durable sqlite store.
// Reads check memory first and promote sqlite hits; writes go to both.
type Layered struct {
	memory    Cache
	store     *Store
	memoryTTL time.Duration
}

// NewLayered creates a layered cache over an opened store.
func NewLayered(store *Store, memoryTTL time.Duration) *Layered {
	if memoryTTL <= 0 {
		memoryTTL = 10 * time.Minute
	}
	return &Layered{
		memory:    NewMemoryCache(memoryTTL, 10*time.Minute),
		store:     store,
		memoryTTL: memoryTTL,
	}
}

// Get retrieves the analysis for a root tweet id.
func (l *Layered) Get(ctx context.Context, tweetID string) ([]byte, bool, error) {
	key := Key(tweetID)
	if val, found := l.memory.Get(key); found {
		return val, true, nil
	}

	val, found, err := l.store.Get(ctx, tweetID)
	if err != nil || !found {
		return nil, false, err
	}

	// Promote to the memory layer
	_ = l.memory.Set(key, val, l.memoryTTL)
	return val, true, nil
}

// Put stores the analysis in both layers.
func (l *Layered) Put(ctx context.Context, tweetID, authorHandle, postURL string, payload []byte) error {
	if err := l.store.Put(ctx, tweetID, authorHandle, postURL, payload); err != nil {
		return err
	}
	return l.memory.Set(Key(tweetID), payload, l.memoryTTL)
}

// Close releases the underlying store.
func (l *Layered) Close() error {
	return l.store.Close()
}
