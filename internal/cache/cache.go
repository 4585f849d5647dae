// Package cache persists finished analyses. A fast in-process layer sits
// in front of a durable sqlite store keyed by root tweet id.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for the in-process layer
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a root tweet id
func Key(tweetID string) string {
	hash := sha256.Sum256([]byte(tweetID))
	return "threadscope:v1:" + hex.EncodeToString(hash[:])
}
