// Package cache stores catalog snapshots in memory and on disk.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const keyPrefix = "adhikaar:v1:"

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// CacheKey derives a namespaced key from a catalog source identifier
// (a file path, database URL or REST endpoint) and optional qualifiers
func CacheKey(source string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(source))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// fileName maps a key to a portable file name
func fileName(key string) string {
	return strings.ReplaceAll(key, ":", "_") + ".cache"
}
