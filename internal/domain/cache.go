package domain

import (
	"encoding/json"
	"time"
)

// CacheSpace separates the two cache keyspaces
type CacheSpace string

const (
	// CacheSpaceSearch is keyed by "<locale>:<normalized query>"
	CacheSpaceSearch CacheSpace = "search"
	// CacheSpaceProduct is keyed by barcode
	CacheSpaceProduct CacheSpace = "product"
)

// CacheEntry is a cached payload with an explicit expiry
type CacheEntry struct {
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// ValidAt reports whether the entry may be served at now. Expired entries are inert.
func (e CacheEntry) ValidAt(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}
