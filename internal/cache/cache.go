package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"sync"
	"time"
)

// Cache is a TTL keyed in-memory cache for extraction responses. The payload
// and created-at maps are only touched under one mutex, so a reader never
// observes a payload without its matching timestamp. Expired entries are
// purged lazily by the next Get for their key.
type Cache struct {
	ttl time.Duration

	mu        sync.Mutex
	payloads  map[string]any
	createdAt map[string]time.Time

	now func() time.Time
}

// New creates a cache whose entries live for ttl.
func New(ttl time.Duration) *Cache {
	return &Cache{
		ttl:       ttl,
		payloads:  make(map[string]any),
		createdAt: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Get returns the payload stored under key, or false if the key is missing
// or its entry has expired. A present-but-expired entry is removed as a side
// effect.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, ok := c.payloads[key]
	if !ok {
		return nil, false
	}

	if c.now().Sub(c.createdAt[key]) > c.ttl {
		delete(c.payloads, key)
		delete(c.createdAt, key)

		return nil, false
	}

	return payload, true
}

// Set stores payload under key, resetting its TTL.
func (c *Cache) Set(key string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payloads[key] = payload
	c.createdAt[key] = c.now()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payloads = make(map[string]any)
	c.createdAt = make(map[string]time.Time)
}

// Size returns the number of stored entries, expired ones included until
// their next lookup purges them.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.payloads)
}

// Key derives the deterministic fingerprint for a cached response. The
// variant discriminator separates logically different queries over the same
// URL, e.g. a metadata lookup from a formats listing.
func Key(url, cookies, variant string) string {
	h := sha1.New()
	io.WriteString(h, url)

	if cookies != "" {
		io.WriteString(h, cookies)
	}

	key := "cache:" + hex.EncodeToString(h.Sum(nil))
	if variant != "" {
		key += ":" + variant
	}

	return key
}
