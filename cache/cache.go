package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/use-agent/pagediff/models"
)

// entry holds a cached comparison with its creation timestamp.
type entry struct {
	response  *models.CompareResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for comparison responses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
}

// New creates a new Cache with the given maximum number of entries.
// A background goroutine runs every 5 minutes to evict expired entries
// (older than 1 hour).
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
	}

	go c.cleanupLoop()
	return c
}

// Key generates a cache key from everything that affects a comparison's
// outcome: both URLs, the viewport set, and the diff tunables. Two
// requests hash to the same key only when they would produce the same
// result.
func Key(req *models.CompareRequest, threshold float64, maxShift int) string {
	h := sha256.New()
	h.Write([]byte(req.BaselineURL))
	h.Write([]byte("|"))
	h.Write([]byte(req.CandidateURL))
	for _, vp := range req.Viewports {
		fmt.Fprintf(h, "|%s:%dx%d", vp.Name, vp.Width, vp.Height)
	}
	fmt.Fprintf(h, "|t=%g|s=%d|html=%t", threshold, maxShift, req.IncludeHTMLDiff)
	if req.Stealth {
		h.Write([]byte("|stealth"))
	}
	if req.BlockAds != nil && !*req.BlockAds {
		h.Write([]byte("|noblock"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached comparison if it exists and is younger than
// maxAge. maxAge is in milliseconds. If maxAge <= 0, no cache lookup is
// performed. Returns the response and whether it was a cache hit.
func (c *Cache) Get(key string, maxAgeMs int) (*models.CompareResponse, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if time.Since(e.createdAt) > maxAge {
		return nil, false
	}

	return e.response, true
}

// Set stores a comparison in the cache. If the cache is at capacity,
// a random entry is evicted to make room.
func (c *Cache) Set(key string, resp *models.CompareResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		response:  resp,
		createdAt: time.Now(),
	}
}

// cleanupLoop evicts entries older than 1 hour every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-1 * time.Hour)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
