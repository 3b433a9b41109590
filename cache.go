package folio

import (
	"context"
	"sync"
	"time"
)

// DocumentCache is an in-memory TTL cache in front of a DocumentStore,
// serving the public read path without a hosting-system round trip per
// request. Admin writes invalidate it so visitors see edits promptly.
type DocumentCache struct {
	mu      sync.RWMutex
	doc     Document
	sha     string
	fetched time.Time
	ttl     time.Duration
	store   DocumentStore
}

// NewDocumentCache creates a cache backed by the given store.
func NewDocumentCache(store DocumentStore, ttl time.Duration) *DocumentCache {
	return &DocumentCache{store: store, ttl: ttl}
}

func (c *DocumentCache) valid() bool {
	return c.sha != "" && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh fetch.
func (c *DocumentCache) Invalidate() {
	c.mu.Lock()
	c.sha = ""
	c.mu.Unlock()
}

// Get returns the current document, fetching through the store when the
// cached copy is missing or stale. It tries a read lock first and only
// takes the write lock when a reload is needed.
func (c *DocumentCache) Get(ctx context.Context) (Document, error) {
	c.mu.RLock()
	if c.valid() {
		doc := c.doc
		c.mu.RUnlock()
		return doc, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.doc, nil
	}
	doc, sha, err := c.store.Fetch(ctx)
	if err != nil {
		return Document{}, err
	}
	c.doc = doc
	c.sha = sha
	c.fetched = time.Now()
	return doc, nil
}
