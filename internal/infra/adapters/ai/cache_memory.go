package ai

import (
	"sync"

	"voicecoder/internal/domain/ports/adapter"
)

// CacheKey identifies one adapter instance. The credential never appears in
// the key, only its fingerprint.
type CacheKey struct {
	ProviderID  string
	Fingerprint string
}

// ProviderCache stores constructed adapters. Implementations must be safe for
// concurrent use.
type ProviderCache interface {
	Get(key CacheKey) (adapter.LLMProvider, bool)
	Put(key CacheKey, p adapter.LLMProvider)
	Delete(key CacheKey)
	Clear()
	Len() int
}

// MemoryProviderCache is a process-local ProviderCache. A nil receiver acts as
// an always-empty cache.
type MemoryProviderCache struct {
	mu    sync.RWMutex
	items map[CacheKey]adapter.LLMProvider
}

func NewMemoryProviderCache() *MemoryProviderCache {
	return &MemoryProviderCache{items: make(map[CacheKey]adapter.LLMProvider)}
}

func (c *MemoryProviderCache) Get(key CacheKey) (adapter.LLMProvider, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.items[key]
	return p, ok
}

func (c *MemoryProviderCache) Put(key CacheKey, p adapter.LLMProvider) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[CacheKey]adapter.LLMProvider)
	}
	c.items[key] = p
}

func (c *MemoryProviderCache) Delete(key CacheKey) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *MemoryProviderCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[CacheKey]adapter.LLMProvider)
}

func (c *MemoryProviderCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
