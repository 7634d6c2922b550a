package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// MemoryTier is the in-process tier: fastest, smallest, gone with the
// process. Bounded size with LRU eviction; entry lifetime is fixed at
// construction, so the per-call TTL only caps it.
type MemoryTier struct {
	lru *expirable.LRU[string, domain.CacheEntry]
}

func NewMemoryTier(size int, ttl time.Duration) *MemoryTier {
	if size <= 0 {
		size = 512
	}
	return &MemoryTier{
		lru: expirable.NewLRU[string, domain.CacheEntry](size, nil, ttl),
	}
}

func (t *MemoryTier) Name() string { return "memory" }

func (t *MemoryTier) Get(_ context.Context, key string) (*domain.CacheEntry, error) {
	entry, ok := t.lru.Get(key)
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (t *MemoryTier) Set(_ context.Context, key string, entry domain.CacheEntry, _ time.Duration) error {
	t.lru.Add(key, entry)
	return nil
}
