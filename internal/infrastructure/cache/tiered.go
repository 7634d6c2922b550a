package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/careloop/retrieval-engine/internal/core/domain"
	"github.com/careloop/retrieval-engine/internal/core/ports"
)

// Metrics is the slice of retrieval metrics the cache reports into.
type Metrics interface {
	RecordCacheHit(tier string)
	RecordCacheMiss()
	RecordSuppressedWrite()
}

// Tiered reads cache tiers in increasing latency order and promotes
// hits upward. Writes populate every tier but are gated by the
// sensitive-content detector: a positive detection suppresses the
// write to all tiers. The gate is a safety property, not an
// optimization: flagged responses are computed and returned, never
// stored.
type Tiered struct {
	tiers      []ports.CacheTier
	detector   ports.SensitiveContentDetector
	promoteTTL time.Duration
	logger     *slog.Logger
	metrics    Metrics
}

func NewTiered(
	detector ports.SensitiveContentDetector,
	promoteTTL time.Duration,
	logger *slog.Logger,
	metrics Metrics,
	tiers ...ports.CacheTier,
) *Tiered {
	if logger == nil {
		logger = slog.Default()
	}
	if promoteTTL <= 0 {
		promoteTTL = 15 * time.Minute
	}
	return &Tiered{
		tiers:      tiers,
		detector:   detector,
		promoteTTL: promoteTTL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Get returns the first hit across tiers. Tier errors are treated as
// misses; an unreachable tier never fails the request. A hit below
// the fastest tier is promoted upward best-effort, so a dropped
// promotion is not an error.
func (t *Tiered) Get(ctx context.Context, key string) (*domain.CacheEntry, bool) {
	for i, tier := range t.tiers {
		entry, err := tier.Get(ctx, key)
		if err != nil {
			t.logger.Debug("cache_tier_get_failed", "tier", tier.Name(), "error", err)
			continue
		}
		if entry == nil {
			continue
		}

		entry.Tier = tier.Name()
		for _, upper := range t.tiers[:i] {
			if err := upper.Set(ctx, key, *entry, t.promoteTTL); err != nil {
				t.logger.Debug("cache_tier_promote_failed", "tier", upper.Name(), "error", err)
			}
		}
		if t.metrics != nil {
			t.metrics.RecordCacheHit(tier.Name())
		}
		return entry, true
	}

	if t.metrics != nil {
		t.metrics.RecordCacheMiss()
	}
	return nil, false
}

// Put stores an entry in every tier unless any candidate text is
// flagged by the sensitive-content detector.
func (t *Tiered) Put(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration) {
	if t.containsSensitive(entry) {
		if t.metrics != nil {
			t.metrics.RecordSuppressedWrite()
		}
		t.logger.Info("cache_write_suppressed", "key", key)
		return
	}
	if ttl <= 0 {
		ttl = t.promoteTTL
	}

	for _, tier := range t.tiers {
		if err := tier.Set(ctx, key, entry, ttl); err != nil {
			t.logger.Warn("cache_tier_set_failed", "tier", tier.Name(), "error", err)
		}
	}
}

func (t *Tiered) containsSensitive(entry domain.CacheEntry) bool {
	if t.detector == nil {
		return false
	}
	for _, result := range entry.Results {
		if t.detector.ContainsSensitive(result.Candidate.Title) ||
			t.detector.ContainsSensitive(result.Candidate.Text) {
			return true
		}
	}
	return false
}
