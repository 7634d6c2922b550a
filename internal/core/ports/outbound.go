package ports

import (
	"context"
	"time"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// Embedder builds a dense vector for query text. Implementations must
// be idempotent and side-effect-free.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// LexicalIndex answers keyword/full-text queries against both the
// document and FAQ collections with engine-native relevance scores.
type LexicalIndex interface {
	Search(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
}

// VectorIndex answers k-nearest-neighbor queries over stored
// embeddings with the same metadata filters as the lexical index.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, limit int, filter domain.SearchFilter) ([]domain.Candidate, error)
}

// RelevanceModel scores (query, passage) pairs independently. Calls
// are batched; implementations hold no state between pairs.
type RelevanceModel interface {
	ScorePairs(ctx context.Context, query string, passages []string) ([]float64, error)
}

// SensitiveContentDetector is consulted before any cache write. A
// positive detection suppresses the write entirely.
type SensitiveContentDetector interface {
	ContainsSensitive(text string) bool
}

// CrisisHook lets the safety collaborator force a fresh, uncached
// retrieval path for high-risk queries.
type CrisisHook interface {
	BypassCache(query domain.Query) bool
}

// CacheTier is one layer of the response cache, distinguished by
// latency and durability. Tier errors must never fail a request.
type CacheTier interface {
	Name() string
	Get(ctx context.Context, key string) (*domain.CacheEntry, error)
	Set(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration) error
}

// ResponseCache memoizes full retrieval responses under a fingerprint
// of (normalized query text, filters).
type ResponseCache interface {
	Get(ctx context.Context, key string) (*domain.CacheEntry, bool)
	Put(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration)
}
