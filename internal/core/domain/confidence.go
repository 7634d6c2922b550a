package domain

// ConfidenceScore grades the quality of a lexical result set. It is
// computed once per request, consumed by the strategy policy and
// discarded after logging. Overall stays in [0,1] and is monotonic
// non-decreasing in each component with the others held fixed.
type ConfidenceScore struct {
	Overall            float64 `json:"overall"`
	TextMatch          float64 `json:"text_match"`
	DomainTermCoverage float64 `json:"domain_term_coverage"`
	ContextRelevance   float64 `json:"context_relevance"`
	ResultCount        int     `json:"result_count"`
	TopScore           float64 `json:"top_score"`
}

// SearchStrategy is the routing decision derived from a
// ConfidenceScore. Recomputed per request; never persisted.
type SearchStrategy string

const (
	// StrategyLexicalOnly serves the lexical hits directly; the
	// embedding service must not be called on this path.
	StrategyLexicalOnly SearchStrategy = "lexical_only"
	// StrategyHybrid fuses lexical and semantic hits.
	StrategyHybrid SearchStrategy = "hybrid"
	// StrategySemanticOnly discards the lexical hits after they have
	// informed the routing decision.
	StrategySemanticOnly SearchStrategy = "semantic_only"
	// StrategyCached marks a response served from the response cache.
	StrategyCached SearchStrategy = "cached"
)
