package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/careloop/retrieval-engine/internal/core/domain"
	"github.com/careloop/retrieval-engine/internal/core/ports"
)

// StageBudgets bounds each stage of the retrieval path. Exceeding a
// budget is a reported, non-fatal degradation; the request still
// returns the best already-computed result set.
type StageBudgets struct {
	Lexical   time.Duration
	Embedding time.Duration
	Semantic  time.Duration
	Rerank    time.Duration
}

func DefaultStageBudgets() StageBudgets {
	return StageBudgets{
		Lexical:   100 * time.Millisecond,
		Embedding: 2 * time.Second,
		Semantic:  800 * time.Millisecond,
		Rerank:    1500 * time.Millisecond,
	}
}

// RouterConfig drives the cascading search orchestrator.
type RouterConfig struct {
	TopK           int
	CandidateLimit int
	CacheTTL       time.Duration
	Budgets        StageBudgets
	Routing        RoutingConfig
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		TopK:           5,
		CandidateLimit: 30,
		CacheTTL:       15 * time.Minute,
		Budgets:        DefaultStageBudgets(),
		Routing:        DefaultRoutingConfig(),
	}
}

func (c RouterConfig) normalize() RouterConfig {
	out := c
	def := DefaultRouterConfig()
	if out.TopK <= 0 {
		out.TopK = def.TopK
	}
	if out.CandidateLimit < out.TopK {
		out.CandidateLimit = def.CandidateLimit
	}
	if out.CacheTTL <= 0 {
		out.CacheTTL = def.CacheTTL
	}
	if out.Budgets == (StageBudgets{}) {
		out.Budgets = def.Budgets
	}
	return out
}

// RetrieveUseCase routes each query through the cheapest search that
// confidence allows: lexical first, escalating to hybrid or pure
// semantic search only when the lexical result set scores poorly.
type RetrieveUseCase struct {
	lexical   ports.LexicalIndex
	vector    ports.VectorIndex
	embedder  ports.Embedder
	reranker  *Reranker
	evaluator *ConfidenceEvaluator
	cache     ports.ResponseCache
	crisis    ports.CrisisHook
	cfg       RouterConfig
	logger    *slog.Logger
}

func NewRetrieveUseCase(
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	embedder ports.Embedder,
	reranker *Reranker,
	evaluator *ConfidenceEvaluator,
	cache ports.ResponseCache,
	crisis ports.CrisisHook,
	cfg RouterConfig,
	logger *slog.Logger,
) *RetrieveUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrieveUseCase{
		lexical:   lexical,
		vector:    vector,
		embedder:  embedder,
		reranker:  reranker,
		evaluator: evaluator,
		cache:     cache,
		crisis:    crisis,
		cfg:       cfg.normalize(),
		logger:    logger,
	}
}

var errEmptyQueryText = errors.New("query text is empty")

// Retrieve executes the full cascade: cache, lexical search,
// confidence evaluation, strategy branch, re-rank, cache store.
// No collaborator failure propagates as a request failure; the worst
// outcome is a degraded result set with the degradation flagged.
func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query domain.Query, topK int) (*domain.RetrievalResult, error) {
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidQuery, "retrieve", errEmptyQueryText)
	}
	if topK <= 0 {
		topK = uc.cfg.TopK
	}

	start := time.Now()
	key := Fingerprint(query)
	bypassCache := uc.crisis != nil && uc.crisis.BypassCache(query)

	if uc.cache != nil && !bypassCache {
		if entry, ok := uc.cache.Get(ctx, key); ok {
			return &domain.RetrievalResult{
				Results:   trimResults(entry.Results, topK),
				Strategy:  domain.StrategyCached,
				FromCache: true,
			}, nil
		}
	}

	var degraded []string

	lexical, err := uc.searchLexical(ctx, text, query.Filter)
	if err != nil {
		uc.logger.Warn("lexical_search_degraded", "error", err)
		degraded = append(degraded, "lexical_unavailable")
		lexical = nil
	}

	score := uc.evaluator.Evaluate(query, lexical)
	strategy := SelectStrategy(score, uc.cfg.Routing)

	var results []domain.RankedResult
	switch strategy {
	case domain.StrategyLexicalOnly:
		// Latency-critical fast path: the embedding service is never
		// touched here.
		results = passthroughRanking(markProvenance(lexical, domain.ProvenanceLexical))

	case domain.StrategyHybrid:
		semantic, semDegraded := uc.searchSemantic(ctx, text, query.Filter)
		degraded = append(degraded, semDegraded...)
		fused := fuseCandidates(lexical, semantic)
		results = uc.rerankCandidates(ctx, text, fused, &degraded)

	case domain.StrategySemanticOnly:
		semantic, semDegraded := uc.searchSemantic(ctx, text, query.Filter)
		degraded = append(degraded, semDegraded...)
		candidates := semantic
		if len(semantic) == 0 && len(semDegraded) > 0 {
			// Embedding or vector index failed: the lexical hits that
			// informed the decision are the best remaining answer.
			candidates = markProvenance(lexical, domain.ProvenanceLexical)
		}
		results = uc.rerankCandidates(ctx, text, candidates, &degraded)
	}

	for i := range results {
		results[i].Strategy = strategy
		results[i].Confidence = score.Overall
	}
	results = trimResults(results, topK)

	if uc.cache != nil && !bypassCache {
		// The tiered cache owns the sensitive-content gate; a flagged
		// result set is computed and returned but never stored.
		uc.cache.Put(ctx, key, domain.CacheEntry{
			Key:       key,
			Results:   results,
			Strategy:  strategy,
			CreatedAt: time.Now().UTC(),
		}, uc.cfg.CacheTTL)
	}

	uc.logger.Info("retrieval_complete",
		"strategy", string(strategy),
		"confidence", score.Overall,
		"lexical_hits", score.ResultCount,
		"results", len(results),
		"degraded", degraded,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	return &domain.RetrievalResult{
		Results:    results,
		Strategy:   strategy,
		Confidence: score,
		Degraded:   degraded,
	}, nil
}

func (uc *RetrieveUseCase) searchLexical(ctx context.Context, text string, filter domain.SearchFilter) ([]domain.Candidate, error) {
	lctx, cancel := contextWithBudget(ctx, uc.cfg.Budgets.Lexical)
	defer cancel()
	return uc.lexical.Search(lctx, text, uc.cfg.CandidateLimit, filter)
}

// searchSemantic fetches the query embedding and runs the vector
// search, each under its own budget. Failures are converted into
// degradation flags, never errors: the router falls back to the
// next-best already-computed result set.
func (uc *RetrieveUseCase) searchSemantic(ctx context.Context, text string, filter domain.SearchFilter) ([]domain.Candidate, []string) {
	ectx, cancel := contextWithBudget(ctx, uc.cfg.Budgets.Embedding)
	vector, err := uc.embedder.EmbedQuery(ectx, text)
	cancel()
	if err != nil {
		flag := "embedding_failed"
		if errors.Is(err, context.DeadlineExceeded) || domain.IsKind(err, domain.ErrEmbeddingTimeout) {
			flag = "embedding_timeout"
		}
		uc.logger.Warn("embedding_degraded", "error", err)
		return nil, []string{flag}
	}

	sctx, cancel := contextWithBudget(ctx, uc.cfg.Budgets.Semantic)
	defer cancel()
	hits, err := uc.vector.Search(sctx, vector, uc.cfg.CandidateLimit, filter)
	if err != nil {
		uc.logger.Warn("semantic_search_degraded", "error", err)
		return nil, []string{"semantic_unavailable"}
	}
	return markProvenance(hits, domain.ProvenanceSemantic), nil
}

func (uc *RetrieveUseCase) rerankCandidates(ctx context.Context, text string, candidates []domain.Candidate, degraded *[]string) []domain.RankedResult {
	rctx, cancel := contextWithBudget(ctx, uc.cfg.Budgets.Rerank)
	defer cancel()

	results, err := uc.reranker.Rerank(rctx, text, candidates)
	if err != nil {
		uc.logger.Warn("rerank_degraded", "error", err)
		*degraded = append(*degraded, "rerank_passthrough")
	}
	return results
}

func markProvenance(candidates []domain.Candidate, source domain.Provenance) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	for i, c := range candidates {
		c.Source = source
		out[i] = c
	}
	return out
}

func trimResults(results []domain.RankedResult, limit int) []domain.RankedResult {
	if limit <= 0 || len(results) <= limit {
		return results
	}
	return results[:limit]
}

func contextWithBudget(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	if budget <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, budget)
}
