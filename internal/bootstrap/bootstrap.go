package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	httpadapter "github.com/careloop/retrieval-engine/internal/adapters/http"
	"github.com/careloop/retrieval-engine/internal/config"
	"github.com/careloop/retrieval-engine/internal/core/ports"
	"github.com/careloop/retrieval-engine/internal/core/usecase"
	"github.com/careloop/retrieval-engine/internal/infrastructure/cache"
	"github.com/careloop/retrieval-engine/internal/infrastructure/llm/ollama"
	"github.com/careloop/retrieval-engine/internal/infrastructure/repository/postgres"
	"github.com/careloop/retrieval-engine/internal/infrastructure/rerank/tei"
	"github.com/careloop/retrieval-engine/internal/infrastructure/resilience"
	"github.com/careloop/retrieval-engine/internal/infrastructure/safety"
	"github.com/careloop/retrieval-engine/internal/infrastructure/vector/qdrant"
	"github.com/careloop/retrieval-engine/internal/observability/metrics"
)

const serviceName = "retrieval-engine"

type App struct {
	Config config.Config

	Retriever ports.Retriever
	Metrics   *metrics.HTTPServerMetrics

	handler http.Handler
	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	lexical := postgres.NewLexicalIndex(db, resilience.NewExecutor(resilience.IndexConfig()))
	if err := lexical.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, cfg.QdrantTimeout)

	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{
		MaxQPS:   cfg.EmbedMaxQPS,
		Executor: resilience.NewExecutor(resilience.DefaultConfig()),
	})

	reranker := usecase.NewReranker(tei.New(cfg.RerankURL, cfg.RerankBudget))

	terms, err := config.LoadTermDictionaries(cfg.TermsPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load term dictionaries: %w", err)
	}
	evaluator := usecase.NewConfidenceEvaluator(usecase.EvaluatorConfig{
		TopCandidates:      cfg.TopCandidates,
		ExpectedResults:    cfg.ExpectedResults,
		ExactTokenWeight:   cfg.ExactTokenWeight,
		PartialTokenWeight: cfg.PartialTokenWeight,
		EngineScoreWeight:  cfg.EngineScoreWeight,
		BaseWeight:         cfg.BaseWeight,
		DomainWeight:       cfg.DomainWeight,
		ContextWeight:      cfg.ContextWeight,
		TopScoreBoost:      cfg.TopScoreBoost,
		QueryCategoryBoost: cfg.QueryCategoryBoost,
		DomainTerms:        terms.Domain,
		ContextTerms:       terms.Context,
	})

	detector, err := safety.NewDetector(safety.DetectorConfig{})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init content detector: %w", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics(serviceName)
	retrievalMetrics := serverMetrics.Retrieval(serviceName)

	// Cache tiers are best-effort at startup: an unreachable shared or
	// durable tier shrinks the cache instead of failing the service.
	tiers := []ports.CacheTier{cache.NewMemoryTier(cfg.CacheMemorySize, cfg.CacheMemoryTTL)}
	closers := []func(){func() { _ = db.Close() }}

	natsTier, err := cache.NewNATSKVTier(cfg.NATSURL, cfg.NATSBucket, cfg.CacheSharedTTL, cache.NATSKVOptions{})
	if err != nil {
		logger.Warn("nats_cache_tier_unavailable", "error", err)
	} else {
		tiers = append(tiers, natsTier)
		closers = append(closers, natsTier.Close)
	}

	badgerTier, err := cache.NewBadgerTier(cfg.BadgerPath, logger)
	if err != nil {
		logger.Warn("badger_cache_tier_unavailable", "error", err)
	} else {
		tiers = append(tiers, badgerTier)
		closers = append(closers, func() { _ = badgerTier.Close() })
	}

	responseCache := cache.NewTiered(detector, cfg.CacheTTL, logger, retrievalMetrics, tiers...)

	retriever := usecase.NewRetrieveUseCase(
		lexical,
		vectorDB,
		embedder,
		reranker,
		evaluator,
		responseCache,
		detector,
		usecase.RouterConfig{
			TopK:           cfg.TopK,
			CandidateLimit: cfg.CandidateLimit,
			CacheTTL:       cfg.CacheTTL,
			Budgets: usecase.StageBudgets{
				Lexical:   cfg.LexicalBudget,
				Embedding: cfg.EmbeddingBudget,
				Semantic:  cfg.SemanticBudget,
				Rerank:    cfg.RerankBudget,
			},
			Routing: usecase.RoutingConfig{
				HighThreshold:    cfg.HighThreshold,
				MediumThreshold:  cfg.MediumThreshold,
				DomainThreshold:  cfg.DomainThreshold,
				ContextThreshold: cfg.ContextThreshold,
			},
		},
		logger,
	)

	router := httpadapter.NewRouter(retriever, serverMetrics, logger)

	return &App{
		Config:    cfg,
		Retriever: retriever,
		Metrics:   serverMetrics,
		handler:   router.Handler(),
		closeFn: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.handler
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
