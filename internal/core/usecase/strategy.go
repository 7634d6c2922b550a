package usecase

import "github.com/careloop/retrieval-engine/internal/core/domain"

// RoutingConfig holds the threshold policy of the cascading search.
// Defaults are tuning starting points; callers own the final values.
type RoutingConfig struct {
	HighThreshold    float64
	MediumThreshold  float64
	DomainThreshold  float64
	ContextThreshold float64
}

func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		HighThreshold:    0.85,
		MediumThreshold:  0.4,
		DomainThreshold:  0.9,
		ContextThreshold: 0.7,
	}
}

func (c RoutingConfig) normalize() RoutingConfig {
	out := c
	def := DefaultRoutingConfig()
	if out.HighThreshold <= 0 || out.HighThreshold > 1 {
		out.HighThreshold = def.HighThreshold
	}
	if out.MediumThreshold <= 0 || out.MediumThreshold >= out.HighThreshold {
		out.MediumThreshold = def.MediumThreshold
	}
	if out.DomainThreshold <= 0 || out.DomainThreshold > 1 {
		out.DomainThreshold = def.DomainThreshold
	}
	if out.ContextThreshold <= 0 || out.ContextThreshold > 1 {
		out.ContextThreshold = def.ContextThreshold
	}
	return out
}

// SelectStrategy maps a confidence score onto a search strategy.
//
// The check order is load-bearing: the domain-coverage check runs
// first so clinical/safety queries with strong lexical matches get the
// cheap fast path and are never downgraded below hybrid; the context
// check runs second so emotionally or socially loaded queries always
// get semantic enrichment regardless of lexical strength; only then do
// the generic thresholds apply.
func SelectStrategy(score domain.ConfidenceScore, cfg RoutingConfig) domain.SearchStrategy {
	cfg = cfg.normalize()

	if score.DomainTermCoverage >= cfg.DomainThreshold {
		if score.Overall >= cfg.HighThreshold {
			return domain.StrategyLexicalOnly
		}
		return domain.StrategyHybrid
	}

	if score.ContextRelevance >= cfg.ContextThreshold {
		return domain.StrategyHybrid
	}

	switch {
	case score.Overall >= cfg.HighThreshold:
		return domain.StrategyLexicalOnly
	case score.Overall >= cfg.MediumThreshold:
		return domain.StrategyHybrid
	default:
		return domain.StrategySemanticOnly
	}
}
