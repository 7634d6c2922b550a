package usecase

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// EvaluatorConfig carries every weight and dictionary of the
// confidence evaluation. Nothing here is hardcoded in the evaluator
// itself; defaults are tuning starting points, not constants.
type EvaluatorConfig struct {
	// TopCandidates is how many lexical hits contribute to text_match.
	TopCandidates int
	// ExpectedResults feeds the quantity factor: fewer hits than this
	// collapse the overall score proportionally.
	ExpectedResults int

	// Text-match mix over each inspected candidate.
	ExactTokenWeight  float64
	PartialTokenWeight float64
	EngineScoreWeight float64

	// Overall mix of the three component signals.
	BaseWeight    float64
	DomainWeight  float64
	ContextWeight float64

	// TopScoreBoost folds a fraction of the normalized best engine
	// score into the base signal.
	TopScoreBoost float64

	// QueryCategoryBoost is the extra weight of a term category whose
	// terms appear in the query text itself.
	QueryCategoryBoost float64

	// DomainTerms and ContextTerms map category name to its term list.
	// Domain categories cover clinical/safety vocabulary; context
	// categories cover emotional, social and daily-living language.
	DomainTerms  map[string][]string
	ContextTerms map[string][]string
}

func DefaultEvaluatorConfig() EvaluatorConfig {
	return EvaluatorConfig{
		TopCandidates:      3,
		ExpectedResults:    5,
		ExactTokenWeight:   0.6,
		PartialTokenWeight: 0.3,
		EngineScoreWeight:  0.1,
		BaseWeight:         0.5,
		DomainWeight:       0.3,
		ContextWeight:      0.2,
		TopScoreBoost:      0.1,
		QueryCategoryBoost: 2.0,
	}
}

func (c EvaluatorConfig) normalize() EvaluatorConfig {
	out := c
	def := DefaultEvaluatorConfig()

	if out.TopCandidates <= 0 {
		out.TopCandidates = def.TopCandidates
	}
	if out.ExpectedResults <= 0 {
		out.ExpectedResults = def.ExpectedResults
	}
	if out.ExactTokenWeight <= 0 && out.PartialTokenWeight <= 0 && out.EngineScoreWeight <= 0 {
		out.ExactTokenWeight = def.ExactTokenWeight
		out.PartialTokenWeight = def.PartialTokenWeight
		out.EngineScoreWeight = def.EngineScoreWeight
	}
	if out.BaseWeight <= 0 && out.DomainWeight <= 0 && out.ContextWeight <= 0 {
		out.BaseWeight = def.BaseWeight
		out.DomainWeight = def.DomainWeight
		out.ContextWeight = def.ContextWeight
	}
	if out.TopScoreBoost < 0 {
		out.TopScoreBoost = def.TopScoreBoost
	}
	if out.QueryCategoryBoost < 1 {
		out.QueryCategoryBoost = def.QueryCategoryBoost
	}
	return out
}

type termCategory struct {
	name    string
	pattern *regexp.Regexp
}

// ConfidenceEvaluator grades a lexical result set so the router can
// decide whether semantic search is worth its latency.
type ConfidenceEvaluator struct {
	cfg        EvaluatorConfig
	domainCats []termCategory
	contextCats []termCategory
}

func NewConfidenceEvaluator(cfg EvaluatorConfig) *ConfidenceEvaluator {
	cfg = cfg.normalize()
	return &ConfidenceEvaluator{
		cfg:         cfg,
		domainCats:  compileCategories(cfg.DomainTerms),
		contextCats: compileCategories(cfg.ContextTerms),
	}
}

func compileCategories(dict map[string][]string) []termCategory {
	if len(dict) == 0 {
		return nil
	}
	names := make([]string, 0, len(dict))
	for name := range dict {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]termCategory, 0, len(names))
	for _, name := range names {
		terms := dict[name]
		if len(terms) == 0 {
			continue
		}
		quoted := make([]string, 0, len(terms))
		for _, term := range terms {
			term = strings.TrimSpace(strings.ToLower(term))
			if term == "" {
				continue
			}
			quoted = append(quoted, regexp.QuoteMeta(term))
		}
		if len(quoted) == 0 {
			continue
		}
		pattern := regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
		out = append(out, termCategory{name: name, pattern: pattern})
	}
	return out
}

// Evaluate computes the confidence score of a lexical result set.
// Deterministic for a fixed query, candidate set and config.
func (e *ConfidenceEvaluator) Evaluate(query domain.Query, candidates []domain.Candidate) domain.ConfidenceScore {
	score := domain.ConfidenceScore{
		ResultCount: len(candidates),
	}
	if len(candidates) > 0 {
		top := candidates[0].Score
		for _, c := range candidates[1:] {
			if c.Score > top {
				top = c.Score
			}
		}
		score.TopScore = top
	}

	queryText := strings.ToLower(query.Text)
	queryTokens := toTokenSet(query.Text)

	score.TextMatch = e.textMatch(queryTokens, candidates)
	score.DomainTermCoverage = e.coverage(e.domainCats, queryText, candidates)
	score.ContextRelevance = e.coverage(e.contextCats, queryText, candidates)

	quantity := 1.0
	if e.cfg.ExpectedResults > 0 {
		quantity = math.Min(float64(score.ResultCount)/float64(e.cfg.ExpectedResults), 1.0)
	}

	base := clamp01(score.TextMatch + e.cfg.TopScoreBoost*saturate(score.TopScore))
	weighted := base*e.cfg.BaseWeight +
		score.DomainTermCoverage*e.cfg.DomainWeight +
		score.ContextRelevance*e.cfg.ContextWeight
	score.Overall = clamp01(weighted) * quantity
	return score
}

// textMatch averages a per-candidate blend of exact token overlap,
// partial (substring) overlap and the candidate's own normalized
// engine score over the top N candidates.
func (e *ConfidenceEvaluator) textMatch(queryTokens map[string]struct{}, candidates []domain.Candidate) float64 {
	if len(queryTokens) == 0 || len(candidates) == 0 {
		return 0
	}
	n := e.cfg.TopCandidates
	if n > len(candidates) {
		n = len(candidates)
	}

	var sum float64
	for _, candidate := range candidates[:n] {
		candidateTokens := toTokenSet(candidate.Title + " " + candidate.Text)
		exact := tokenOverlap(queryTokens, candidateTokens)
		partial := partialOverlap(queryTokens, candidateTokens)
		sum += e.cfg.ExactTokenWeight*exact +
			e.cfg.PartialTokenWeight*partial +
			e.cfg.EngineScoreWeight*saturate(candidate.Score)
	}
	return clamp01(sum / float64(n))
}

// coverage is the weighted fraction of term categories that fire in
// the query or the candidate texts. Categories whose terms appear in
// the query itself count with QueryCategoryBoost weight, so a query
// that names clinical vocabulary dominates the signal.
func (e *ConfidenceEvaluator) coverage(categories []termCategory, queryText string, candidates []domain.Candidate) float64 {
	if len(categories) == 0 {
		return 0
	}

	var matchedWeight, totalWeight float64
	for _, cat := range categories {
		inQuery := cat.pattern.MatchString(queryText)
		weight := 1.0
		if inQuery {
			weight = e.cfg.QueryCategoryBoost
		}
		totalWeight += weight

		matched := inQuery
		if !matched {
			for _, candidate := range candidates {
				if cat.pattern.MatchString(strings.ToLower(candidate.Title)) ||
					cat.pattern.MatchString(strings.ToLower(candidate.Text)) {
					matched = true
					break
				}
			}
		}
		if matched {
			matchedWeight += weight
		}
	}
	if totalWeight == 0 {
		return 0
	}
	return clamp01(matchedWeight / totalWeight)
}

func tokenOverlap(query, candidate map[string]struct{}) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := candidate[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// partialOverlap counts query tokens that occur inside some candidate
// token without matching it exactly ("metformin" in "metformin500").
func partialOverlap(query, candidate map[string]struct{}) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := candidate[token]; ok {
			continue
		}
		for other := range candidate {
			if strings.Contains(other, token) || strings.Contains(token, other) {
				matches++
				break
			}
		}
	}
	return float64(matches) / float64(len(query))
}

// saturate maps an unbounded non-negative engine score into [0,1).
// Engine scales differ across sources, so only the saturated form is
// ever blended with ratio signals.
func saturate(score float64) float64 {
	if score <= 0 {
		return 0
	}
	return score / (score + 1)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
