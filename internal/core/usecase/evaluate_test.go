package usecase

import (
	"math"
	"reflect"
	"testing"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEvaluateZeroResultsCollapsesOverall(t *testing.T) {
	evaluator := NewConfidenceEvaluator(DefaultEvaluatorConfig())

	score := evaluator.Evaluate(domain.Query{Text: "metformin dosage"}, nil)
	if score.Overall != 0 {
		t.Fatalf("expected overall=0 for zero results, got %f", score.Overall)
	}
	if score.ResultCount != 0 {
		t.Fatalf("expected result_count=0, got %d", score.ResultCount)
	}
}

func TestEvaluateExactTokenMatch(t *testing.T) {
	evaluator := NewConfidenceEvaluator(DefaultEvaluatorConfig())

	candidates := []domain.Candidate{
		{CorpusID: "d1", Title: "Metformin Dosage", Text: "", Score: 0},
	}
	score := evaluator.Evaluate(domain.Query{Text: "metformin dosage"}, candidates)

	// Both query tokens match exactly, no engine score contribution.
	if !almostEqual(score.TextMatch, 0.6) {
		t.Fatalf("expected text_match=0.6, got %f", score.TextMatch)
	}
	// base*0.5 scaled by quantity factor 1/5.
	if !almostEqual(score.Overall, 0.06) {
		t.Fatalf("expected overall=0.06, got %f", score.Overall)
	}
}

func TestEvaluatePartialTokenMatch(t *testing.T) {
	evaluator := NewConfidenceEvaluator(DefaultEvaluatorConfig())

	candidates := []domain.Candidate{
		{CorpusID: "d1", Title: "", Text: "metformin500 info", Score: 0},
	}
	score := evaluator.Evaluate(domain.Query{Text: "metformin"}, candidates)

	if !almostEqual(score.TextMatch, 0.3) {
		t.Fatalf("expected text_match=0.3 from partial overlap, got %f", score.TextMatch)
	}
}

func TestEvaluateQuantityFactorScalesOverall(t *testing.T) {
	evaluator := NewConfidenceEvaluator(DefaultEvaluatorConfig())
	query := domain.Query{Text: "metformin dosage"}

	one := evaluator.Evaluate(query, []domain.Candidate{
		{CorpusID: "d1", Title: "Metformin Dosage", Score: 0},
	})
	five := evaluator.Evaluate(query, []domain.Candidate{
		{CorpusID: "d1", Title: "Metformin Dosage", Score: 0},
		{CorpusID: "d2", Title: "Metformin Dosage", Score: 0},
		{CorpusID: "d3", Title: "Metformin Dosage", Score: 0},
		{CorpusID: "d4", Title: "Metformin Dosage", Score: 0},
		{CorpusID: "d5", Title: "Metformin Dosage", Score: 0},
	})

	if !almostEqual(five.Overall, one.Overall*5) {
		t.Fatalf("expected overall to scale with result count: one=%f five=%f", one.Overall, five.Overall)
	}
}

func TestEvaluateQueryCategoryBoost(t *testing.T) {
	cfg := DefaultEvaluatorConfig()
	cfg.DomainTerms = map[string][]string{
		"medication": {"metformin"},
		"safety":     {"fall"},
	}
	evaluator := NewConfidenceEvaluator(cfg)

	score := evaluator.Evaluate(domain.Query{Text: "metformin dosage"}, nil)

	// The medication category fires in the query and counts double;
	// safety stays unmatched with weight one.
	if !almostEqual(score.DomainTermCoverage, 2.0/3.0) {
		t.Fatalf("expected domain coverage=2/3, got %f", score.DomainTermCoverage)
	}
}

func TestEvaluateCandidateTermsCountWithoutBoost(t *testing.T) {
	cfg := DefaultEvaluatorConfig()
	cfg.ContextTerms = map[string][]string{
		"emotional": {"lonely"},
		"social":    {"friend"},
	}
	evaluator := NewConfidenceEvaluator(cfg)

	candidates := []domain.Candidate{
		{CorpusID: "d1", Title: "Making a new friend", Text: "How to meet people"},
	}
	score := evaluator.Evaluate(domain.Query{Text: "weekly schedule"}, candidates)

	// Neither category fires in the query; only social matches through
	// the candidate, at weight one.
	if !almostEqual(score.ContextRelevance, 0.5) {
		t.Fatalf("expected context relevance=0.5, got %f", score.ContextRelevance)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	cfg := DefaultEvaluatorConfig()
	cfg.DomainTerms = map[string][]string{
		"clinical":   {"dosage"},
		"medication": {"metformin"},
	}
	evaluator := NewConfidenceEvaluator(cfg)

	query := domain.Query{Text: "metformin dosage"}
	candidates := []domain.Candidate{
		{CorpusID: "d1", Title: "Metformin dosage guide", Text: "Standard dose", Score: 1.5},
		{CorpusID: "d2", Title: "Diabetes overview", Text: "General info", Score: 0.4},
	}

	first := evaluator.Evaluate(query, candidates)
	second := evaluator.Evaluate(query, candidates)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical scores, got %+v vs %+v", first, second)
	}
}
