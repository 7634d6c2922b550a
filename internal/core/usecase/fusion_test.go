package usecase

import (
	"testing"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

func TestFuseCandidatesDeduplicatesByCorpusID(t *testing.T) {
	lexical := []domain.Candidate{
		{CorpusID: "a", Title: "A", Text: "lexical a", Score: 2},
		{CorpusID: "b", Title: "B", Text: "lexical b", Score: 1},
	}
	semantic := []domain.Candidate{
		{CorpusID: "b", Title: "B", Text: "semantic b", Score: 0.9},
		{CorpusID: "c", Title: "C", Text: "semantic c", Score: 0.5},
	}

	fused := fuseCandidates(lexical, semantic)
	if len(fused) != 3 {
		t.Fatalf("expected 3 fused candidates, got %d", len(fused))
	}

	byID := make(map[string]domain.Candidate, len(fused))
	for _, c := range fused {
		byID[c.CorpusID] = c
	}

	collided := byID["b"]
	if collided.Source != domain.ProvenanceBoth {
		t.Fatalf("expected provenance=both for collision, got %s", collided.Source)
	}
	if collided.Text != "semantic b" {
		t.Fatalf("expected semantic content to win, got %q", collided.Text)
	}
	if byID["a"].Source != domain.ProvenanceLexical {
		t.Fatalf("expected lexical provenance for a, got %s", byID["a"].Source)
	}
	if byID["c"].Source != domain.ProvenanceSemantic {
		t.Fatalf("expected semantic provenance for c, got %s", byID["c"].Source)
	}
}

func TestFuseCandidatesIdempotent(t *testing.T) {
	set := []domain.Candidate{
		{CorpusID: "a", Title: "A", Text: "content a", Score: 3},
		{CorpusID: "b", Title: "B", Text: "content b", Score: 2},
		{CorpusID: "c", Title: "C", Text: "content c", Score: 1},
	}

	fused := fuseCandidates(set, set)
	if len(fused) != len(set) {
		t.Fatalf("fusing a set with itself must not change its size: got %d, want %d", len(fused), len(set))
	}

	byID := make(map[string]domain.Candidate, len(fused))
	for _, c := range fused {
		if _, dup := byID[c.CorpusID]; dup {
			t.Fatalf("duplicate corpus id %s after self-fusion", c.CorpusID)
		}
		byID[c.CorpusID] = c
	}

	for _, want := range set {
		got, ok := byID[want.CorpusID]
		if !ok {
			t.Fatalf("corpus id %s missing after self-fusion", want.CorpusID)
		}
		if got.Source != domain.ProvenanceBoth {
			t.Fatalf("expected provenance=both for %s, got %s", want.CorpusID, got.Source)
		}
		if got.Title != want.Title || got.Text != want.Text || got.Score != want.Score {
			t.Fatalf("self-fusion altered %s: got %+v, want %+v", want.CorpusID, got, want)
		}
	}
}

func TestFuseCandidatesOrderIsDeterministic(t *testing.T) {
	lexical := []domain.Candidate{
		{CorpusID: "a", Score: 2},
		{CorpusID: "b", Score: 1},
	}
	semantic := []domain.Candidate{
		{CorpusID: "b", Score: 0.9},
		{CorpusID: "c", Score: 0.5},
	}

	// Both a and the collided b normalize to 1 within their source;
	// the raw score breaks the tie, then corpus id.
	fused := fuseCandidates(lexical, semantic)
	if fused[0].CorpusID != "a" || fused[1].CorpusID != "b" || fused[2].CorpusID != "c" {
		t.Fatalf("unexpected order: %s %s %s", fused[0].CorpusID, fused[1].CorpusID, fused[2].CorpusID)
	}

	again := fuseCandidates(lexical, semantic)
	for i := range fused {
		if fused[i].CorpusID != again[i].CorpusID {
			t.Fatalf("order changed between runs at %d: %s vs %s", i, fused[i].CorpusID, again[i].CorpusID)
		}
	}
}

func TestFuseCandidatesOneSideEmpty(t *testing.T) {
	semantic := []domain.Candidate{
		{CorpusID: "x", Score: 0.7},
		{CorpusID: "y", Score: 0.3},
	}

	fused := fuseCandidates(nil, semantic)
	if len(fused) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(fused))
	}
	for _, c := range fused {
		if c.Source != domain.ProvenanceSemantic {
			t.Fatalf("expected semantic provenance, got %s", c.Source)
		}
	}
}

func TestNormalizeScoresFlatList(t *testing.T) {
	positive := []domain.Candidate{
		{CorpusID: "a", Score: 0.5},
		{CorpusID: "b", Score: 0.5},
	}
	for i, v := range normalizeScores(positive) {
		if v != 1 {
			t.Fatalf("expected flat positive scores to normalize to 1, got %f at %d", v, i)
		}
	}

	zero := []domain.Candidate{{CorpusID: "a", Score: 0}}
	if got := normalizeScores(zero)[0]; got != 0 {
		t.Fatalf("expected zero score to stay 0, got %f", got)
	}
}

func TestNormalizeScoresMinMax(t *testing.T) {
	candidates := []domain.Candidate{
		{CorpusID: "a", Score: 3},
		{CorpusID: "b", Score: 1},
		{CorpusID: "c", Score: 2},
	}
	norm := normalizeScores(candidates)
	if norm[0] != 1 || norm[1] != 0 || norm[2] != 0.5 {
		t.Fatalf("unexpected normalization: %v", norm)
	}
}
