package usecase

import (
	"sort"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// fuseCandidates merges lexical and semantic hits into one list keyed
// by corpus id. Scores are min-max normalized per source before
// comparison because engine scales are not compatible. When both
// sources return the same corpus id the semantic-sourced content wins
// and the candidate is tagged ProvenanceBoth with the higher of the
// two normalized scores.
func fuseCandidates(lexical, semantic []domain.Candidate) []domain.Candidate {
	lexNorm := normalizeScores(lexical)
	semNorm := normalizeScores(semantic)

	type fused struct {
		candidate domain.Candidate
		norm      float64
	}
	acc := make(map[string]fused, len(lexical)+len(semantic))

	for i, c := range lexical {
		c.Source = domain.ProvenanceLexical
		acc[c.CorpusID] = fused{candidate: c, norm: lexNorm[i]}
	}
	for i, c := range semantic {
		c.Source = domain.ProvenanceSemantic
		if prev, ok := acc[c.CorpusID]; ok {
			c.Source = domain.ProvenanceBoth
			if prev.candidate.Score > c.Score {
				c.Score = prev.candidate.Score
			}
			norm := semNorm[i]
			if prev.norm > norm {
				norm = prev.norm
			}
			acc[c.CorpusID] = fused{candidate: c, norm: norm}
			continue
		}
		acc[c.CorpusID] = fused{candidate: c, norm: semNorm[i]}
	}

	out := make([]domain.Candidate, 0, len(acc))
	norms := make(map[string]float64, len(acc))
	for _, f := range acc {
		candidate := f.candidate
		norms[candidate.CorpusID] = f.norm
		out = append(out, candidate)
	}

	sort.SliceStable(out, func(i, j int) bool {
		ni, nj := norms[out[i].CorpusID], norms[out[j].CorpusID]
		if ni != nj {
			return ni > nj
		}
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].CorpusID < out[j].CorpusID
	})
	return out
}

// normalizeScores maps engine scores of one source into [0,1] by
// min-max. A flat list normalizes to 1 for positive scores so a
// single strong hit is not erased.
func normalizeScores(candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	minScore := candidates[0].Score
	maxScore := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score < minScore {
			minScore = c.Score
		}
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}

	span := maxScore - minScore
	for i, c := range candidates {
		if span <= 0 {
			if c.Score > 0 {
				out[i] = 1
			}
			continue
		}
		out[i] = (c.Score - minScore) / span
	}
	return out
}
