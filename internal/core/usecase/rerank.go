package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/careloop/retrieval-engine/internal/core/domain"
	"github.com/careloop/retrieval-engine/internal/core/ports"
)

// Reranker re-scores a shortlist with a pairwise relevance model. The
// model is called once with the whole batch; pairs share no state.
type Reranker struct {
	model ports.RelevanceModel
}

func NewReranker(model ports.RelevanceModel) *Reranker {
	return &Reranker{model: model}
}

// Rerank orders candidates by pairwise relevance to the query. When
// the model is unavailable or times out it degrades to the pre-rerank
// ordering with normalized scores and returns the error alongside the
// still-usable results; the caller flags the degradation instead of
// failing the request.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []domain.Candidate) ([]domain.RankedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if r == nil || r.model == nil {
		return passthroughRanking(candidates), nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Title + "\n" + c.Text
	}

	scores, err := r.model.ScorePairs(ctx, query, passages)
	if err != nil || len(scores) != len(candidates) {
		if err == nil {
			err = domain.WrapError(domain.ErrRerankTimeout, "rerank", errMismatchedScores)
		}
		return passthroughRanking(candidates), err
	}

	out := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RankedResult{Candidate: c, FinalScore: scores[i]}
	}
	sortRanked(out)
	return out, nil
}

// passthroughRanking keeps the incoming order and carries normalized
// pre-rerank scores as final scores.
func passthroughRanking(candidates []domain.Candidate) []domain.RankedResult {
	norm := normalizeScores(candidates)
	out := make([]domain.RankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = domain.RankedResult{Candidate: c, FinalScore: norm[i]}
	}
	return out
}

// sortRanked orders by final score descending with deterministic
// tie-breaks: original engine score, then corpus id.
func sortRanked(results []domain.RankedResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if results[i].Candidate.Score != results[j].Candidate.Score {
			return results[i].Candidate.Score > results[j].Candidate.Score
		}
		return results[i].Candidate.CorpusID < results[j].Candidate.CorpusID
	})
}

var errMismatchedScores = errors.New("relevance model returned mismatched score count")
