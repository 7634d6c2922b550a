package domain

import "time"

// SearchFilter narrows a retrieval request to a slice of the corpus.
// Empty fields match everything.
type SearchFilter struct {
	Role     string `json:"role,omitempty"`
	Category string `json:"category,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Query is the immutable input of one retrieval request. It is never
// persisted beyond the request except in cache or audit form.
type Query struct {
	Text      string       `json:"text"`
	Filter    SearchFilter `json:"filter"`
	Timestamp time.Time    `json:"timestamp"`
}

// Provenance records which search source produced a candidate.
type Provenance string

const (
	ProvenanceLexical  Provenance = "lexical"
	ProvenanceSemantic Provenance = "semantic"
	ProvenanceBoth     Provenance = "both"
)

// Candidate is a single retrieval hit before final ranking. Score is
// engine-native and not comparable across sources until normalized.
type Candidate struct {
	CorpusID   string     `json:"corpus_id"`
	Title      string     `json:"title"`
	Text       string     `json:"text"`
	Source     Provenance `json:"source"`
	Score      float64    `json:"score"`
	Highlights []string   `json:"highlights,omitempty"`
}

// RankedResult is the output unit handed to the downstream generator:
// a candidate plus the fused/re-ranked score, the strategy that
// produced it and the confidence value that justified the strategy.
type RankedResult struct {
	Candidate  Candidate      `json:"candidate"`
	FinalScore float64        `json:"final_score"`
	Strategy   SearchStrategy `json:"strategy"`
	Confidence float64        `json:"confidence"`
}

// RetrievalResult is the full response surface of one request,
// including degradation flags for observability.
type RetrievalResult struct {
	Results    []RankedResult  `json:"results"`
	Strategy   SearchStrategy  `json:"strategy"`
	Confidence ConfidenceScore `json:"confidence"`
	Degraded   []string        `json:"degraded,omitempty"`
	FromCache  bool            `json:"from_cache"`
}

// CacheEntry is the memoized form of a retrieval response. Entries for
// responses flagged as sensitive must never be created.
type CacheEntry struct {
	Key       string         `json:"key"`
	Results   []RankedResult `json:"results"`
	Strategy  SearchStrategy `json:"strategy"`
	CreatedAt time.Time      `json:"created_at"`
	Tier      string         `json:"tier,omitempty"`
}
