package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/careloop/retrieval-engine/internal/core/domain"
	"github.com/careloop/retrieval-engine/internal/infrastructure/resilience"
)

// LexicalIndex serves keyword queries from Postgres full-text search
// over two collections: structured documents and FAQ-style knowledge
// entries. Scores are ts_rank_cd values, engine-native and only
// meaningful relative to each other.
type LexicalIndex struct {
	db       *sql.DB
	executor *resilience.Executor
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func NewLexicalIndex(db *sql.DB, executor *resilience.Executor) *LexicalIndex {
	return &LexicalIndex{db: db, executor: executor}
}

func (r *LexicalIndex) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	locale TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	search_vector TSVECTOR GENERATED ALWAYS AS (
		setweight(to_tsvector('english', coalesce(title, '')), 'A') ||
		setweight(to_tsvector('english', coalesce(body, '')), 'B')
	) STORED
);

CREATE INDEX IF NOT EXISTS idx_documents_search ON documents USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_documents_category ON documents(category);

CREATE TABLE IF NOT EXISTS faq_entries (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	answer TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	locale TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	search_vector TSVECTOR GENERATED ALWAYS AS (
		setweight(to_tsvector('english', coalesce(question, '')), 'A') ||
		setweight(to_tsvector('english', coalesce(answer, '')), 'B')
	) STORED
);

CREATE INDEX IF NOT EXISTS idx_faq_entries_search ON faq_entries USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_faq_entries_category ON faq_entries(category);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentSearchQuery = `
SELECT d.id, d.title, d.body,
       ts_rank_cd(d.search_vector, query) AS score,
       ts_headline('english', d.body, query, 'MaxFragments=2,MaxWords=14,MinWords=6') AS headline
FROM documents d, websearch_to_tsquery('english', $1) query
WHERE d.search_vector @@ query
  AND ($2 = '' OR d.role = $2)
  AND ($3 = '' OR d.category = $3)
  AND ($4 = '' OR d.locale = $4)
ORDER BY score DESC, d.id
LIMIT $5
`

const faqSearchQuery = `
SELECT f.id, f.question, f.answer,
       ts_rank_cd(f.search_vector, query) AS score,
       ts_headline('english', f.answer, query, 'MaxFragments=2,MaxWords=14,MinWords=6') AS headline
FROM faq_entries f, websearch_to_tsquery('english', $1) query
WHERE f.search_vector @@ query
  AND ($2 = '' OR f.role = $2)
  AND ($3 = '' OR f.category = $3)
  AND ($4 = '' OR f.locale = $4)
ORDER BY score DESC, f.id
LIMIT $5
`

// Search queries both collections and merges their hits by score.
// Index errors are retried per the executor policy and surface as
// ErrIndexUnavailable so the router can degrade instead of failing.
func (r *LexicalIndex) Search(ctx context.Context, queryText string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	if limit <= 0 {
		limit = 10
	}

	var out []domain.Candidate
	call := func(ctx context.Context) error {
		docs, err := r.searchCollection(ctx, documentSearchQuery, queryText, limit, filter)
		if err != nil {
			return fmt.Errorf("search documents: %w", err)
		}
		faqs, err := r.searchCollection(ctx, faqSearchQuery, queryText, limit, filter)
		if err != nil {
			return fmt.Errorf("search faq entries: %w", err)
		}
		out = mergeByScore(docs, faqs, limit)
		return nil
	}

	var err error
	if r.executor != nil {
		err = r.executor.Execute(ctx, "postgres.lexical_search", call, classifyIndexError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "lexical search", err)
	}
	return out, nil
}

func (r *LexicalIndex) searchCollection(ctx context.Context, query, queryText string, limit int, filter domain.SearchFilter) ([]domain.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query, queryText, filter.Role, filter.Category, filter.Locale, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		var headline sql.NullString
		if err := rows.Scan(&c.CorpusID, &c.Title, &c.Text, &c.Score, &headline); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		c.Source = domain.ProvenanceLexical
		if headline.Valid && strings.TrimSpace(headline.String) != "" {
			c.Highlights = []string{headline.String}
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func mergeByScore(a, b []domain.Candidate, limit int) []domain.Candidate {
	merged := make([]domain.Candidate, 0, len(a)+len(b))
	merged = append(merged, a...)
	merged = append(merged, b...)

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].CorpusID < merged[j].CorpusID
	})

	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func classifyIndexError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	return resilience.ErrorClassification{
		Retryable:     true,
		RecordFailure: true,
	}
}
