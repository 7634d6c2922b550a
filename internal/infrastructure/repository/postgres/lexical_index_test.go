package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

func newIndexWithMock(t *testing.T) (*LexicalIndex, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &LexicalIndex{db: db}, mock, func() { _ = db.Close() }
}

func searchColumns() []string {
	return []string{"id", "title", "body", "score", "headline"}
}

func TestSearchMergesCollectionsByScore(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT d.id, d.title, d.body").
		WithArgs("metformin", "", "", "", 2).
		WillReturnRows(sqlmock.NewRows(searchColumns()).
			AddRow("doc-1", "Metformin guide", "About metformin", 0.8, "<b>metformin</b> info"))
	mock.ExpectQuery("SELECT f.id, f.question, f.answer").
		WithArgs("metformin", "", "", "", 2).
		WillReturnRows(sqlmock.NewRows(searchColumns()).
			AddRow("faq-1", "What is metformin?", "A diabetes medication", 0.9, "diabetes <b>medication</b>"))

	candidates, err := index.Search(context.Background(), "metformin", 2, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].CorpusID != "faq-1" || candidates[1].CorpusID != "doc-1" {
		t.Fatalf("expected score-descending merge, got %s %s", candidates[0].CorpusID, candidates[1].CorpusID)
	}
	if candidates[0].Source != domain.ProvenanceLexical {
		t.Fatalf("expected lexical provenance, got %s", candidates[0].Source)
	}
	if len(candidates[0].Highlights) != 1 {
		t.Fatalf("expected headline highlight, got %v", candidates[0].Highlights)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchPassesFilters(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	filter := domain.SearchFilter{Role: "caregiver", Category: "medication", Locale: "en"}
	mock.ExpectQuery("SELECT d.id, d.title, d.body").
		WithArgs("dosage", "caregiver", "medication", "en", 10).
		WillReturnRows(sqlmock.NewRows(searchColumns()))
	mock.ExpectQuery("SELECT f.id, f.question, f.answer").
		WithArgs("dosage", "caregiver", "medication", "en", 10).
		WillReturnRows(sqlmock.NewRows(searchColumns()))

	candidates, err := index.Search(context.Background(), "dosage", 0, filter)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 0 {
		t.Fatalf("expected no candidates, got %d", len(candidates))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchNullHeadlineOmitsHighlights(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT d.id, d.title, d.body").
		WithArgs("metformin", "", "", "", 5).
		WillReturnRows(sqlmock.NewRows(searchColumns()).
			AddRow("doc-1", "Metformin guide", "About metformin", 0.8, nil))
	mock.ExpectQuery("SELECT f.id, f.question, f.answer").
		WithArgs("metformin", "", "", "", 5).
		WillReturnRows(sqlmock.NewRows(searchColumns()))

	candidates, err := index.Search(context.Background(), "metformin", 5, domain.SearchFilter{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].Highlights != nil {
		t.Fatalf("expected candidate without highlights, got %+v", candidates)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSearchErrorIsIndexUnavailable(t *testing.T) {
	index, mock, done := newIndexWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT d.id, d.title, d.body").
		WithArgs("metformin", "", "", "", 5).
		WillReturnError(errors.New("connection refused"))

	_, err := index.Search(context.Background(), "metformin", 5, domain.SearchFilter{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrIndexUnavailable) {
		t.Fatalf("expected ErrIndexUnavailable, got %v", err)
	}
}
