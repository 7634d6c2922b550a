package ports

import (
	"context"

	"github.com/careloop/retrieval-engine/internal/core/domain"
)

// Retriever is the entry point consumed by the conversation
// orchestrator that owns the actual request/response schema.
type Retriever interface {
	Retrieve(ctx context.Context, query domain.Query, topK int) (*domain.RetrievalResult, error)
}
