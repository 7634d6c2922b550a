package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/careloop/retrieval-engine/internal/core/domain"
	"github.com/careloop/retrieval-engine/internal/infrastructure/resilience"
)

// Client wraps the Ollama embedding endpoint. Embedding is a pure
// function of the input text: idempotent and side-effect-free, so
// retries are always safe.
type Client struct {
	baseURL    string
	embedModel string
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	// MaxQPS bounds outbound embedding calls; zero disables limiting.
	MaxQPS float64
	// Timeout is the transport-level ceiling; the router applies the
	// tighter per-stage budget through the request context.
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(baseURL, embedModel string, options Options) *Client {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	var limiter *rate.Limiter
	if options.MaxQPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(options.MaxQPS), 1)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		executor:   options.Executor,
	}
}

// EmbedQuery returns the dense vector of a query text. The vector
// dimension is fixed by the deployed model.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, wrapEmbeddingError("embed rate wait", err)
		}
	}

	request := map[string]any{
		"model": c.embedModel,
		"input": []string{text},
	}
	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}

	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/api/embed", request, &response, "embed")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama.embed", call, classifyEmbedError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapEmbeddingError("embed query", err)
	}

	if len(response.Embeddings) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return response.Embeddings[0], nil
}

func wrapEmbeddingError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrEmbeddingTimeout, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
