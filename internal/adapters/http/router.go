package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/careloop/retrieval-engine/internal/core/domain"
	"github.com/careloop/retrieval-engine/internal/core/ports"
	"github.com/careloop/retrieval-engine/internal/observability/logging"
	"github.com/careloop/retrieval-engine/internal/observability/metrics"
)

const serviceName = "retrieval-engine"

type Router struct {
	retriever ports.Retriever
	metrics   *metrics.HTTPServerMetrics
	retrieval *metrics.RetrievalMetrics
	logger    *slog.Logger
}

func NewRouter(retriever ports.Retriever, m *metrics.HTTPServerMetrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		retriever: retriever,
		metrics:   m,
		retrieval: m.Retrieval(serviceName),
		logger:    logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.Handle("/metrics", rt.metrics.Handler())
	mux.HandleFunc("/v1/retrieve", rt.handleRetrieve)

	handler := rt.metrics.Middleware(serviceName, mux)
	handler = accessLogMiddleware(rt.logger, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type retrieveRequest struct {
	Query  string              `json:"query"`
	TopK   int                 `json:"top_k,omitempty"`
	Filter domain.SearchFilter `json:"filter,omitempty"`
}

func (rt *Router) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req retrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	query := domain.Query{
		Text:      req.Query,
		Filter:    req.Filter,
		Timestamp: time.Now().UTC(),
	}

	start := time.Now()
	result, err := rt.retriever.Retrieve(r.Context(), query, req.TopK)
	if err != nil {
		if domain.IsKind(err, domain.ErrInvalidQuery) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "query text is required"})
			return
		}
		logging.FromContext(r.Context(), rt.logger).Error("retrieve_failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "retrieval failed"})
		return
	}

	rt.retrieval.RecordRetrieval(string(result.Strategy), result.Confidence.Overall, len(result.Results), time.Since(start))
	rt.retrieval.RecordDegraded(result.Degraded)

	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil && !errors.Is(err, http.ErrHandlerTimeout) {
		slog.Default().Warn("write_response_failed", "error", err)
	}
}
