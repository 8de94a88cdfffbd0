// Package handler serves the term-query endpoints.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/textsearch/internal/searcher/ranker"
	apperrors "github.com/Adithya-Monish-Kumar-K/textsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textsearch/pkg/metrics"
)

// Engine is the query side of the index gateway.
type Engine interface {
	DocumentsContaining(term string) ([]string, error)
	ScoreByRelevance(term string) (map[string]float64, error)
	Rank(term string, limit int) ([]ranker.ScoredDoc, error)
	Stats() indexer.Stats
	Generation() int64
}

type Handler struct {
	engine       Engine
	cache        *cache.QueryCache
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New builds the query handler. queryCache and m may be nil.
func New(engine Engine, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		engine:       engine,
		cache:        queryCache,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register mounts the query routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /keywords", h.Keywords)
	mux.HandleFunc("GET /infos", h.Infos)
	mux.HandleFunc("GET /ranked", h.Ranked)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.HandleFunc("GET /cache/stats", h.CacheStats)
	mux.HandleFunc("POST /cache/invalidate", h.CacheInvalidate)
}

// Keywords lists the documents containing ?keyword=.
func (h *Handler) Keywords(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	docs, hit, err := query(r.Context(), h, metrics.QueryContains, keyword, 0, func() ([]string, error) {
		return h.engine.DocumentsContaining(keyword)
	})
	h.respond(w, r, metrics.QueryContains, keyword, len(docs), hit, err, docs)
}

// Infos returns the TF-IDF score of ?keyword= for each containing document.
func (h *Handler) Infos(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	scores, hit, err := query(r.Context(), h, metrics.QueryScores, keyword, 0, func() (map[string]float64, error) {
		return h.engine.ScoreByRelevance(keyword)
	})
	h.respond(w, r, metrics.QueryScores, keyword, len(scores), hit, err, scores)
}

// Ranked returns the documents containing ?keyword= ordered by score.
func (h *Handler) Ranked(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	limit, err := h.parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	results, hit, err := query(r.Context(), h, metrics.QueryRanked, keyword, limit, func() ([]ranker.ScoredDoc, error) {
		return h.engine.Rank(keyword, limit)
	})
	h.respond(w, r, metrics.QueryRanked, keyword, len(results), hit, err, results)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.engine.Stats())
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":       hits,
		"misses":     misses,
		"total":      total,
		"hit_rate":   fmt.Sprintf("%.1f%%", hitRate),
		"breaker":    h.cache.BreakerState().String(),
		"generation": h.engine.Generation(),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "caching is disabled"))
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, apperrors.New(apperrors.ErrUnavailable, http.StatusServiceUnavailable, "cache invalidation failed"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// query runs compute through the cache when one is configured. Keywords that
// normalize to nothing are rejected before the cache is consulted.
func query[T any](ctx context.Context, h *Handler, kind, keyword string, limit int, compute func() (T, error)) (T, bool, error) {
	start := time.Now()
	defer func() {
		if h.metrics != nil {
			h.metrics.QueryLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		}
	}()
	term := tokenizer.Normalize(keyword)
	if term == "" {
		var zero T
		return zero, false, apperrors.Invalidf("keyword is empty")
	}
	if h.cache == nil {
		v, err := compute()
		return v, false, err
	}
	return cache.GetOrCompute(ctx, h.cache, cache.Key{
		Kind:       kind,
		Term:       term,
		Limit:      limit,
		Generation: h.engine.Generation(),
	}, compute)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, kind, keyword string, hits int, cacheHit bool, err error, body any) {
	log := logger.FromContext(r.Context())
	if err != nil {
		h.observe(kind, "error")
		log.Warn("query failed", "kind", kind, "keyword", keyword, "error", err)
		h.writeError(w, err)
		return
	}
	outcome := "hit"
	if hits == 0 {
		outcome = "zero_result"
	}
	h.observe(kind, outcome)
	log.Debug("query completed",
		"kind", kind,
		"keyword", keyword,
		"documents", hits,
		"cache_hit", cacheHit,
	)
	h.writeJSON(w, http.StatusOK, body)
}

func (h *Handler) observe(kind, outcome string) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(kind, outcome).Inc()
	}
}

func (h *Handler) parseLimit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 1 {
		return 0, apperrors.Invalidf("limit must be a positive integer")
	}
	if h.maxResults > 0 && parsed > h.maxResults {
		parsed = h.maxResults
	}
	return parsed, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.PublicMessage(err)})
}
