// Package handler exposes the searcher over HTTP: queries, suggestions, the
// index artifacts the browser widget loads, and cache administration.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/suggest"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// boostParamPrefix marks per-field boost overrides, e.g. boost.title=3.
const boostParamPrefix = "boost."

// Options wires a Handler. Cache, Collector, Suggester and Metrics are
// optional.
type Options struct {
	Catalog      *catalog.Catalog
	Executor     *executor.Executor
	Cache        *cache.QueryCache
	Collector    *analytics.Collector
	Suggester    *suggest.Suggester
	Metrics      *metrics.Metrics
	DefaultBook  string
	ArtifactName string
	// SlowQuery promotes the span tree of slower searches from debug to
	// warn. Zero disables the promotion.
	SlowQuery time.Duration
}

type Handler struct {
	catalog      *catalog.Catalog
	executor     *executor.Executor
	cache        *cache.QueryCache
	collector    *analytics.Collector
	suggester    *suggest.Suggester
	metrics      *metrics.Metrics
	defaultBook  string
	artifactBase string
	slowQuery    time.Duration
	logger       *slog.Logger
}

func New(opts Options) *Handler {
	name := opts.ArtifactName
	if name == "" {
		name = "searchindex.js"
	}
	return &Handler{
		catalog:      opts.Catalog,
		executor:     opts.Executor,
		cache:        opts.Cache,
		collector:    opts.Collector,
		suggester:    opts.Suggester,
		metrics:      opts.Metrics,
		defaultBook:  opts.DefaultBook,
		artifactBase: strings.TrimSuffix(name, path.Ext(name)),
		slowQuery:    opts.SlowQuery,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/books", h.Books)
	mux.HandleFunc("GET /api/v1/books/{book}/{artifact}", h.Artifact)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.StartSpan(r.Context(), "search", middleware.GetRequestID(r))
	log := logger.FromContext(ctx)

	level := slog.LevelDebug
	var failure error
	defer func() {
		if failure != nil {
			span.SetAttr("error", failure.Error())
			level = slog.LevelWarn
		}
		span.End()
		span.Log(ctx, log, level)
	}()

	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		failure = fmt.Errorf("%w: empty query", apperrors.ErrInvalidQuery)
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	book := h.book(r)
	span.SetAttr("book", book)
	req, err := parseRequest(r, query)
	if err != nil {
		failure = err
		h.writeErr(w, err)
		return
	}
	entry, err := h.catalog.Get(book)
	if err != nil {
		failure = err
		h.writeErr(w, err)
		return
	}

	compute := func() (*executor.SearchResult, error) {
		rs, err := h.executor.SearchEntry(ctx, entry, req)
		if err != nil {
			return nil, err
		}
		_, collect := tracing.StartChildSpan(ctx, "collect")
		result := rs.Collect()
		result.Book = book
		collect.End()
		if result.Total == 0 && h.suggester != nil {
			_, suggestSpan := tracing.StartChildSpan(ctx, "suggest")
			result.Suggestions = correctedQueries(query, h.suggester.Suggest(entry.Bundle, entry.Fingerprint, query))
			suggestSpan.End()
		}
		return result, nil
	}

	var result *executor.SearchResult
	status := cache.StatusMiss
	if h.cache != nil {
		key := cache.Key{
			Book:        book,
			Fingerprint: entry.Fingerprint,
			Query:       query,
			Bool:        req.Overrides.Bool,
			Expand:      req.Overrides.Expand,
			Boosts:      req.Overrides.Boosts,
			Limit:       req.Limit,
		}
		result, status, err = h.cache.GetOrCompute(ctx, key, compute)
	} else {
		result, err = compute()
	}
	if err != nil {
		failure = err
		log.Error("search execution failed", "book", book, "query", query, "error", err)
		h.writeErr(w, err)
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(string(status)).Observe(elapsed.Seconds())
	}
	log.Info("search completed",
		"book", book,
		"query", query,
		"total", result.Total,
		"returned", len(result.Results),
		"cache", status,
		"latency_ms", elapsed.Milliseconds(),
	)
	span.SetAttr("cache", string(status))
	if h.slowQuery > 0 && elapsed >= h.slowQuery {
		level = slog.LevelWarn
	}
	if h.collector != nil {
		eventType := analytics.EventSearch
		if result.Total == 0 {
			eventType = analytics.EventZeroResult
		}
		h.collector.Track(analytics.SearchEvent{
			Type:        eventType,
			Book:        book,
			Query:       query,
			Terms:       result.Terms,
			Total:       result.Total,
			Returned:    len(result.Results),
			LatencyMs:   elapsed.Milliseconds(),
			CacheStatus: string(status),
			Timestamp:   time.Now().UTC(),
			RequestID:   middleware.GetRequestID(r),
		})
	}

	w.Header().Set("X-Cache", string(status))
	response := *result
	response.Query = query
	if response.Terms == nil {
		response.Terms = []string{}
	}
	h.writeJSON(w, http.StatusOK, &response)
}

func parseRequest(r *http.Request, query string) (executor.Request, error) {
	params := r.URL.Query()
	req := executor.Request{Query: query}
	if raw := params.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, fmt.Errorf("%w: limit must be a positive integer", apperrors.ErrInvalidQuery)
		}
		req.Limit = limit
	}
	if raw := params.Get("bool"); raw != "" {
		mode, err := index.ParseBoolMode(raw)
		if err != nil {
			return req, err
		}
		req.Overrides.Bool = string(mode)
	}
	if raw := params.Get("expand"); raw != "" {
		expand, err := strconv.ParseBool(raw)
		if err != nil {
			return req, fmt.Errorf("%w: expand must be a boolean", apperrors.ErrInvalidQuery)
		}
		req.Overrides.Expand = &expand
	}
	for name, values := range params {
		field, ok := strings.CutPrefix(name, boostParamPrefix)
		if !ok || len(values) == 0 {
			continue
		}
		boost, err := strconv.ParseFloat(values[0], 64)
		if err != nil || boost < 0 {
			return req, fmt.Errorf("%w: %s must be a non-negative number", apperrors.ErrInvalidQuery, name)
		}
		if req.Overrides.Boosts == nil {
			req.Overrides.Boosts = make(map[string]float64)
		}
		req.Overrides.Boosts[field] = boost
	}
	return req, nil
}

// correctedQueries rewrites query with the closest candidate of every
// suggestion. The output is lowercased like the cache key, so cached results
// never carry another request's casing.
func correctedQueries(query string, suggestions []suggest.Suggestion) []string {
	if len(suggestions) == 0 {
		return nil
	}
	replace := make(map[string]string, len(suggestions))
	for _, s := range suggestions {
		replace[s.Word] = s.Candidates[0]
	}
	words := strings.Fields(strings.ToLower(query))
	for i, w := range words {
		if c, ok := replace[w]; ok {
			words[i] = c
		}
	}
	return []string{strings.Join(words, " ")}
}

// Suggest answers GET /api/v1/suggest with per-word corrections.
func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	if h.suggester == nil {
		h.writeError(w, http.StatusServiceUnavailable, "suggestions are disabled")
		return
	}
	entry, err := h.catalog.Get(h.book(r))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	suggestions := h.suggester.Suggest(entry.Bundle, entry.Fingerprint, query)
	if suggestions == nil {
		suggestions = []suggest.Suggestion{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query":       query,
		"book":        entry.Book,
		"suggestions": suggestions,
	})
}

// Books lists the catalog.
func (h *Handler) Books(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"books": h.catalog.Books()})
}

// Artifact serves a book's index as searchindex.js or searchindex.json.
func (h *Handler) Artifact(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("artifact")
	ext := path.Ext(name)
	if strings.TrimSuffix(name, ext) != h.artifactBase {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown artifact %q", name))
		return
	}
	format, err := artifact.ParseFormat(strings.TrimPrefix(ext, "."))
	if err != nil {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown artifact %q", name))
		return
	}
	entry, err := h.catalog.Get(r.PathValue("book"))
	if err != nil {
		h.writeErr(w, err)
		return
	}
	data, ok := entry.Artifact(format)
	if !ok {
		h.writeError(w, http.StatusNotFound, fmt.Sprintf("artifact %q not available", name))
		return
	}
	etag := fmt.Sprintf(`"%s-%s"`, entry.Fingerprint[:min(16, len(entry.Fingerprint))], format)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("failed to write artifact", "book", entry.Book, "error", err)
	}
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
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"entries":  h.cache.Len(),
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) book(r *http.Request) string {
	if book := r.URL.Query().Get("book"); book != "" {
		return book
	}
	return h.defaultBook
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps err to its status; server-side failures get a generic
// message.
func (h *Handler) writeErr(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "search failed"
	}
	h.writeError(w, status, message)
}
