// Package reload swaps newly built indexes into a running searcher when the
// indexer announces them on Kafka.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/catalog"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Loader is the part of the catalog a reload needs.
type Loader interface {
	Get(book string) (*catalog.Entry, error)
	LoadKey(ctx context.Context, book, key string) (*catalog.Entry, error)
}

// Invalidator drops cached responses after a swap.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler applies IndexBuilt events. Books outside the served set are
// ignored; an empty set serves every announced book.
type Handler struct {
	books   Loader
	cache   Invalidator
	serve   []string
	timeout time.Duration
	logger  *slog.Logger
}

const defaultLoadTimeout = 30 * time.Second

// New creates a Handler. cache may be nil.
func New(books Loader, cache Invalidator, serve []string) *Handler {
	return &Handler{
		books:   books,
		cache:   cache,
		serve:   serve,
		timeout: defaultLoadTimeout,
		logger:  slog.Default().With("component", "index-reloader"),
	}
}

// WithLoadTimeout bounds each artifact fetch and decode.
func (h *Handler) WithLoadTimeout(d time.Duration) *Handler {
	h.timeout = d
	return h
}

// HandleMessage is a kafka.MessageHandler. Undecodable or foreign events are
// logged and acknowledged; a failed fetch is returned and the message is
// left uncommitted.
func (h *Handler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	if msg.EventType != "" && msg.EventType != indexer.EventIndexBuilt {
		h.logger.Debug("ignoring event", "type", msg.EventType)
		return nil
	}
	event, err := kafka.DecodeJSON[indexer.IndexBuilt](msg.Value)
	if err != nil {
		h.logger.Error("failed to decode build event",
			"error", err,
			"key", string(msg.Key),
		)
		return nil
	}
	return h.Apply(ctx, event)
}

// Apply loads the announced artifact unless the book already serves it.
func (h *Handler) Apply(ctx context.Context, event indexer.IndexBuilt) error {
	if len(h.serve) > 0 && !slices.Contains(h.serve, event.Book) {
		return nil
	}
	if current, err := h.books.Get(event.Book); err == nil && current.Fingerprint == event.Fingerprint {
		h.logger.Debug("index already current", "book", event.Book, "fingerprint", event.Fingerprint)
		return nil
	}
	var entry *catalog.Entry
	err := resilience.WithTimeout(ctx, h.timeout, "load "+event.Book, func(ctx context.Context) error {
		var err error
		entry, err = h.books.LoadKey(ctx, event.Book, event.ArtifactKey)
		return err
	})
	if err != nil {
		return fmt.Errorf("reloading %s build %s: %w", event.Book, event.BuildID, err)
	}
	if h.cache != nil {
		if err := h.cache.Invalidate(ctx); err != nil {
			h.logger.Warn("cache invalidation after reload failed", "book", event.Book, "error", err)
		}
	}
	h.logger.Info("index reloaded",
		"book", event.Book,
		"build_id", event.BuildID,
		"fingerprint", entry.Fingerprint,
		"documents", entry.Bundle.Index.DocumentCount(),
	)
	return nil
}
