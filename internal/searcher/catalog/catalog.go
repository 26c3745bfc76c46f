// Package catalog holds the search index of every book the searcher serves.
// Entries are immutable; a reload swaps in a new entry so queries running
// against the old one finish undisturbed.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/artifact"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// Entry is one loaded book.
type Entry struct {
	Book        string
	Bundle      *index.Bundle
	Fingerprint string
	LoadedAt    time.Time
	encoded     map[artifact.Format][]byte
}

// Artifact returns the index re-encoded in format f for the browser widget.
func (e *Entry) Artifact(f artifact.Format) ([]byte, bool) {
	data, ok := e.encoded[f]
	return data, ok
}

// Status describes a book for listings.
type Status struct {
	Book        string    `json:"book"`
	Available   bool      `json:"available"`
	Documents   int       `json:"documents"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitzero"`
	Error       string    `json:"error,omitempty"`
}

// Catalog maps book names to entries.
type Catalog struct {
	store   artifact.Store
	name    string
	metrics *metrics.Metrics
	mu      sync.RWMutex
	books   map[string]*Entry
	failed  map[string]error
	logger  *slog.Logger
}

// New creates an empty catalog reading artifact name of each book from
// store. store may be nil when entries are only ever added with Put.
func New(store artifact.Store, name string, m *metrics.Metrics) *Catalog {
	return &Catalog{
		store:   store,
		name:    name,
		metrics: m,
		books:   make(map[string]*Entry),
		failed:  make(map[string]error),
		logger:  slog.Default().With("component", "catalog"),
	}
}

// Load fetches the book's artifact from the store and swaps it in.
func (c *Catalog) Load(ctx context.Context, book string) (*Entry, error) {
	if c.store == nil {
		return nil, fmt.Errorf("%w: no artifact store configured", apperrors.ErrIndexUnavailable)
	}
	return c.LoadKey(ctx, book, artifact.Key(book, c.name))
}

// LoadKey is Load with an explicit storage key.
func (c *Catalog) LoadKey(ctx context.Context, book, key string) (*Entry, error) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		c.fail(book, err)
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	return c.Put(book, data)
}

// Put decodes data and makes it the book's current index. On failure the
// previous index stays in place; a book that never loaded is marked
// unavailable.
func (c *Catalog) Put(book string, data []byte) (*Entry, error) {
	fingerprint := artifact.Fingerprint(data)
	if current := c.current(book); current != nil && current.Fingerprint == fingerprint {
		return current, nil
	}

	bundle, err := artifact.Decode(data)
	if err != nil {
		c.fail(book, err)
		return nil, fmt.Errorf("decoding index of %s: %w", book, err)
	}
	entry := &Entry{
		Book:        book,
		Bundle:      bundle,
		Fingerprint: fingerprint,
		LoadedAt:    time.Now().UTC(),
		encoded:     make(map[artifact.Format][]byte, 2),
	}
	for _, f := range []artifact.Format{artifact.FormatJS, artifact.FormatJSON} {
		encoded, err := artifact.Encode(bundle, f)
		if err != nil {
			c.fail(book, err)
			return nil, fmt.Errorf("encoding %s index of %s: %w", f, book, err)
		}
		entry.encoded[f] = encoded
	}

	c.mu.Lock()
	c.books[book] = entry
	delete(c.failed, book)
	loaded := len(c.books)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IndexReloadsTotal.WithLabelValues(book, "success").Inc()
		c.metrics.LoadedBooks.Set(float64(loaded))
		c.metrics.DocsIndexed.WithLabelValues(book).Set(float64(bundle.Index.DocumentCount()))
	}
	c.logger.Info("book loaded",
		"book", book,
		"documents", bundle.Index.DocumentCount(),
		"fingerprint", fingerprint,
	)
	return entry, nil
}

func (c *Catalog) fail(book string, err error) {
	c.mu.Lock()
	_, hasEntry := c.books[book]
	if !hasEntry {
		c.failed[book] = err
	}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.IndexReloadsTotal.WithLabelValues(book, "failure").Inc()
	}
	if hasEntry {
		c.logger.Warn("reload failed, keeping current index", "book", book, "error", err)
	} else {
		c.logger.Error("book unavailable", "book", book, "error", err)
	}
}

func (c *Catalog) current(book string) *Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.books[book]
}

// LoadAll loads books concurrently. Every book is attempted; the joined
// error lists the ones that failed.
func (c *Catalog) LoadAll(ctx context.Context, books []string) error {
	errs := make([]error, len(books))
	var g errgroup.Group
	g.SetLimit(4)
	for i, book := range books {
		g.Go(func() error {
			_, errs[i] = c.Load(ctx, book)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Get returns the current entry of book.
func (c *Catalog) Get(book string) (*Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if entry, ok := c.books[book]; ok {
		return entry, nil
	}
	if err, ok := c.failed[book]; ok {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrIndexUnavailable, book, err)
	}
	return nil, fmt.Errorf("%w: %s", apperrors.ErrBookNotFound, book)
}

// Remove drops book from the catalog.
func (c *Catalog) Remove(book string) {
	c.mu.Lock()
	delete(c.books, book)
	delete(c.failed, book)
	loaded := len(c.books)
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.LoadedBooks.Set(float64(loaded))
	}
}

// Books lists every known book, loaded or failed, by name.
func (c *Catalog) Books() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Status, 0, len(c.books)+len(c.failed))
	for name, e := range c.books {
		out = append(out, Status{
			Book:        name,
			Available:   true,
			Documents:   e.Bundle.Index.DocumentCount(),
			Fingerprint: e.Fingerprint,
			LoadedAt:    e.LoadedAt,
		})
	}
	for name, err := range c.failed {
		out = append(out, Status{Book: name, Error: err.Error()})
	}
	slices.SortFunc(out, func(a, b Status) int { return strings.Compare(a.Book, b.Book) })
	return out
}

// Len is the number of available books.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}

// Reload reloads every book currently known to the catalog.
func (c *Catalog) Reload(ctx context.Context) error {
	c.mu.RLock()
	books := make([]string, 0, len(c.books)+len(c.failed))
	for name := range c.books {
		books = append(books, name)
	}
	for name := range c.failed {
		books = append(books, name)
	}
	c.mu.RUnlock()
	return c.LoadAll(ctx, books)
}
