package reload

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/fixtures"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

type fakeBooks struct {
	current map[string]*catalog.Entry
	loaded  []string
	err     error
	block   bool
}

func (f *fakeBooks) Get(book string) (*catalog.Entry, error) {
	if e, ok := f.current[book]; ok {
		return e, nil
	}
	return nil, apperrors.ErrBookNotFound
}

func (f *fakeBooks) LoadKey(ctx context.Context, book, key string) (*catalog.Entry, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	f.loaded = append(f.loaded, book+"@"+key)
	return &catalog.Entry{Book: book, Bundle: f.bundle(), Fingerprint: "new"}, nil
}

func (f *fakeBooks) bundle() *index.Bundle {
	bundle, _ := indexer.Build(fixtures.MCing(), indexer.DefaultBuildOptions())
	return bundle
}

type fakeCache struct{ invalidated int }

func (f *fakeCache) Invalidate(context.Context) error {
	f.invalidated++
	return nil
}

func built(book, fingerprint string) indexer.IndexBuilt {
	return indexer.IndexBuilt{
		BuildID:     "b1",
		Book:        book,
		Fingerprint: fingerprint,
		ArtifactKey: book + "/searchindex.json",
	}
}

func message(t *testing.T, eventType string, event any) kafka.Message {
	t.Helper()
	value, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Key: []byte("mcing"), Value: value, EventType: eventType}
}

func TestApplyLoadsNewBuild(t *testing.T) {
	books := &fakeBooks{current: map[string]*catalog.Entry{"mcing": {Fingerprint: "old"}}}
	cache := &fakeCache{}
	h := New(books, cache, nil)

	require.NoError(t, h.Apply(context.Background(), built("mcing", "new")))
	assert.Equal(t, []string{"mcing@mcing/searchindex.json"}, books.loaded)
	assert.Equal(t, 1, cache.invalidated)
}

func TestApplySkipsCurrentFingerprint(t *testing.T) {
	books := &fakeBooks{current: map[string]*catalog.Entry{"mcing": {Fingerprint: "same"}}}
	cache := &fakeCache{}
	h := New(books, cache, nil)

	require.NoError(t, h.Apply(context.Background(), built("mcing", "same")))
	assert.Empty(t, books.loaded)
	assert.Zero(t, cache.invalidated)
}

func TestApplyIgnoresUnservedBooks(t *testing.T) {
	books := &fakeBooks{}
	h := New(books, nil, []string{"mcing"})

	require.NoError(t, h.Apply(context.Background(), built("other", "x")))
	assert.Empty(t, books.loaded)
	require.NoError(t, h.Apply(context.Background(), built("mcing", "x")))
	assert.Len(t, books.loaded, 1)
}

func TestApplyReturnsLoadFailure(t *testing.T) {
	books := &fakeBooks{err: apperrors.ErrMalformedIndex}
	cache := &fakeCache{}
	h := New(books, cache, nil)

	err := h.Apply(context.Background(), built("mcing", "x"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedIndex)
	assert.Zero(t, cache.invalidated)
}

func TestHandleMessageFiltersEvents(t *testing.T) {
	books := &fakeBooks{}
	h := New(books, nil, nil)
	ctx := context.Background()

	require.NoError(t, h.HandleMessage(ctx, message(t, "query.executed", built("mcing", "x"))))
	assert.Empty(t, books.loaded)

	require.NoError(t, h.HandleMessage(ctx, kafka.Message{EventType: indexer.EventIndexBuilt, Value: []byte("{not json")}))
	assert.Empty(t, books.loaded)

	require.NoError(t, h.HandleMessage(ctx, message(t, indexer.EventIndexBuilt, built("mcing", "x"))))
	assert.Len(t, books.loaded, 1)

	// messages without a type header are treated as builds
	require.NoError(t, h.HandleMessage(ctx, message(t, "", built("mcing", "y"))))
	assert.Len(t, books.loaded, 2)
}

func TestApplyTimesOutSlowLoads(t *testing.T) {
	cache := &fakeCache{}
	h := New(&fakeBooks{block: true}, cache, nil).WithLoadTimeout(10 * time.Millisecond)

	err := h.Apply(context.Background(), built("mcing", "x"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, cache.invalidated)
}
