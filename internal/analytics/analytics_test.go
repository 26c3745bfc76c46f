package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

func event(query string, total int, cache string, latency int64) SearchEvent {
	eventType := EventSearch
	if total == 0 {
		eventType = EventZeroResult
	}
	return SearchEvent{
		Type:        eventType,
		Book:        "mcing",
		Query:       query,
		Total:       total,
		LatencyMs:   latency,
		CacheStatus: cache,
		Timestamp:   time.Now(),
	}
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator(2)
	agg.Record(event("Custom", 3, "miss", 10))
	agg.Record(event("custom", 3, "local", 20))
	agg.Record(event("minecraft", 2, "redis", 30))
	agg.Record(event("minecrat", 0, "miss", 40))
	agg.Record(event("kubernetes", 1, "miss", 50))

	stats := agg.Stats()
	assert.Equal(t, int64(5), stats.TotalSearches)
	assert.Equal(t, int64(2), stats.CacheHits)
	assert.Equal(t, int64(3), stats.CacheMisses)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, 30.0, stats.AvgLatencyMs)
	assert.Equal(t, int64(30), stats.P50LatencyMs)
	assert.Equal(t, int64(50), stats.P99LatencyMs)
	assert.Equal(t, []QueryCount{{"custom", 2}, {"kubernetes", 1}}, stats.TopQueries)
	assert.Equal(t, []QueryCount{{"minecrat", 1}}, stats.ZeroResultQueries)
	assert.Equal(t, map[string]int64{"mcing": 5}, stats.SearchesByBook)
}

func TestAggregatorLatencyRing(t *testing.T) {
	agg := NewAggregator(10)
	for i := range maxLatencySamples + 5 {
		agg.Record(event("q", 1, "miss", int64(i)))
	}
	agg.mu.RLock()
	defer agg.mu.RUnlock()
	assert.Len(t, agg.latencies, maxLatencySamples)
	assert.Equal(t, int64(maxLatencySamples), agg.latencies[0])
	assert.Equal(t, 5, agg.next)
}

func TestHandleEvent(t *testing.T) {
	agg := NewAggregator(10)
	handle := HandleEvent(agg)

	value, err := json.Marshal(event("custom", 3, "miss", 5))
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), kafka.Message{Value: value}))
	require.NoError(t, handle(context.Background(), kafka.Message{Value: []byte("garbage")}))

	assert.Equal(t, int64(1), agg.Stats().TotalSearches)
}

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
}

func (f *fakePublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, append([]kafka.Event(nil), events...))
	return nil
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestCollectorBatchesAndDrains(t *testing.T) {
	pub := &fakePublisher{}
	agg := NewAggregator(10)
	c := NewCollector(pub, agg, 100, 2, time.Hour)
	c.Start(context.Background())

	for _, q := range []string{"a", "b", "c"} {
		c.Track(event(q, 1, "miss", 1))
	}
	assert.Eventually(t, func() bool { return pub.count() >= 2 }, time.Second, 10*time.Millisecond)

	c.Close()
	assert.Equal(t, 3, pub.count())
	assert.Equal(t, int64(3), agg.Stats().TotalSearches)

	first := pub.batches[0][0]
	assert.Equal(t, "mcing", first.Key)
	assert.Equal(t, string(EventSearch), first.Type)
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	pub := &fakePublisher{}
	c := NewCollector(pub, nil, 100, 50, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(event("a", 1, "miss", 1))
	cancel()
	<-c.done
	assert.Equal(t, 1, pub.count())
}

func TestCollectorWithoutPublisherOnlyRecords(t *testing.T) {
	agg := NewAggregator(10)
	c := NewCollector(nil, agg, 1, 1, 0)
	for range 3 {
		c.Track(event("a", 1, "miss", 1))
	}
	assert.Equal(t, int64(3), agg.Stats().TotalSearches)
	assert.Empty(t, c.eventCh)
}

func TestStatsHandler(t *testing.T) {
	agg := NewAggregator(10)
	agg.Record(event("custom", 3, "miss", 1))
	agg.Record(event("minecraft", 2, "miss", 1))
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Len(t, stats.TopQueries, 1)

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics?top=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
