package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/index"
)

type loadOptions struct {
	baseURL     string
	book        string
	indexPath   string
	queries     []string
	concurrency int
	duration    time.Duration
	limit       int
}

// loadStats accumulates what the workers observe.
type loadStats struct {
	total     atomic.Int64
	errors    atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	codes     map[int]int64
	cache     map[string]int64
}

func newLoadStats() *loadStats {
	return &loadStats{
		latencies: make([]time.Duration, 0, 4096),
		codes:     make(map[int]int64),
		cache:     make(map[string]int64),
	}
}

func (s *loadStats) record(d time.Duration, code int, cacheStatus string, err error) {
	s.total.Add(1)
	if err != nil || code < 200 || code >= 300 {
		s.errors.Add(1)
	}
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latencies = append(s.latencies, d)
	s.codes[code]++
	if cacheStatus != "" {
		s.cache[cacheStatus]++
	}
}

func newLoadtestCmd() *cobra.Command {
	opts := &loadOptions{}
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Send concurrent search requests to a running search service",
		Long: `loadtest replays queries against /api/v1/search and reports latency
percentiles, status codes and which cache tier answered. Queries come from
--query flags, or from the section titles of a built index with --index.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := opts.loadQueries()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "target %s, %d workers, %s, %d queries\n", opts.baseURL, opts.concurrency, opts.duration, len(queries))

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.duration)
			defer cancel()
			start := time.Now()
			stats := runLoad(ctx, &http.Client{Timeout: 10 * time.Second}, opts, queries)
			report(w, stats, time.Since(start))
			if stats.total.Load() == 0 {
				return errors.New("no requests completed, is the service running?")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "search service base URL")
	cmd.Flags().StringVar(&opts.book, "book", "", "book to query (service default when empty)")
	cmd.Flags().StringVarP(&opts.indexPath, "index", "i", "", "take queries from the titles of this index")
	cmd.Flags().StringArrayVarP(&opts.queries, "query", "q", nil, "query to send (repeatable)")
	cmd.Flags().IntVarP(&opts.concurrency, "concurrency", "c", 10, "concurrent workers")
	cmd.Flags().DurationVarP(&opts.duration, "duration", "d", 30*time.Second, "test duration")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "results per query")
	return cmd
}

func (o *loadOptions) loadQueries() ([]string, error) {
	queries := slices.Clone(o.queries)
	if o.indexPath != "" {
		bundle, _, err := readIndex(o.indexPath)
		if err != nil {
			return nil, err
		}
		store := bundle.Index.Store()
		for _, ref := range store.Refs() {
			if title := strings.TrimSpace(store.Field(ref, index.FieldTitle)); title != "" {
				queries = append(queries, title)
			}
		}
	}
	if len(queries) == 0 {
		return nil, errors.New("no queries: pass --query or --index")
	}
	return queries, nil
}

func (o *loadOptions) searchURL(query string) string {
	params := url.Values{"q": {query}, "limit": {fmt.Sprint(o.limit)}}
	if o.book != "" {
		params.Set("book", o.book)
	}
	return strings.TrimRight(o.baseURL, "/") + "/api/v1/search?" + params.Encode()
}

// runLoad cycles each worker through queries, offset by its id, until ctx
// is done.
func runLoad(ctx context.Context, client *http.Client, opts *loadOptions, queries []string) *loadStats {
	stats := newLoadStats()
	var wg sync.WaitGroup
	for worker := range max(opts.concurrency, 1) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := worker; ctx.Err() == nil; i++ {
				req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.searchURL(queries[i%len(queries)]), nil)
				if err != nil {
					stats.record(0, 0, "", err)
					return
				}
				start := time.Now()
				resp, err := client.Do(req)
				if err != nil {
					if ctx.Err() == nil {
						stats.record(time.Since(start), 0, "", err)
					}
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.record(time.Since(start), resp.StatusCode, resp.Header.Get("X-Cache"), nil)
			}
		}()
	}
	wg.Wait()
	return stats
}

func report(w io.Writer, stats *loadStats, elapsed time.Duration) {
	total := stats.total.Load()
	errs := stats.errors.Load()
	fmt.Fprintf(w, "\nrequests  %d\nerrors    %d\n", total, errs)
	if total > 0 {
		fmt.Fprintf(w, "error %%   %.2f\nreq/s     %.1f\n",
			float64(errs)/float64(total)*100, float64(total)/elapsed.Seconds())
	}

	stats.mu.Lock()
	defer stats.mu.Unlock()
	if len(stats.latencies) > 0 {
		sorted := slices.Clone(stats.latencies)
		slices.Sort(sorted)
		fmt.Fprintf(w, "\nlatency   min %s  p50 %s  p95 %s  p99 %s  max %s\n",
			sorted[0], percentile(sorted, 50), percentile(sorted, 95), percentile(sorted, 99), sorted[len(sorted)-1])
	}
	if len(stats.codes) > 0 {
		fmt.Fprintln(w, "\nstatus codes")
		for _, code := range slices.Sorted(maps.Keys(stats.codes)) {
			fmt.Fprintf(w, "  %d  %d\n", code, stats.codes[code])
		}
	}
	if len(stats.cache) > 0 {
		fmt.Fprintln(w, "\ncache")
		for _, status := range slices.Sorted(maps.Keys(stats.cache)) {
			fmt.Fprintf(w, "  %-6s %d\n", status, stats.cache[status])
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
