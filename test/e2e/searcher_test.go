//go:build e2e

// Package e2e runs against a deployed stack: indexer, searcher and
// analytics with Kafka, PostgreSQL and Redis. The searcher must serve at
// least one built book.
//
// Run with:
//
//	go test -v -tags=e2e -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"
)

type e2eConfig struct {
	SearcherURL  string
	AnalyticsURL string
	Query        string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		SearcherURL:  envOrDefault("E2E_SEARCHER_URL", "http://localhost:8080"),
		AnalyticsURL: envOrDefault("E2E_ANALYTICS_URL", "http://localhost:8083"),
		Query:        envOrDefault("E2E_QUERY", "minecraft"),
	}
}

type bookStatus struct {
	Book      string `json:"book"`
	Available bool   `json:"available"`
	Documents int    `json:"documents"`
}

// firstBook returns an available book or skips the test.
func firstBook(t *testing.T, client *http.Client, cfg e2eConfig) bookStatus {
	t.Helper()
	resp, err := client.Get(cfg.SearcherURL + "/api/v1/books")
	if err != nil {
		t.Skipf("searcher unavailable: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Books []bookStatus `json:"books"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding books: %v", err)
	}
	for _, b := range body.Books {
		if b.Available {
			return b
		}
	}
	t.Skip("searcher has no available book")
	return bookStatus{}
}

func TestSearcherHealth(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	for _, path := range []string{"/health/live", "/health/ready"} {
		t.Run(path, func(t *testing.T) {
			resp, err := client.Get(cfg.SearcherURL + path)
			if err != nil {
				t.Skipf("searcher unavailable: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestSearchRepeatsFromCache issues the same query twice. The second answer
// must match the first and, when caching is on, come from a cache tier.
func TestSearchRepeatsFromCache(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}
	book := firstBook(t, client, cfg)

	target := cfg.SearcherURL + "/api/v1/search?" + url.Values{
		"q":    {cfg.Query},
		"book": {book.Book},
	}.Encode()

	type searchResponse struct {
		Total   int `json:"total"`
		Results []struct {
			Ref    string `json:"ref"`
			URL    string `json:"url"`
			Teaser string `json:"teaser"`
		} `json:"results"`
	}

	var first, second searchResponse
	var statuses []string
	for _, out := range []*searchResponse{&first, &second} {
		resp, err := client.Get(target)
		if err != nil {
			t.Fatalf("search request failed: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding search: %v", err)
		}
		resp.Body.Close()
		statuses = append(statuses, resp.Header.Get("X-Cache"))
	}

	if first.Total != second.Total || len(first.Results) != len(second.Results) {
		t.Fatalf("repeated query differs: %d/%d vs %d/%d",
			first.Total, len(first.Results), second.Total, len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i].Ref != second.Results[i].Ref {
			t.Errorf("result %d: %s vs %s", i, first.Results[i].Ref, second.Results[i].Ref)
		}
	}
	if first.Total > 0 && !strings.Contains(first.Results[0].Teaser, "<em>") {
		t.Errorf("top teaser has no highlight: %q", first.Results[0].Teaser)
	}
	if statuses[1] == "miss" {
		t.Errorf("second query missed the cache, X-Cache=%v", statuses)
	}
	t.Logf("book=%s total=%d x-cache=%v", book.Book, first.Total, statuses)
}

func TestArtifactConditionalGet(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}
	book := firstBook(t, client, cfg)

	target := cfg.SearcherURL + "/api/v1/books/" + book.Book + "/searchindex.js"
	resp, err := client.Get(target)
	if err != nil {
		t.Fatalf("artifact request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	if !strings.HasPrefix(string(body), "Object.assign(window.search, ") {
		t.Errorf("artifact is not a searchindex.js script")
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		t.Fatal("artifact has no ETag")
	}
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("If-None-Match", etag)
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("conditional request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotModified {
		t.Errorf("expected 304, got %d", resp.StatusCode)
	}
}

// TestSearchAnalytics checks that a query reaches the searcher's local
// aggregator and, when the analytics service runs, the Kafka pipeline.
func TestSearchAnalytics(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(cfg.SearcherURL + "/api/v1/search?q=" + url.QueryEscape(cfg.Query))
	if err != nil {
		t.Skipf("searcher unavailable: %v", err)
	}
	resp.Body.Close()

	for _, base := range []string{cfg.SearcherURL, cfg.AnalyticsURL} {
		t.Run(base, func(t *testing.T) {
			var total float64
			for attempt := 0; attempt < 10; attempt++ {
				resp, err := client.Get(base + "/api/v1/analytics")
				if err != nil {
					t.Skipf("analytics endpoint unavailable: %v", err)
				}
				var stats map[string]any
				json.NewDecoder(resp.Body).Decode(&stats)
				resp.Body.Close()
				total, _ = stats["total_searches"].(float64)
				if total >= 1 {
					return
				}
				time.Sleep(time.Second)
			}
			t.Errorf("expected at least 1 search recorded, got %v", total)
		})
	}
}

func TestSearchCacheStats(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(cfg.SearcherURL + "/api/v1/cache/stats")
	if err != nil {
		t.Skipf("searcher unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var stats map[string]any
	json.NewDecoder(resp.Body).Decode(&stats)
	if stats["status"] == "disabled" {
		t.Skip("cache is disabled")
	}
	for _, field := range []string{"hits", "misses", "total", "entries", "hit_rate"} {
		if _, ok := stats[field]; !ok {
			t.Errorf("missing expected field: %s", field)
		}
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
