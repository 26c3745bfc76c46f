// Package analytics tracks what readers search for: the searcher reports
// every query to a Collector, which publishes batches to Kafka, and an
// Aggregator turns the event stream into top and zero-result queries.
package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventZeroResult EventType = "zero_result"
)

type SearchEvent struct {
	Type        EventType `json:"type"`
	Book        string    `json:"book"`
	Query       string    `json:"query"`
	Terms       []string  `json:"terms"`
	Total       int       `json:"total"`
	Returned    int       `json:"returned"`
	LatencyMs   int64     `json:"latency_ms"`
	CacheStatus string    `json:"cache_status"`
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id"`
}

// CacheHit reports whether the response came from either cache tier.
func (e SearchEvent) CacheHit() bool {
	return e.CacheStatus != "" && e.CacheStatus != "miss"
}
