// Package metrics provides Prometheus metrics for the PokeBinder backend.
// Scrape these at /metrics for Grafana dashboards and alerting.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pokebinder_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Search Metrics
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_search_requests_total",
			Help: "Search requests by scope and mode",
		},
		[]string{"scope", "mode"}, // scope: "cards" or "sets", mode: "query", "recent", "set_cards"
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_cache_hits_total",
			Help: "Result cache hits by tier",
		},
		[]string{"tier"}, // "memory" or "disk"
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokebinder_cache_misses_total",
			Help: "Result cache misses",
		},
	)

	CacheErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_cache_errors_total",
			Help: "Cache failures that degraded to a live fetch",
		},
		[]string{"op"}, // "get" or "set"
	)

	// Catalog API Metrics
	CatalogRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_catalog_requests_total",
			Help: "Requests made to the external card catalog",
		},
		[]string{"endpoint", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pokebinder_catalog_request_duration_seconds",
			Help:    "Catalog API call latency",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	CatalogParseErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokebinder_catalog_parse_errors_total",
			Help: "Catalog response rows rejected by schema validation",
		},
	)

	// Binder Metrics
	BinderPageSavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokebinder_binder_page_saves_total",
			Help: "Binder pages written (dirty pages only)",
		},
	)

	BinderCardsPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokebinder_binder_cards_placed_total",
			Help: "Cards placed into binder slots",
		},
	)

	// Ingest Metrics
	IngestRowsUpsertedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_ingest_rows_upserted_total",
			Help: "Rows upserted by the catalog ingest job",
		},
		[]string{"table"}, // "cards" or "expansions"
	)

	IngestRowsSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokebinder_ingest_rows_skipped_total",
			Help: "Rows skipped by the catalog ingest job",
		},
		[]string{"reason"}, // "online_only" or "invalid"
	)
)
