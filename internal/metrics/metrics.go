// Package metrics holds the Prometheus collectors for validation, regeneration
// and card lookups.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the upgrade advisor.
//
// Metrics:
//   - upgrade_validations_total{outcome} - validations by valid/invalid
//   - upgrade_issues_total{kind} - rejected blocks by issue kind
//   - upgrade_blocks_extracted - histogram of blocks per response
//   - upgrade_regenerations_total - corrective second passes requested
//   - upgrade_completions_total{provider,status} - LLM completion calls
//   - upgrade_completion_duration_seconds{provider} - LLM latency
//   - card_lookup_cache_total{tier,result} - identity cache hits, stale hits and misses
//   - card_lookup_fetch_duration_seconds - Scryfall batch fetch latency
//   - upgrade_tables_reloads_total{status} - strictly-worse table reloads
type Metrics struct {
	ValidationsTotal   *prometheus.CounterVec
	IssuesTotal        *prometheus.CounterVec
	BlocksExtracted    prometheus.Histogram
	RegenerationsTotal prometheus.Counter

	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec

	LookupCacheTotal    *prometheus.CounterVec
	LookupFetchDuration prometheus.Histogram

	TablesReloadsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg registers
// with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upgrade_validations_total",
				Help: "Total number of recommendation validations",
			},
			[]string{"outcome"}, // "valid" or "invalid"
		),
		IssuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upgrade_issues_total",
				Help: "Total number of rejected upgrade blocks by issue kind",
			},
			[]string{"kind"},
		),
		BlocksExtracted: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "upgrade_blocks_extracted",
				Help:    "Number of upgrade blocks extracted per response",
				Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21},
			},
		),
		RegenerationsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "upgrade_regenerations_total",
				Help: "Total number of corrective regeneration passes",
			},
		),
		CompletionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upgrade_completions_total",
				Help: "Total number of LLM completion calls",
			},
			[]string{"provider", "status"},
		),
		CompletionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upgrade_completion_duration_seconds",
				Help:    "Duration of LLM completion calls in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		LookupCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "card_lookup_cache_total",
				Help: "Card identity cache lookups by tier and result",
			},
			[]string{"tier", "result"}, // result: "hit", "stale" or "miss"
		),
		LookupFetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "card_lookup_fetch_duration_seconds",
				Help:    "Duration of Scryfall batch fetches in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		TablesReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upgrade_tables_reloads_total",
				Help: "Strictly-worse table reloads by status",
			},
			[]string{"status"}, // "ok" or "error"
		),
	}
}

// ObserveValidation records one validation result.
func (m *Metrics) ObserveValidation(valid bool, blocks int, issueKinds []string) {
	if m == nil {
		return
	}
	outcome := "invalid"
	if valid {
		outcome = "valid"
	}
	m.ValidationsTotal.WithLabelValues(outcome).Inc()
	m.BlocksExtracted.Observe(float64(blocks))
	for _, kind := range issueKinds {
		m.IssuesTotal.WithLabelValues(kind).Inc()
	}
}

// ObserveCompletion records one LLM call.
func (m *Metrics) ObserveCompletion(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CompletionsTotal.WithLabelValues(provider, status).Inc()
	m.CompletionDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// IncRegeneration records a corrective second pass.
func (m *Metrics) IncRegeneration() {
	if m == nil {
		return
	}
	m.RegenerationsTotal.Inc()
}

// AddLookups records n cache results for a tier.
func (m *Metrics) AddLookups(tier, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.LookupCacheTotal.WithLabelValues(tier, result).Add(float64(n))
}

// ObserveFetch records the latency of a Scryfall batch fetch.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.LookupFetchDuration.Observe(d.Seconds())
}

// ObserveTablesReload records a table reload attempt.
func (m *Metrics) ObserveTablesReload(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.TablesReloadsTotal.WithLabelValues(status).Inc()
}
