package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "catalog_scraper"

// Fetch attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeTerminal  = "terminal"
	OutcomeNetwork   = "network"
)

// Metrics holds the run counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	FetchAttempts      *prometheus.CounterVec
	FetchRetries       prometheus.Counter
	Pages              *prometheus.CounterVec
	ProductsExtracted  prometheus.Counter
	ExtractionFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		FetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "HTTP fetch attempts by outcome",
			},
			[]string{"outcome"},
		),
		FetchRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_retries_total",
				Help:      "Retries scheduled after transient failures",
			},
		),
		Pages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_total",
				Help:      "Pages processed by kind",
			},
			[]string{"kind"},
		),
		ProductsExtracted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "products_extracted_total",
				Help:      "Product records extracted",
			},
		),
		ExtractionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_failures_total",
				Help:      "Product pages that yielded no record",
			},
		),
	}

	m.Registry.MustRegister(
		m.FetchAttempts,
		m.FetchRetries,
		m.Pages,
		m.ProductsExtracted,
		m.ExtractionFailures,
		collectors.NewGoCollector(),
	)

	return m
}

func (m *Metrics) ObserveAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.FetchRetries.Inc()
}

func (m *Metrics) ObservePage(kind string) {
	if m == nil {
		return
	}
	m.Pages.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveProduct() {
	if m == nil {
		return
	}
	m.ProductsExtracted.Inc()
}

func (m *Metrics) ObserveExtractionFailure() {
	if m == nil {
		return
	}
	m.ExtractionFailures.Inc()
}
