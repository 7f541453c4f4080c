package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	providerFetches *prometheus.CounterVec
	circuitOpens    *prometheus.CounterVec
	cacheFallbacks  *prometheus.CounterVec
	verdicts        *prometheus.CounterVec
	scanDuration    *prometheus.HistogramVec
	lastPrice       *prometheus.GaugeVec
}

// New creates a Prometheus metrics recorder on the default registry.
func New() *Recorder {
	return &Recorder{
		providerFetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalper_provider_fetches_total",
				Help: "Candle fetch attempts per provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		circuitOpens: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalper_circuit_opens_total",
				Help: "Times a provider was auto-disabled after consecutive failures",
			},
			[]string{"provider"},
		),
		cacheFallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalper_cache_fallbacks_total",
				Help: "Fetches served from the source cache after provider exhaustion",
			},
			[]string{"symbol"},
		),
		verdicts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scalper_signal_verdicts_total",
				Help: "Quality filter verdicts per symbol, outcome and rejection reason",
			},
			[]string{"symbol", "outcome", "reason"},
		),
		scanDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scalper_scan_duration_seconds",
				Help:    "Duration of one full scan iteration per symbol",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"symbol"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scalper_last_price",
				Help: "Last observed close price per symbol",
			},
			[]string{"symbol"},
		),
	}
}

func (r *Recorder) RecordProviderFetch(provider, outcome string) {
	r.providerFetches.WithLabelValues(provider, outcome).Inc()
}

func (r *Recorder) RecordCircuitOpen(provider string) {
	r.circuitOpens.WithLabelValues(provider).Inc()
}

func (r *Recorder) RecordCacheFallback(symbol string) {
	r.cacheFallbacks.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordVerdict(symbol, outcome, reason string) {
	r.verdicts.WithLabelValues(symbol, outcome, reason).Inc()
}

func (r *Recorder) RecordScanDuration(symbol string, seconds float64) {
	r.scanDuration.WithLabelValues(symbol).Observe(seconds)
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
