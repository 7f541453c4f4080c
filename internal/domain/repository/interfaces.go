package repository

import (
	"context"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
)

// CandleProvider is one data vendor. Implementations are stateless per call;
// rate limiting and request timeouts live inside the adapter.
type CandleProvider interface {
	Name() string
	Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error)
}

// IndicatorCalculator augments a fetched series with indicator columns.
// Missing columns on the output are allowed and mean "not computable".
type IndicatorCalculator interface {
	Enrich(series *models.Series) error
}

// Strategy inspects an enriched series and optionally produces a candidate
// signal. A nil signal with a nil error means "no setup here".
type Strategy interface {
	Name() string
	Evaluate(ctx context.Context, series *models.Series) (*models.Signal, error)
}

// Notifier delivers an accepted signal. Delivery is at-least-once
// best-effort; duplicate suppression happens upstream in the quality filter.
type Notifier interface {
	Notify(ctx context.Context, signal *models.Signal, verdict models.Verdict) error
}

// Metrics is the observability sink used across the pipeline.
type Metrics interface {
	RecordProviderFetch(provider, outcome string)
	RecordCircuitOpen(provider string)
	RecordCacheFallback(symbol string)
	RecordVerdict(symbol, outcome, reason string)
	RecordScanDuration(symbol string, seconds float64)
	RecordLastPrice(symbol string, price float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordProviderFetch(string, string)   {}
func (NopMetrics) RecordCircuitOpen(string)             {}
func (NopMetrics) RecordCacheFallback(string)           {}
func (NopMetrics) RecordVerdict(string, string, string) {}
func (NopMetrics) RecordScanDuration(string, float64)   {}
func (NopMetrics) RecordLastPrice(string, float64)      {}

var _ Metrics = NopMetrics{}
