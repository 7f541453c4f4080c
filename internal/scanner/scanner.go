package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/predeshen/telegramscalperbot-sub001/internal/analytics"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/internal/quality"
	"github.com/predeshen/telegramscalperbot-sub001/internal/source"
	"github.com/predeshen/telegramscalperbot-sub001/internal/strategy"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

// Options configures the polling loop.
type Options struct {
	Symbols           []string
	Timeframe         models.Timeframe
	CandleLimit       int
	PollInterval      time.Duration
	ValidateFreshness bool
}

// Scanner runs one polling loop per symbol. Within one iteration the fetch,
// enrichment, orchestration, strategy execution and quality filtering are
// strictly sequential; symbols are independent of each other.
type Scanner struct {
	opts         Options
	src          *source.UnifiedSource
	indicators   repository.IndicatorCalculator
	orchestrator *analytics.Orchestrator
	registry     *strategy.Registry
	filter       *quality.Filter
	notifier     repository.Notifier
	metrics      repository.Metrics
	log          *logger.Logger
}

func New(
	opts Options,
	src *source.UnifiedSource,
	indicators repository.IndicatorCalculator,
	orchestrator *analytics.Orchestrator,
	registry *strategy.Registry,
	filter *quality.Filter,
	notifier repository.Notifier,
	metrics repository.Metrics,
	log *logger.Logger,
) *Scanner {
	if metrics == nil {
		metrics = repository.NopMetrics{}
	}
	return &Scanner{
		opts:         opts,
		src:          src,
		indicators:   indicators,
		orchestrator: orchestrator,
		registry:     registry,
		filter:       filter,
		notifier:     notifier,
		metrics:      metrics,
		log:          log.Named("scanner"),
	}
}

// Run blocks until the context is cancelled, scanning every symbol on the
// configured cadence.
func (s *Scanner) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, symbol := range s.opts.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			s.loop(ctx, symbol)
		}(symbol)
	}
	wg.Wait()
}

func (s *Scanner) loop(ctx context.Context, symbol string) {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.ScanOnce(ctx, symbol)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.ScanOnce(ctx, symbol)
		}
	}
}

// ScanOnce runs one full iteration for a symbol. One tick failing to get
// usable data logs and produces no signal; it never halts other symbols.
func (s *Scanner) ScanOnce(ctx context.Context, symbol string) {
	started := time.Now()
	defer func() {
		s.metrics.RecordScanDuration(symbol, time.Since(started).Seconds())
	}()

	res, err := s.src.Fetch(ctx, symbol, s.opts.Timeframe, s.opts.CandleLimit, s.opts.ValidateFreshness)
	if err != nil {
		if errors.Is(err, source.ErrAllSourcesExhausted) {
			s.log.Warn("no data this tick", logger.String("symbol", symbol), logger.Error(err))
		} else {
			s.log.Error("fetch failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return
	}
	if !res.Fresh {
		s.log.Warn("stale data, skipping tick",
			logger.String("symbol", symbol),
			logger.Bool("from_cache", res.FromCache))
		return
	}

	series := res.Series
	if last, ok := series.Last(); ok {
		s.metrics.RecordLastPrice(symbol, last.Close)
	}

	if err := s.indicators.Enrich(series); err != nil {
		s.log.Error("indicator enrichment failed", logger.String("symbol", symbol), logger.Error(err))
		return
	}

	cond := analytics.ClassifyRegime(series)
	names := s.orchestrator.SelectStrategies(cond)
	s.log.Debug("scan pass",
		logger.String("symbol", symbol),
		logger.Float64("trend_strength", cond.TrendStrength),
		logger.Float64("volatility_ratio", cond.VolatilityRatio),
		logger.Strings("strategies", names))

	batch := s.runStrategies(ctx, names, series, cond)
	if len(batch) == 0 {
		return
	}

	if analytics.HasConflict(batch) {
		// Conflicting LONG and SHORT candidates in one pass: drop the whole
		// batch for this tick rather than pick a side.
		s.log.Warn("conflicting signals, dropping batch",
			logger.String("symbol", symbol),
			logger.Int("signals", len(batch)))
		return
	}

	for _, sig := range batch {
		verdict := s.filter.Evaluate(sig, series)
		if !verdict.Passed {
			s.metrics.RecordVerdict(symbol, "rejected", rejectionLabel(verdict.RejectionReason))
			s.log.Debug("signal rejected",
				logger.String("symbol", symbol),
				logger.String("strategy", sig.Strategy),
				logger.String("reason", verdict.RejectionReason))
			continue
		}
		s.metrics.RecordVerdict(symbol, "accepted", "")

		if err := s.notifier.Notify(ctx, sig, verdict); err != nil {
			s.log.Error("notify failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
}

// runStrategies executes the ordered strategy list and applies the regime
// confidence multiplier to each produced signal.
func (s *Scanner) runStrategies(ctx context.Context, names []string, series *models.Series, cond models.MarketConditions) []*models.Signal {
	var batch []*models.Signal
	for _, name := range names {
		impl, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		sig, err := impl.Evaluate(ctx, series)
		if err != nil {
			s.log.Error("strategy failed",
				logger.String("symbol", series.Symbol),
				logger.String("strategy", name),
				logger.Error(err))
			continue
		}
		if sig == nil {
			continue
		}

		if desc, ok := s.registry.Describe(name); ok {
			multiplier := s.orchestrator.ConfidenceMultiplier(desc.Family, cond)
			boosted := *sig
			boosted.Confidence = analytics.ApplyMultiplier(sig.Confidence, multiplier)
			sig = &boosted
		}
		batch = append(batch, sig)
	}
	return batch
}

// rejectionLabel maps free-form rejection text onto a low-cardinality
// metrics label.
func rejectionLabel(reason string) string {
	switch {
	case reason == "":
		return ""
	case strings.Contains(reason, "risk/reward"):
		return "risk_reward"
	case strings.Contains(reason, "confluence"):
		return "confluence"
	case strings.Contains(reason, "confidence"):
		return "confidence"
	case strings.Contains(reason, "duplicate"):
		return "duplicate"
	}
	return "other"
}
