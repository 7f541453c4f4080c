package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/cache"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/config"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

// ErrAllSourcesExhausted is returned when every provider and the cache
// failed to produce candles for one fetch call. It is fatal for that call
// only; the caller logs and retries on the next poll tick.
var ErrAllSourcesExhausted = errors.New("source: all providers and cache exhausted")

// Result distinguishes a fresh read, a stale-but-direct read, and a
// degraded read served from the cache, so callers cannot mistake one for
// another.
type Result struct {
	Series    *models.Series
	Fresh     bool
	FromCache bool
}

// cacheEntry is the persisted form of one successful fetch.
type cacheEntry struct {
	Series    *models.Series `json:"series"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// UnifiedSource orchestrates candle providers with per-provider retry and
// backoff, circuit breaking, freshness validation and cache fallback.
// Status and cache are owned by this value; both are mutex-guarded, so one
// instance may be shared across symbol loops.
type UnifiedSource struct {
	providers map[string]repository.CandleProvider
	order     []string // primary first, then fallbacks
	cfg       config.DataSourceConfig
	store     cache.Store
	status    *statusBook
	log       *logger.Logger
	metrics   repository.Metrics

	now func() time.Time
}

// New builds a UnifiedSource. Provider order is primary followed by the
// configured fallbacks; names without a registered provider are rejected.
func New(cfg config.DataSourceConfig, providers []repository.CandleProvider, store cache.Store, log *logger.Logger, m repository.Metrics) (*UnifiedSource, error) {
	byName := make(map[string]repository.CandleProvider, len(providers))
	for _, p := range providers {
		byName[p.Name()] = p
	}

	order := append([]string{cfg.PrimarySource}, cfg.FallbackSources...)
	for _, name := range order {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("source: no provider registered for %q", name)
		}
	}
	if m == nil {
		m = repository.NopMetrics{}
	}

	return &UnifiedSource{
		providers: byName,
		order:     order,
		cfg:       cfg,
		store:     store,
		status:    newStatusBook(order),
		log:       log.Named("unified_source"),
		metrics:   m,
		now:       time.Now,
	}, nil
}

// Fetch tries each enabled provider in priority order, retrying each with
// capped exponential backoff, and falls back to the cache when every
// provider fails. The boolean on Result reports freshness; a cache hit is
// always reported stale.
func (u *UnifiedSource) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int, validateFreshness bool) (*Result, error) {
	for _, name := range u.order {
		if !u.status.enabled(name) {
			u.log.Debug("skipping disabled source", logger.String("source", name))
			continue
		}

		candles, err := u.fetchWithRetry(ctx, name, symbol, tf, limit)
		if err != nil {
			u.metrics.RecordProviderFetch(name, "failure")
			if tripped := u.status.recordFailure(name); tripped {
				u.metrics.RecordCircuitOpen(name)
				u.log.Warn("source disabled after repeated failures",
					logger.String("source", name),
					logger.Int("failures", maxConsecutiveFailures))
			}
			u.log.Warn("source fetch failed",
				logger.String("source", name),
				logger.String("symbol", symbol),
				logger.Error(err))
			continue
		}

		now := u.now()
		series := models.NewSeries(symbol, tf, normalizeCandles(candles))
		fresh := true
		if validateFreshness {
			age, _ := series.Age(now)
			fresh = age <= tf.FreshnessThreshold()
			if !fresh {
				u.log.Warn("candle data is stale",
					logger.String("source", name),
					logger.String("symbol", symbol),
					logger.Duration("age", age))
			}
		}

		u.status.recordSuccess(name, now)
		u.metrics.RecordProviderFetch(name, "success")
		u.writeCache(ctx, symbol, tf, series, now)
		return &Result{Series: series, Fresh: fresh}, nil
	}

	// Every provider failed or was disabled; the cache is the last resort.
	if res, ok := u.readCache(ctx, symbol, tf); ok {
		u.metrics.RecordCacheFallback(symbol)
		u.log.Warn("serving degraded data from cache",
			logger.String("symbol", symbol),
			logger.String("timeframe", tf.String()))
		return res, nil
	}

	return nil, fmt.Errorf("fetch %s %s: %w", symbol, tf, ErrAllSourcesExhausted)
}

// fetchWithRetry attempts one provider up to max_attempts times with capped
// exponential backoff between attempts. An empty series counts as a failure.
func (u *UnifiedSource) fetchWithRetry(ctx context.Context, name, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	provider := u.providers[name]
	mapped := u.mapSymbol(name, symbol)

	var candles []models.Candle
	operation := func() error {
		var err error
		candles, err = provider.Fetch(ctx, mapped, tf, limit)
		if err != nil {
			return err
		}
		if len(candles) == 0 {
			return fmt.Errorf("empty candle series from %s", name)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = u.cfg.Retry.InitialDelay
	bo.Multiplier = u.cfg.Retry.BackoffMultiplier
	bo.MaxInterval = u.cfg.Retry.MaxDelay
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(u.cfg.Retry.MaxAttempts-1)), ctx))
	if err != nil {
		return nil, err
	}
	return candles, nil
}

func (u *UnifiedSource) mapSymbol(provider, symbol string) string {
	if m, ok := u.cfg.SymbolMap[provider]; ok {
		if mapped, ok := m[symbol]; ok {
			return mapped
		}
	}
	return symbol
}

func (u *UnifiedSource) cacheKey(symbol string, tf models.Timeframe) string {
	return fmt.Sprintf("candles:%s:%s", symbol, tf)
}

func (u *UnifiedSource) writeCache(ctx context.Context, symbol string, tf models.Timeframe, series *models.Series, at time.Time) {
	entry := cacheEntry{Series: series, FetchedAt: at}
	if err := u.store.Set(ctx, u.cacheKey(symbol, tf), entry, u.cfg.CacheTTL); err != nil {
		u.log.Warn("cache write failed", logger.String("symbol", symbol), logger.Error(err))
	}
}

func (u *UnifiedSource) readCache(ctx context.Context, symbol string, tf models.Timeframe) (*Result, bool) {
	var entry cacheEntry
	if err := u.store.Get(ctx, u.cacheKey(symbol, tf), &entry); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			u.log.Warn("cache read failed", logger.String("symbol", symbol), logger.Error(err))
		}
		return nil, false
	}
	if entry.Series == nil || u.now().Sub(entry.FetchedAt) > u.cfg.CacheTTL {
		return nil, false
	}
	return &Result{Series: entry.Series, Fresh: false, FromCache: true}, true
}

// SourceStatus returns a copy of every provider's health. Pure read.
func (u *UnifiedSource) SourceStatus() map[string]SourceStatus {
	return u.status.snapshot()
}

// ResetSourceStatus clears a provider's failure counter and re-enables it.
// Manual recovery or an external retry schedule calls this.
func (u *UnifiedSource) ResetSourceStatus(name string) error {
	if err := u.status.reset(name); err != nil {
		return err
	}
	u.log.Info("source status reset", logger.String("source", name))
	return nil
}

// normalizeCandles enforces the series invariant: ascending by timestamp
// with no duplicate timestamps. Later entries win on duplicates.
func normalizeCandles(candles []models.Candle) []models.Candle {
	sorted := make([]models.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	out := sorted[:0]
	for _, c := range sorted {
		if len(out) > 0 && out[len(out)-1].Timestamp.Equal(c.Timestamp) {
			out[len(out)-1] = c
			continue
		}
		out = append(out, c)
	}
	return out
}
