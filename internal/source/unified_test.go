package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/cache"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/config"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

type fakeProvider struct {
	name    string
	candles []models.Candle
	err     error
	calls   int
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Fetch(_ context.Context, _ string, _ models.Timeframe, _ int) ([]models.Candle, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.candles, nil
}

func testCandles(last time.Time, n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		ts := last.Add(-time.Duration(n-1-i) * time.Minute)
		candles[i] = models.Candle{Timestamp: ts, Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 10}
	}
	return candles
}

func testConfig(primary string, fallbacks ...string) config.DataSourceConfig {
	cfg := config.DataSourceConfig{
		PrimarySource:   primary,
		FallbackSources: fallbacks,
		CacheTTL:        15 * time.Minute,
	}
	cfg.Retry.MaxAttempts = 1
	cfg.Retry.InitialDelay = time.Millisecond
	cfg.Retry.MaxDelay = 2 * time.Millisecond
	cfg.Retry.BackoffMultiplier = 2.0
	return cfg
}

func newTestSource(t *testing.T, cfg config.DataSourceConfig, providers ...repository.CandleProvider) (*UnifiedSource, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore(cache.WithCleanupInterval(time.Hour))
	t.Cleanup(func() { store.Close() })

	src, err := New(cfg, providers, store, logger.Nop(), nil)
	require.NoError(t, err)
	return src, store
}

func TestFetchPrimarySuccessShortCircuits(t *testing.T) {
	now := time.Now()
	primary := &fakeProvider{name: "binance", candles: testCandles(now, 30)}
	fallback := &fakeProvider{name: "kraken", candles: testCandles(now, 30)}

	src, _ := newTestSource(t, testConfig("binance", "kraken"), primary, fallback)

	res, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.True(t, res.Fresh)
	assert.False(t, res.FromCache)
	assert.Equal(t, 30, res.Series.Len())
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, fallback.calls, "fallback must not be consulted after a success")
}

func TestFetchFallsBackToNextProvider(t *testing.T) {
	now := time.Now()
	primary := &fakeProvider{name: "binance", err: errors.New("rate limited")}
	fallback := &fakeProvider{name: "kraken", candles: testCandles(now, 30)}

	src, _ := newTestSource(t, testConfig("binance", "kraken"), primary, fallback)

	res, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.True(t, res.Fresh)
	assert.Equal(t, 1, fallback.calls)

	status := src.SourceStatus()
	assert.Equal(t, 1, status["binance"].ConsecutiveFailures)
	assert.True(t, status["binance"].Enabled)
	assert.Equal(t, 0, status["kraken"].ConsecutiveFailures)
	assert.NotNil(t, status["kraken"].LastSuccess)
}

func TestCircuitOpensAtThreeConsecutiveFailures(t *testing.T) {
	now := time.Now()
	primary := &fakeProvider{name: "binance", err: errors.New("down")}
	fallback := &fakeProvider{name: "kraken", candles: testCandles(now, 30)}

	src, _ := newTestSource(t, testConfig("binance", "kraken"), primary, fallback)

	for i := 1; i <= 3; i++ {
		_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
		require.NoError(t, err)

		status := src.SourceStatus()["binance"]
		assert.Equal(t, i, status.ConsecutiveFailures)
		if i < 3 {
			assert.True(t, status.Enabled, "provider stays enabled below the threshold")
		} else {
			assert.False(t, status.Enabled, "provider disabled at the third failure")
		}
	}

	// The open circuit skips the provider entirely.
	calls := primary.calls
	_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.Equal(t, calls, primary.calls)
}

func TestResetSourceStatusReEnables(t *testing.T) {
	primary := &fakeProvider{name: "binance", err: errors.New("down")}
	fallback := &fakeProvider{name: "kraken", candles: testCandles(time.Now(), 30)}

	src, _ := newTestSource(t, testConfig("binance", "kraken"), primary, fallback)

	for i := 0; i < 3; i++ {
		_, _ = src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	}
	require.False(t, src.SourceStatus()["binance"].Enabled)

	require.NoError(t, src.ResetSourceStatus("binance"))
	status := src.SourceStatus()["binance"]
	assert.True(t, status.Enabled)
	assert.Equal(t, 0, status.ConsecutiveFailures)

	assert.Error(t, src.ResetSourceStatus("no-such-source"))
}

func TestFetchServesDegradedReadFromCache(t *testing.T) {
	now := time.Now()
	primary := &fakeProvider{name: "binance", candles: testCandles(now, 30)}

	src, _ := newTestSource(t, testConfig("binance"), primary)

	// Prime the cache with a successful fetch, then kill the provider.
	_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	primary.err = errors.New("down")
	primary.candles = nil

	res, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.False(t, res.Fresh, "cache reads are always degraded")
	assert.True(t, res.FromCache)
	assert.Equal(t, 30, res.Series.Len())
}

func TestFetchFailsWhenProvidersAndCacheExhausted(t *testing.T) {
	primary := &fakeProvider{name: "binance", err: errors.New("down")}

	src, _ := newTestSource(t, testConfig("binance"), primary)

	_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllSourcesExhausted)
}

func TestFetchExpiredCacheEntryDoesNotServe(t *testing.T) {
	now := time.Now()
	primary := &fakeProvider{name: "binance", candles: testCandles(now, 30)}

	src, _ := newTestSource(t, testConfig("binance"), primary)
	_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)

	primary.err = errors.New("down")
	src.now = func() time.Time { return now.Add(16 * time.Minute) } // beyond CacheTTL

	_, err = src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	assert.ErrorIs(t, err, ErrAllSourcesExhausted)
}

func TestFetchMarksStaleDataNotFresh(t *testing.T) {
	old := time.Now().Add(-10 * time.Minute)
	primary := &fakeProvider{name: "binance", candles: testCandles(old, 30)}

	src, _ := newTestSource(t, testConfig("binance"), primary)

	res, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.False(t, res.Fresh, "1m candles older than 90s are stale")
	assert.False(t, res.FromCache)

	// Without freshness validation the same read counts as fresh.
	res, err = src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, false)
	require.NoError(t, err)
	assert.True(t, res.Fresh)
}

func TestFetchRetriesWithinOneProvider(t *testing.T) {
	cfg := testConfig("binance")
	cfg.Retry.MaxAttempts = 3

	primary := &fakeProvider{name: "binance", err: errors.New("flaky")}
	src, _ := newTestSource(t, cfg, primary)

	_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.Error(t, err)
	assert.Equal(t, 3, primary.calls)

	// One exhausted retry cycle counts as a single provider failure.
	assert.Equal(t, 1, src.SourceStatus()["binance"].ConsecutiveFailures)
}

func TestSymbolMapTranslatesPerProvider(t *testing.T) {
	cfg := testConfig("binance")
	cfg.SymbolMap = map[string]map[string]string{
		"binance": {"BTCUSD": "BTCUSDT"},
	}

	var seen string
	primary := &capturingProvider{name: "binance", onFetch: func(symbol string) { seen = symbol }}
	src, _ := newTestSource(t, cfg, primary)

	_, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", seen)
}

type capturingProvider struct {
	name    string
	onFetch func(symbol string)
}

func (p *capturingProvider) Name() string { return p.name }

func (p *capturingProvider) Fetch(_ context.Context, symbol string, _ models.Timeframe, _ int) ([]models.Candle, error) {
	p.onFetch(symbol)
	return testCandles(time.Now(), 30), nil
}

func TestNewRejectsUnknownProviderNames(t *testing.T) {
	store := cache.NewMemoryStore(cache.WithCleanupInterval(time.Hour))
	defer store.Close()

	_, err := New(testConfig("binance", "missing"),
		[]repository.CandleProvider{&fakeProvider{name: "binance"}},
		store, logger.Nop(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestNormalizeCandlesSortsAndDeduplicates(t *testing.T) {
	base := time.Now().Truncate(time.Minute)
	candles := []models.Candle{
		{Timestamp: base.Add(2 * time.Minute), Close: 3},
		{Timestamp: base, Close: 1},
		{Timestamp: base.Add(time.Minute), Close: 2},
		{Timestamp: base.Add(time.Minute), Close: 2.5}, // duplicate timestamp, later wins
	}

	out := normalizeCandles(candles)
	require.Len(t, out, 3)
	for i := 1; i < len(out); i++ {
		assert.True(t, out[i].Timestamp.After(out[i-1].Timestamp))
	}
	assert.Equal(t, 2.5, out[1].Close)
}

func TestFetchEmptySeriesCountsAsFailure(t *testing.T) {
	primary := &fakeProvider{name: "binance", candles: nil}
	fallback := &fakeProvider{name: "kraken", candles: testCandles(time.Now(), 30)}

	src, _ := newTestSource(t, testConfig("binance", "kraken"), primary, fallback)

	res, err := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	require.NoError(t, err)
	assert.Equal(t, 1, fallback.calls)
	assert.Equal(t, 30, res.Series.Len())
	assert.Equal(t, 1, src.SourceStatus()["binance"].ConsecutiveFailures)
}

func TestSourceStatusSnapshotIsACopy(t *testing.T) {
	primary := &fakeProvider{name: "binance", candles: testCandles(time.Now(), 30)}
	src, _ := newTestSource(t, testConfig("binance"), primary)

	status := src.SourceStatus()
	entry := status["binance"]
	entry.ConsecutiveFailures = 99
	status["binance"] = entry

	assert.Equal(t, 0, src.SourceStatus()["binance"].ConsecutiveFailures)
}

func ExampleUnifiedSource_Fetch() {
	provider := &fakeProvider{name: "binance", candles: testCandles(time.Now(), 30)}
	store := cache.NewMemoryStore(cache.WithCleanupInterval(time.Hour))
	defer store.Close()

	src, _ := New(testConfig("binance"), []repository.CandleProvider{provider}, store, logger.Nop(), nil)
	res, _ := src.Fetch(context.Background(), "BTCUSD", models.Timeframe1m, 30, true)
	fmt.Println(res.Series.Symbol, res.Fresh)
	// Output: BTCUSD true
}
