package source

import (
	"context"
	"fmt"
	"time"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/httpx"
)

// CoinbaseProvider fetches candles from the Coinbase Exchange REST API.
// Symbols use dashed product ids (BTC-USD), mapped via symbol_map config.
type CoinbaseProvider struct {
	baseURL string
	client  *httpx.Client
}

func NewCoinbaseProvider(baseURL string, client *httpx.Client) *CoinbaseProvider {
	if baseURL == "" {
		baseURL = "https://api.exchange.coinbase.com"
	}
	return &CoinbaseProvider{baseURL: baseURL, client: client}
}

func (p *CoinbaseProvider) Name() string { return "coinbase" }

// coinbase candles arrive as [time, low, high, open, close, volume] rows,
// newest first.
type coinbaseCandle [6]float64

func (p *CoinbaseProvider) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	granularity, err := coinbaseGranularity(tf)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/products/%s/candles?granularity=%d", p.baseURL, symbol, granularity)

	var rows []coinbaseCandle
	if err := p.client.GetJSON(ctx, url, &rows); err != nil {
		return nil, fmt.Errorf("coinbase candles: %w", err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, models.Candle{
			Timestamp: time.Unix(int64(r[0]), 0),
			Low:       r[1],
			High:      r[2],
			Open:      r[3],
			Close:     r[4],
			Volume:    r[5],
		})
	}
	// API returns newest first with its own window; the unified source
	// re-sorts, we only trim to the requested count.
	if limit > 0 && len(candles) > limit {
		candles = candles[:limit]
	}
	return candles, nil
}

func coinbaseGranularity(tf models.Timeframe) (int, error) {
	switch tf {
	case models.Timeframe1m:
		return 60, nil
	case models.Timeframe5m:
		return 300, nil
	case models.Timeframe15m:
		return 900, nil
	case models.Timeframe1h:
		return 3600, nil
	case models.Timeframe1d:
		return 86400, nil
	}
	return 0, fmt.Errorf("coinbase: unsupported timeframe %s", tf)
}

var _ repository.CandleProvider = (*CoinbaseProvider)(nil)
