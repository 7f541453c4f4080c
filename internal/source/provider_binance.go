package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
)

// BinanceProvider fetches spot klines through the official REST API.
type BinanceProvider struct {
	cli     *binance.Client
	limiter *rate.Limiter
}

func NewBinanceProvider(cli *binance.Client, requestsPerSec int) *BinanceProvider {
	if requestsPerSec <= 0 {
		requestsPerSec = 10
	}
	return &BinanceProvider{
		cli:     cli,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSec), requestsPerSec),
	}
}

func (p *BinanceProvider) Name() string { return "binance" }

func (p *BinanceProvider) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	klines, err := p.cli.NewKlinesService().
		Symbol(symbol).
		Interval(tf.String()).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}

	candles := make([]models.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := convertBinanceKline(k)
		if err != nil {
			return nil, fmt.Errorf("binance kline parse: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func convertBinanceKline(k *binance.Kline) (models.Candle, error) {
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return models.Candle{}, err
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return models.Candle{}, err
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return models.Candle{}, err
	}
	closePrice, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return models.Candle{}, err
	}
	volume, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return models.Candle{}, err
	}

	return models.Candle{
		Timestamp: time.UnixMilli(k.OpenTime),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}

var _ repository.CandleProvider = (*BinanceProvider)(nil)
