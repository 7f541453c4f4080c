package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/httpx"
)

// KrakenProvider fetches candles from the Kraken public OHLC endpoint.
// Symbols use Kraken pair notation (XBTUSD), mapped via symbol_map config.
type KrakenProvider struct {
	baseURL string
	client  *httpx.Client
}

func NewKrakenProvider(baseURL string, client *httpx.Client) *KrakenProvider {
	if baseURL == "" {
		baseURL = "https://api.kraken.com"
	}
	return &KrakenProvider{baseURL: baseURL, client: client}
}

func (p *KrakenProvider) Name() string { return "kraken" }

type krakenOHLCResponse struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (p *KrakenProvider) Fetch(ctx context.Context, symbol string, tf models.Timeframe, limit int) ([]models.Candle, error) {
	interval, err := krakenInterval(tf)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/0/public/OHLC?pair=%s&interval=%d", p.baseURL, symbol, interval)

	var resp krakenOHLCResponse
	if err := p.client.GetJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("kraken ohlc: %w", err)
	}
	if len(resp.Error) > 0 {
		return nil, fmt.Errorf("kraken ohlc: %v", resp.Error)
	}

	// The result map holds the pair rows under the resolved pair name plus a
	// "last" cursor; take the first array value.
	var rows [][]interface{}
	for key, raw := range resp.Result {
		if key == "last" {
			continue
		}
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("kraken ohlc rows: %w", err)
		}
		break
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := convertKrakenRow(row)
		if err != nil {
			return nil, fmt.Errorf("kraken row parse: %w", err)
		}
		candles = append(candles, c)
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// Kraken rows are [time, open, high, low, close, vwap, volume, count] with
// prices as strings.
func convertKrakenRow(row []interface{}) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("short row: %d fields", len(row))
	}

	ts, ok := row[0].(float64)
	if !ok {
		return models.Candle{}, fmt.Errorf("bad timestamp %v", row[0])
	}

	fields := make([]float64, 0, 5)
	for _, idx := range []int{1, 2, 3, 4, 6} { // open, high, low, close, volume
		s, ok := row[idx].(string)
		if !ok {
			return models.Candle{}, fmt.Errorf("bad field %v", row[idx])
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, err
		}
		fields = append(fields, v)
	}

	return models.Candle{
		Timestamp: time.Unix(int64(ts), 0),
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}

func krakenInterval(tf models.Timeframe) (int, error) {
	switch tf {
	case models.Timeframe1m:
		return 1, nil
	case models.Timeframe5m:
		return 5, nil
	case models.Timeframe15m:
		return 15, nil
	case models.Timeframe30m:
		return 30, nil
	case models.Timeframe1h:
		return 60, nil
	case models.Timeframe4h:
		return 240, nil
	case models.Timeframe1d:
		return 1440, nil
	}
	return 0, fmt.Errorf("kraken: unsupported timeframe %s", tf)
}

var _ repository.CandleProvider = (*KrakenProvider)(nil)
