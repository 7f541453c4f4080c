package models

import (
	"time"
)

// Timeframe is a candle interval as understood by the data providers.
type Timeframe string

const (
	Timeframe1m  Timeframe = "1m"
	Timeframe3m  Timeframe = "3m"
	Timeframe5m  Timeframe = "5m"
	Timeframe15m Timeframe = "15m"
	Timeframe30m Timeframe = "30m"
	Timeframe1h  Timeframe = "1h"
	Timeframe4h  Timeframe = "4h"
	Timeframe1d  Timeframe = "1d"
)

func (t Timeframe) String() string { return string(t) }

// Duration returns the candle width for the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe1m:
		return time.Minute
	case Timeframe3m:
		return 3 * time.Minute
	case Timeframe5m:
		return 5 * time.Minute
	case Timeframe15m:
		return 15 * time.Minute
	case Timeframe30m:
		return 30 * time.Minute
	case Timeframe1h:
		return time.Hour
	case Timeframe4h:
		return 4 * time.Hour
	case Timeframe1d:
		return 24 * time.Hour
	}
	return time.Minute
}

// FreshnessThreshold is the maximum acceptable age of the latest candle
// before the series is treated as stale. Live feeds keep the forming candle
// updated, so thresholds on large timeframes are capped at two hours rather
// than scaling with candle width.
func (t Timeframe) FreshnessThreshold() time.Duration {
	switch t {
	case Timeframe1m:
		return 90 * time.Second
	case Timeframe3m:
		return 4 * time.Minute
	case Timeframe5m:
		return 6 * time.Minute
	case Timeframe15m:
		return 18 * time.Minute
	case Timeframe30m:
		return 35 * time.Minute
	case Timeframe1h:
		return 70 * time.Minute
	}
	return 2 * time.Hour
}

// Candle is a single OHLCV record.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Indicator column names attached by the indicator stage.
const (
	ColEMA9     = "ema_9"
	ColEMA21    = "ema_21"
	ColEMA50    = "ema_50"
	ColRSI      = "rsi"
	ColADX      = "adx"
	ColATR      = "atr"
	ColVWAP     = "vwap"
	ColVolumeMA = "volume_ma"
)

// Series is an ordered candle table for one symbol and timeframe, plus the
// indicator columns derived from it. Candles are ascending by timestamp with
// no duplicates; every column has the same length as Candles.
type Series struct {
	Symbol    string               `json:"symbol"`
	Timeframe Timeframe            `json:"timeframe"`
	Candles   []Candle             `json:"candles"`
	Columns   map[string][]float64 `json:"columns,omitempty"`
}

func NewSeries(symbol string, tf Timeframe, candles []Candle) *Series {
	return &Series{
		Symbol:    symbol,
		Timeframe: tf,
		Candles:   candles,
		Columns:   make(map[string][]float64),
	}
}

func (s *Series) Len() int { return len(s.Candles) }

// Last returns the most recent candle, or false on an empty series.
func (s *Series) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// SetColumn attaches an indicator column. Columns shorter or longer than the
// candle table are rejected silently; absence is the contract for "no data".
func (s *Series) SetColumn(name string, values []float64) {
	if len(values) != len(s.Candles) {
		return
	}
	if s.Columns == nil {
		s.Columns = make(map[string][]float64)
	}
	s.Columns[name] = values
}

// Value reads an indicator column at index i.
func (s *Series) Value(name string, i int) (float64, bool) {
	col, ok := s.Columns[name]
	if !ok || i < 0 || i >= len(col) {
		return 0, false
	}
	return col[i], true
}

// LastValue reads the latest row of an indicator column.
func (s *Series) LastValue(name string) (float64, bool) {
	return s.Value(name, len(s.Candles)-1)
}

// Age is the elapsed time since the latest candle's timestamp.
func (s *Series) Age(now time.Time) (time.Duration, bool) {
	last, ok := s.Last()
	if !ok {
		return 0, false
	}
	return now.Sub(last.Timestamp), true
}
