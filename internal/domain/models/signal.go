package models

import "time"

// Side is the direction of a candidate signal.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Signal is a candidate trade produced by a strategy. It is immutable once
// created; the quality filter only reads it.
type Signal struct {
	Symbol     string             `json:"symbol"`
	Side       Side               `json:"side"`
	Timeframe  Timeframe          `json:"timeframe"`
	EntryPrice float64            `json:"entry_price"`
	StopLoss   float64            `json:"stop_loss"`
	TakeProfit float64            `json:"take_profit"`
	ATR        float64            `json:"atr"`
	RiskReward float64            `json:"risk_reward"`
	Confidence int                `json:"confidence"` // 1..5
	Indicators map[string]float64 `json:"indicators,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Strategy   string             `json:"strategy"`
}

// Momentum is a qualitative read of the oscillator state.
type Momentum string

const (
	MomentumBullish Momentum = "bullish"
	MomentumBearish Momentum = "bearish"
	MomentumNeutral Momentum = "neutral"
)

// VolumeProfile buckets current volume against its moving average.
type VolumeProfile string

const (
	VolumeHigh   VolumeProfile = "high"
	VolumeNormal VolumeProfile = "normal"
	VolumeLow    VolumeProfile = "low"
)

// MarketConditions is the regime snapshot derived from the latest candle and
// indicator row. Recomputed on every orchestration call, never persisted.
type MarketConditions struct {
	TrendStrength   float64       `json:"trend_strength"` // ADX
	VolatilityRatio float64       `json:"volatility_ratio"`
	IsTrending      bool          `json:"is_trending"`
	IsRanging       bool          `json:"is_ranging"`
	Momentum        Momentum      `json:"momentum"`
	VolumeProfile   VolumeProfile `json:"volume_profile"`
}

// Verdict is the outcome of one quality-filter evaluation.
type Verdict struct {
	Passed            bool     `json:"passed"`
	ConfidenceScore   int      `json:"confidence_score"` // 1..5
	ConfluenceFactors []string `json:"confluence_factors"`
	RejectionReason   string   `json:"rejection_reason,omitempty"`
}
