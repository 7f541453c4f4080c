package quality

import (
	"math"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
)

// Confluence factor names. Order is fixed so verdicts list factors
// deterministically.
const (
	FactorTrend             = "trend"
	FactorMomentum          = "momentum"
	FactorVolume            = "volume"
	FactorPriceAction       = "price_action"
	FactorSupportResistance = "support_resistance"
	FactorMultiTimeframe    = "multi_timeframe"
	FactorVolatility        = "volatility"
)

var factorOrder = []string{
	FactorTrend,
	FactorMomentum,
	FactorVolume,
	FactorPriceAction,
	FactorSupportResistance,
	FactorMultiTimeframe,
	FactorVolatility,
}

// DefaultWeights is the confluence weighting used unless overridden in
// config. The maximum weighted sum is 15.
var DefaultWeights = map[string]int{
	FactorTrend:             3,
	FactorMomentum:          3,
	FactorVolume:            2,
	FactorPriceAction:       2,
	FactorSupportResistance: 2,
	FactorMultiTimeframe:    1,
	FactorVolatility:        1,
}

// minimum ADX for the momentum factor when ADX is available.
const momentumMinADX = 18.0

// vwap proximity threshold for the support/resistance factor, in percent.
const vwapProximityPct = 1.0

// evaluateFactors computes every confluence factor for the signal against a
// market snapshot. With a nil snapshot only the reduced trend/momentum/
// volume subset is evaluated from the signal's own indicator map. A factor
// whose inputs are missing evaluates false, never errors.
func (f *Filter) evaluateFactors(signal *models.Signal, snapshot *models.Series) (satisfied []string, weighted int) {
	results := make(map[string]bool, len(factorOrder))

	if snapshot != nil && snapshot.Len() > 0 {
		last, _ := snapshot.Last()
		results[FactorTrend] = trendFactor(signal.Side, last.Close, lookup(snapshot, models.ColEMA50))
		results[FactorMomentum] = momentumFactor(signal.Side, lookup(snapshot, models.ColRSI), lookup(snapshot, models.ColADX))
		results[FactorVolume] = volumeFactor(last.Volume, lookup(snapshot, models.ColVolumeMA))
		results[FactorPriceAction] = priceActionFactor(signal.Side, snapshot.Candles)
		results[FactorSupportResistance] = vwapFactor(last.Close, lookup(snapshot, models.ColVWAP))
		results[FactorMultiTimeframe] = signal.Confidence >= 4 // provisional: no higher-timeframe data yet
		results[FactorVolatility] = volatilityFactor(signal.ATR)
	} else {
		ind := func(key string) *float64 {
			if v, ok := signal.Indicators[key]; ok {
				return &v
			}
			return nil
		}
		results[FactorTrend] = trendFactor(signal.Side, signal.EntryPrice, ind(models.ColEMA50))
		results[FactorMomentum] = momentumFactor(signal.Side, ind(models.ColRSI), ind(models.ColADX))
		if vol, ok := signal.Indicators["volume"]; ok {
			results[FactorVolume] = volumeFactor(vol, ind(models.ColVolumeMA))
		}
	}

	for _, name := range factorOrder {
		if results[name] {
			satisfied = append(satisfied, name)
			weighted += f.weight(name)
		}
	}
	return satisfied, weighted
}

func (f *Filter) weight(name string) int {
	if w, ok := f.weights[name]; ok {
		return w
	}
	return DefaultWeights[name]
}

func lookup(s *models.Series, col string) *float64 {
	if v, ok := s.LastValue(col); ok {
		return &v
	}
	return nil
}

func trendFactor(side models.Side, price float64, ema50 *float64) bool {
	if ema50 == nil {
		return false
	}
	if side == models.SideLong {
		return price > *ema50
	}
	return price < *ema50
}

func momentumFactor(side models.Side, rsi, adx *float64) bool {
	if rsi == nil {
		return false
	}
	if adx != nil && *adx < momentumMinADX {
		return false
	}
	if side == models.SideLong {
		return *rsi > 50
	}
	return *rsi < 50
}

func volumeFactor(volume float64, volumeMA *float64) bool {
	if volumeMA == nil || *volumeMA <= 0 {
		return false
	}
	return volume / *volumeMA >= 1.0
}

// priceActionFactor checks directional bias over the last five candles: at
// least three of the four consecutive comparisons must confirm (higher lows
// for LONG, lower highs for SHORT).
func priceActionFactor(side models.Side, candles []models.Candle) bool {
	if len(candles) < 5 {
		return false
	}
	window := candles[len(candles)-5:]

	confirming := 0
	for i := 1; i < len(window); i++ {
		if side == models.SideLong {
			if window[i].Low > window[i-1].Low {
				confirming++
			}
		} else {
			if window[i].High < window[i-1].High {
				confirming++
			}
		}
	}
	return confirming >= 3
}

func vwapFactor(price float64, vwap *float64) bool {
	if vwap == nil || price <= 0 {
		return false
	}
	distancePct := math.Abs(price-*vwap) / price * 100
	return distancePct <= vwapProximityPct
}

func volatilityFactor(atr float64) bool {
	return !math.IsNaN(atr) && !math.IsInf(atr, 0) && atr > 0
}

// confidenceFromWeighted maps the weighted confluence sum onto the 1..5
// confidence scale. Monotonic by construction.
func confidenceFromWeighted(weighted int) int {
	switch {
	case weighted <= 3:
		return 1
	case weighted <= 6:
		return 2
	case weighted <= 9:
		return 3
	case weighted <= 12:
		return 4
	default:
		return 5
	}
}
