package analytics

import (
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
)

// Regime thresholds. ADX above/below 20 splits trending from ranging; the
// ATR ratio compares current volatility to its 20-period average.
const (
	adxTrendThreshold   = 20.0
	atrAveragePeriod    = 20
	highVolumeThreshold = 1.5
	lowVolumeThreshold  = 0.7
	bullishRSIThreshold = 55.0
	bearishRSIThreshold = 45.0
)

// ClassifyRegime derives the qualitative market state from the latest
// candle and indicator row. Pure function of the snapshot; missing columns
// degrade to neutral readings.
func ClassifyRegime(series *models.Series) models.MarketConditions {
	cond := models.MarketConditions{
		Momentum:        models.MomentumNeutral,
		VolumeProfile:   models.VolumeNormal,
		VolatilityRatio: 1.0,
	}
	if series == nil || series.Len() == 0 {
		cond.IsRanging = true
		return cond
	}

	if adx, ok := series.LastValue(models.ColADX); ok {
		cond.TrendStrength = adx
	}
	cond.IsTrending = cond.TrendStrength > adxTrendThreshold
	cond.IsRanging = cond.TrendStrength < adxTrendThreshold

	if atr, ok := series.LastValue(models.ColATR); ok {
		if avg := averageTail(series.Columns[models.ColATR], atrAveragePeriod); avg > 0 {
			cond.VolatilityRatio = atr / avg
		}
	}

	if rsi, ok := series.LastValue(models.ColRSI); ok {
		switch {
		case rsi > bullishRSIThreshold:
			cond.Momentum = models.MomentumBullish
		case rsi < bearishRSIThreshold:
			cond.Momentum = models.MomentumBearish
		}
	}

	if volumeMA, ok := series.LastValue(models.ColVolumeMA); ok && volumeMA > 0 {
		last, _ := series.Last()
		ratio := last.Volume / volumeMA
		switch {
		case ratio > highVolumeThreshold:
			cond.VolumeProfile = models.VolumeHigh
		case ratio < lowVolumeThreshold:
			cond.VolumeProfile = models.VolumeLow
		}
	}

	return cond
}

// averageTail averages the last n values of a column, skipping nothing; a
// shorter column averages what is there.
func averageTail(col []float64, n int) float64 {
	if len(col) == 0 {
		return 0
	}
	start := len(col) - n
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, v := range col[start:] {
		sum += v
	}
	return sum / float64(len(col)-start)
}
