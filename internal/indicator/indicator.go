package indicator

import (
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
)

// Default periods for the attached columns.
const (
	emaFastPeriod  = 9
	emaMidPeriod   = 21
	emaSlowPeriod  = 50
	rsiPeriod      = 14
	adxPeriod      = 14
	atrPeriod      = 14
	volumeMAPeriod = 20
)

// Calculator attaches the standard indicator columns to a series. Columns
// that cannot be computed from the available candles are simply absent;
// downstream factor checks treat absence as false.
type Calculator struct{}

func NewCalculator() *Calculator { return &Calculator{} }

func (c *Calculator) Enrich(series *models.Series) error {
	candles := series.Candles
	n := len(candles)
	if n == 0 {
		return nil
	}

	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, cd := range candles {
		closes[i] = cd.Close
		volumes[i] = cd.Volume
	}

	if n >= emaFastPeriod {
		series.SetColumn(models.ColEMA9, ema(closes, emaFastPeriod))
	}
	if n >= emaMidPeriod {
		series.SetColumn(models.ColEMA21, ema(closes, emaMidPeriod))
	}
	if n >= emaSlowPeriod {
		series.SetColumn(models.ColEMA50, ema(closes, emaSlowPeriod))
	}
	if n > rsiPeriod {
		series.SetColumn(models.ColRSI, rsi(closes, rsiPeriod))
	}
	if n > atrPeriod {
		series.SetColumn(models.ColATR, atr(candles, atrPeriod))
	}
	if n > 2*adxPeriod {
		series.SetColumn(models.ColADX, adx(candles, adxPeriod))
	}
	series.SetColumn(models.ColVWAP, vwap(candles))
	if n >= volumeMAPeriod {
		series.SetColumn(models.ColVolumeMA, sma(volumes, volumeMAPeriod))
	}
	return nil
}

// ema seeds with the SMA of the first period values; earlier indices carry
// the running partial average.
func ema(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	k := 2.0 / float64(period+1)

	sum := 0.0
	for i, v := range values {
		if i < period {
			sum += v
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = v*k + out[i-1]*(1-k)
	}
	return out
}

// sma is a rolling simple moving average; leading indices average the
// available prefix.
func sma(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
			out[i] = sum / float64(period)
		} else {
			out[i] = sum / float64(i+1)
		}
	}
	return out
}

// rsi is Wilder's relative strength index.
func rsi(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 50 // neutral until enough history
	}

	var avgGain, avgLoss float64
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		if i <= period {
			avgGain += gain / float64(period)
			avgLoss += loss / float64(period)
			if i < period {
				continue
			}
		} else {
			avgGain = (avgGain*float64(period-1) + gain) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		}

		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

func trueRange(current, previous models.Candle) float64 {
	tr := current.High - current.Low
	if hc := abs(current.High - previous.Close); hc > tr {
		tr = hc
	}
	if lc := abs(current.Low - previous.Close); lc > tr {
		tr = lc
	}
	return tr
}

// atr is Wilder-smoothed average true range.
func atr(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))

	var sum float64
	for i := 1; i < len(candles); i++ {
		tr := trueRange(candles[i], candles[i-1])
		if i <= period {
			sum += tr
			out[i] = sum / float64(i)
			continue
		}
		out[i] = (out[i-1]*float64(period-1) + tr) / float64(period)
	}
	if len(out) > 1 {
		out[0] = out[1]
	}
	return out
}

// adx implements Wilder's average directional index.
func adx(candles []models.Candle, period int) []float64 {
	n := len(candles)
	out := make([]float64, n)

	var smTR, smPlusDM, smMinusDM float64
	dx := make([]float64, n)

	for i := 1; i < n; i++ {
		upMove := candles[i].High - candles[i-1].High
		downMove := candles[i-1].Low - candles[i].Low

		plusDM, minusDM := 0.0, 0.0
		if upMove > downMove && upMove > 0 {
			plusDM = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM = downMove
		}
		tr := trueRange(candles[i], candles[i-1])

		if i <= period {
			smTR += tr
			smPlusDM += plusDM
			smMinusDM += minusDM
			if i < period {
				continue
			}
		} else {
			smTR = smTR - smTR/float64(period) + tr
			smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM
			smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM
		}

		if smTR == 0 {
			continue
		}
		plusDI := 100 * smPlusDM / smTR
		minusDI := 100 * smMinusDM / smTR
		if plusDI+minusDI == 0 {
			continue
		}
		dx[i] = 100 * abs(plusDI-minusDI) / (plusDI + minusDI)

		if i == 2*period {
			sum := 0.0
			for j := i - period + 1; j <= i; j++ {
				sum += dx[j]
			}
			out[i] = sum / float64(period)
		} else if i > 2*period {
			out[i] = (out[i-1]*float64(period-1) + dx[i]) / float64(period)
		}
	}

	// backfill leading indices with the first computed value
	first := 0.0
	for i := 2 * period; i < n; i++ {
		if out[i] > 0 {
			first = out[i]
			break
		}
	}
	for i := 0; i < n && i < 2*period; i++ {
		out[i] = first
	}
	return out
}

// vwap is the running volume-weighted average price over the series using
// the typical price.
func vwap(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	var cumPV, cumVol float64
	for i, c := range candles {
		typical := (c.High + c.Low + c.Close) / 3
		cumPV += typical * c.Volume
		cumVol += c.Volume
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		} else {
			out[i] = typical
		}
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

var _ repository.IndicatorCalculator = (*Calculator)(nil)
