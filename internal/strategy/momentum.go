package strategy

import (
	"context"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
)

// EMAMomentum is a reference momentum strategy: a fast/slow EMA alignment
// with RSI confirmation, stops and targets placed off ATR.
type EMAMomentum struct {
	stopATR   float64
	targetATR float64
}

func NewEMAMomentum() *EMAMomentum {
	return &EMAMomentum{stopATR: 1.5, targetATR: 3.0}
}

func (s *EMAMomentum) Name() string { return "ema_momentum" }

func (s *EMAMomentum) Evaluate(_ context.Context, series *models.Series) (*models.Signal, error) {
	last, ok := series.Last()
	if !ok {
		return nil, nil
	}

	ema9, ok9 := series.LastValue(models.ColEMA9)
	ema21, ok21 := series.LastValue(models.ColEMA21)
	rsi, okRSI := series.LastValue(models.ColRSI)
	atr, okATR := series.LastValue(models.ColATR)
	if !ok9 || !ok21 || !okRSI || !okATR || atr <= 0 {
		return nil, nil
	}

	var side models.Side
	switch {
	case ema9 > ema21 && last.Close > ema9 && rsi > 55:
		side = models.SideLong
	case ema9 < ema21 && last.Close < ema9 && rsi < 45:
		side = models.SideShort
	default:
		return nil, nil
	}

	entry := last.Close
	stop := entry - s.stopATR*atr
	target := entry + s.targetATR*atr
	if side == models.SideShort {
		stop = entry + s.stopATR*atr
		target = entry - s.targetATR*atr
	}

	confidence := 3
	if rsi > 65 || rsi < 35 {
		confidence = 4
	}

	indicators := map[string]float64{
		models.ColEMA9:  ema9,
		models.ColEMA21: ema21,
		models.ColRSI:   rsi,
		models.ColATR:   atr,
	}
	if ema50, ok := series.LastValue(models.ColEMA50); ok {
		indicators[models.ColEMA50] = ema50
	}

	return &models.Signal{
		Symbol:     series.Symbol,
		Side:       side,
		Timeframe:  series.Timeframe,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		ATR:        atr,
		RiskReward: s.targetATR / s.stopATR,
		Confidence: confidence,
		Indicators: indicators,
		Timestamp:  last.Timestamp,
		Strategy:   s.Name(),
	}, nil
}

var _ repository.Strategy = (*EMAMomentum)(nil)
