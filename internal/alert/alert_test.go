package alert

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

type recordingNotifier struct {
	calls int
	err   error
}

func (n *recordingNotifier) Notify(context.Context, *models.Signal, models.Verdict) error {
	n.calls++
	return n.err
}

func TestFanoutAttemptsEveryNotifier(t *testing.T) {
	first := &recordingNotifier{err: errors.New("telegram down")}
	second := &recordingNotifier{}

	err := NewFanout(first, second).Notify(context.Background(), &models.Signal{}, models.Verdict{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram down")
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls, "later notifiers run despite an earlier failure")
}

func TestFanoutReturnsFirstError(t *testing.T) {
	first := &recordingNotifier{err: errors.New("first")}
	second := &recordingNotifier{err: errors.New("second")}

	err := NewFanout(first, second).Notify(context.Background(), &models.Signal{}, models.Verdict{})
	require.Error(t, err)
	assert.Equal(t, "first", err.Error())
}

func TestLogNotifierNeverFails(t *testing.T) {
	n := NewLogNotifier(logger.Nop())
	signal := &models.Signal{Symbol: "BTCUSD", Side: models.SideLong}
	assert.NoError(t, n.Notify(context.Background(), signal, models.Verdict{Passed: true}))
}

func TestFormatSignal(t *testing.T) {
	signal := &models.Signal{
		Symbol:     "BTCUSD",
		Side:       models.SideShort,
		Timeframe:  models.Timeframe5m,
		EntryPrice: 45000,
		StopLoss:   45500,
		TakeProfit: 43750,
		Strategy:   "ema_momentum",
	}
	verdict := models.Verdict{
		Passed:            true,
		ConfidenceScore:   4,
		ConfluenceFactors: []string{"trend", "momentum", "volume"},
	}

	out := formatSignal(signal, verdict)
	assert.Contains(t, out, "SHORT")
	assert.Contains(t, out, "BTCUSD")
	assert.Contains(t, out, "ema_momentum")
	assert.Contains(t, out, "45000.0000")
	assert.Contains(t, out, "4/5")
	assert.Contains(t, out, "trend, momentum, volume")
}
