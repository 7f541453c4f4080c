package alert

import (
	"context"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
)

// LogNotifier writes accepted signals to the structured log. Used as the
// default sink and alongside Telegram in a fan-out.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("alert")}
}

func (n *LogNotifier) Notify(_ context.Context, signal *models.Signal, verdict models.Verdict) error {
	n.log.Info("signal alert",
		logger.String("symbol", signal.Symbol),
		logger.String("side", string(signal.Side)),
		logger.String("strategy", signal.Strategy),
		logger.Float64("entry", signal.EntryPrice),
		logger.Float64("stop", signal.StopLoss),
		logger.Float64("target", signal.TakeProfit),
		logger.Int("confidence", verdict.ConfidenceScore),
		logger.Strings("factors", verdict.ConfluenceFactors))
	return nil
}

// Fanout delivers to every notifier, returning the first error after all
// have been attempted. At-least-once: a partial failure does not undo
// deliveries that succeeded.
type Fanout struct {
	notifiers []repository.Notifier
}

func NewFanout(notifiers ...repository.Notifier) *Fanout {
	return &Fanout{notifiers: notifiers}
}

func (f *Fanout) Notify(ctx context.Context, signal *models.Signal, verdict models.Verdict) error {
	var firstErr error
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, signal, verdict); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ repository.Notifier = (*LogNotifier)(nil)
	_ repository.Notifier = (*Fanout)(nil)
)
