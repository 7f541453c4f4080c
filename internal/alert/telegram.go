package alert

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
)

// TelegramNotifier pushes accepted signals to a Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(_ context.Context, signal *models.Signal, verdict models.Verdict) error {
	msg := tgbotapi.NewMessage(n.chatID, formatSignal(signal, verdict))
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatSignal(signal *models.Signal, verdict models.Verdict) string {
	arrow := "🟢 LONG"
	if signal.Side == models.SideShort {
		arrow = "🔴 SHORT"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s *%s* (%s)\n", arrow, signal.Symbol, signal.Timeframe)
	fmt.Fprintf(&b, "Strategy: %s\n", signal.Strategy)
	fmt.Fprintf(&b, "Entry: `%.4f`\n", signal.EntryPrice)
	fmt.Fprintf(&b, "Stop: `%.4f`\n", signal.StopLoss)
	fmt.Fprintf(&b, "Target: `%.4f`\n", signal.TakeProfit)
	fmt.Fprintf(&b, "Confidence: %d/5\n", verdict.ConfidenceScore)
	fmt.Fprintf(&b, "Confluence: %s", strings.Join(verdict.ConfluenceFactors, ", "))
	return b.String()
}

var _ repository.Notifier = (*TelegramNotifier)(nil)
