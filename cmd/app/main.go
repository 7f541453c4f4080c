package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/joho/godotenv"

	"github.com/predeshen/telegramscalperbot-sub001/internal/alert"
	"github.com/predeshen/telegramscalperbot-sub001/internal/analytics"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/models"
	"github.com/predeshen/telegramscalperbot-sub001/internal/domain/repository"
	"github.com/predeshen/telegramscalperbot-sub001/internal/indicator"
	"github.com/predeshen/telegramscalperbot-sub001/internal/quality"
	"github.com/predeshen/telegramscalperbot-sub001/internal/scanner"
	"github.com/predeshen/telegramscalperbot-sub001/internal/server"
	"github.com/predeshen/telegramscalperbot-sub001/internal/source"
	"github.com/predeshen/telegramscalperbot-sub001/internal/strategy"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/cache"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/config"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/httpx"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/logger"
	"github.com/predeshen/telegramscalperbot-sub001/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	lg, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	lg.Info("starting scalper bot",
		logger.String("env", cfg.Environment),
		logger.Strings("symbols", cfg.Scanner.Symbols))

	// Candle cache: in-memory by default, Redis when the source is shared
	// across processes.
	var store cache.Store
	if cfg.Redis.Enabled {
		store, err = cache.NewRedisStore(
			cache.WithAddr(cfg.Redis.Addr),
			cache.WithPassword(cfg.Redis.Password),
			cache.WithDB(cfg.Redis.DB),
			cache.WithPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			log.Fatalf("redis init failed: %v", err)
		}
	} else {
		store = cache.NewMemoryStore()
	}
	defer store.Close()

	rec := metrics.New()

	providers := buildProviders(cfg)
	src, err := source.New(cfg.DataSource, providers, store, lg, rec)
	if err != nil {
		log.Fatalf("data source init failed: %v", err)
	}

	registry := strategy.NewRegistry()
	if err := registry.Register(strategy.NewEMAMomentum(), strategy.FamilyMomentum); err != nil {
		log.Fatalf("strategy registration failed: %v", err)
	}
	applyEnabledList(registry, cfg.Strategies.Enabled)

	orchestrator := analytics.NewOrchestrator(cfg.StrategyPriority, registry)
	filter := quality.NewFilter(cfg.Quality, lg)

	notifier := buildNotifier(cfg, lg)

	sc := scanner.New(
		scanner.Options{
			Symbols:           cfg.Scanner.Symbols,
			Timeframe:         models.Timeframe(cfg.Scanner.Timeframe),
			CandleLimit:       cfg.Scanner.CandleLimit,
			PollInterval:      cfg.Scanner.PollInterval,
			ValidateFreshness: cfg.Scanner.ValidateFreshness,
		},
		src,
		indicator.NewCalculator(),
		orchestrator,
		registry,
		filter,
		notifier,
		rec,
		lg,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(src, lg)
		go func() {
			if err := srv.Start(cfg.Server.Port); err != nil {
				lg.Error("ops server failed", logger.Error(err))
			}
		}()
	}

	sc.Run(ctx)

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("ops server shutdown failed", logger.Error(err))
		}
	}
	lg.Info("shutdown complete")
}

func buildProviders(cfg *config.Config) []repository.CandleProvider {
	binanceCli := binance.NewClient(cfg.Providers.Binance.APIKey, cfg.Providers.Binance.APISecret)

	coinbaseClient := httpx.NewClient(httpx.ClientOptions{
		Timeout:        cfg.Providers.Coinbase.Timeout,
		RequestsPerSec: cfg.Providers.Coinbase.RequestsPerSec,
	})
	krakenClient := httpx.NewClient(httpx.ClientOptions{
		Timeout:        cfg.Providers.Kraken.Timeout,
		RequestsPerSec: cfg.Providers.Kraken.RequestsPerSec,
	})

	return []repository.CandleProvider{
		source.NewBinanceProvider(binanceCli, cfg.Providers.Binance.RequestsPerSec),
		source.NewCoinbaseProvider(cfg.Providers.Coinbase.BaseURL, coinbaseClient),
		source.NewKrakenProvider(cfg.Providers.Kraken.BaseURL, krakenClient),
	}
}

// applyEnabledList disables everything not on the configured list. An empty
// list keeps all registered strategies enabled.
func applyEnabledList(registry *strategy.Registry, enabled []string) {
	if len(enabled) == 0 {
		return
	}
	allowed := make(map[string]bool, len(enabled))
	for _, name := range enabled {
		allowed[name] = true
	}
	for _, desc := range registry.Enabled() {
		if !allowed[desc.Name] {
			_ = registry.SetEnabled(desc.Name, false)
		}
	}
}

func buildNotifier(cfg *config.Config, lg *logger.Logger) repository.Notifier {
	logNotifier := alert.NewLogNotifier(lg)
	if !cfg.Telegram.Enabled {
		return logNotifier
	}

	tg, err := alert.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		lg.Error("telegram init failed, falling back to log alerts", logger.Error(err))
		return logNotifier
	}
	return alert.NewFanout(logNotifier, tg)
}
