package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CryptoDashboard/internal/alert"
	"CryptoDashboard/internal/collector"
	"CryptoDashboard/internal/config"
	"CryptoDashboard/internal/ledger"
	"CryptoDashboard/internal/logger"
	"CryptoDashboard/internal/metrics"
	"CryptoDashboard/internal/notifier"
	"CryptoDashboard/internal/pipeline"
	"CryptoDashboard/internal/scheduler"
	"CryptoDashboard/internal/server"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		bootLog := logger.New(logger.Config{})
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Msg("CryptoDashboard starting...")

	features := cfg.Features()
	for _, missing := range features.Missing {
		log.Warn().Err(missing).Msg("feature disabled")
	}

	// Init fetchers in precedence order
	var fetchers []collector.Fetcher
	for _, p := range cfg.EnabledProviders() {
		f, err := collector.NewFetcher(p.Name, p.BaseURL, p.APIKey, p.QuoteCurrency, cfg.HTTP.Timeout, cfg.Proxy)
		if err != nil {
			log.Warn().Err(err).Msg("skipping provider")
			continue
		}
		if p.APIKey == "" {
			log.Debug().Str("provider", p.Name).Msg("no API key, using public endpoints")
		}
		fetchers = append(fetchers, f)
	}
	if len(fetchers) == 0 {
		log.Warn().Msg("no price providers enabled, holdings will be valued at cost basis")
	}
	col := collector.NewCollector(fetchers, cfg.HTTP.Timeout, cfg.Cache.TTL, log)

	// Init ledger
	var src ledger.Source = ledger.Unconfigured{}
	if features.Ledger {
		src = ledger.NewCSVSource(cfg.Ledger.URL, collector.NewHTTPClient(cfg.HTTP.Timeout, cfg.Proxy))
	}

	// Init pipeline
	var evaluator *alert.Evaluator
	if cfg.Alert.Enabled == nil || *cfg.Alert.Enabled {
		evaluator = alert.NewEvaluator(cfg.Threshold())
	}
	opts := metrics.Options{
		StableAssets:        cfg.StableSet(),
		TopN:                cfg.Metrics.TopN,
		Airdrop24hFullValue: cfg.Airdrop24hFullValue(),
	}
	pipe := pipeline.New(src, col, evaluator, opts, metrics.NewValueSeries(cfg.Metrics.HistorySize), cfg.Cache.TTL, log)

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, pipe, tn, features.AlertDispatch, log)
	if err := sched.Register(cfg.Schedule.CycleCron); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)

	// Start HTTP server
	srv := server.New(cfg.Server.Addr, pipe, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing cycle now")
		go sched.RunNow()
	}

	log.Info().Msg("CryptoDashboard is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	sched.Stop()
	log.Info().Msg("CryptoDashboard stopped")
}
