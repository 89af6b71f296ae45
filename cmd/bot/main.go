package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	slogmulti "github.com/samber/slog-multi"

	"autofilter-bot/internal/bot"
	"autofilter-bot/internal/config"
	"autofilter-bot/internal/database"
	"autofilter-bot/internal/scrape"
	"autofilter-bot/internal/store"
	"autofilter-bot/internal/web"
)

func main() {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	jsonHandler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})
	logger := slog.New(slogmulti.Fanout(textHandler, jsonHandler))
	slog.SetDefault(logger)

	cfg := config.LoadConfig()

	db, err := database.ConnectPostgres(cfg)
	if err != nil {
		logger.Error("could not connect to database", "error", err)
		os.Exit(1)
	}

	rdb, err := database.ConnectRedis(cfg)
	if err != nil {
		logger.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}

	users := store.NewUserStore(db)
	settings := store.NewSettingsStore(db, cfg)
	media := store.NewMediaStore(db)
	forwardRules := store.NewForwardStore(db)
	batches := store.NewBatchStore(rdb, cfg.BatchKeyTTL)
	cursors := store.NewCursorStore(rdb)

	b, err := bot.NewBot(cfg, users, settings, media, forwardRules, batches, logger)
	if err != nil {
		logger.Error("could not create bot", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := b.Init(ctx); err != nil {
		logger.Error("could not initialize bot", "error", err)
		os.Exit(1)
	}

	feeds := []scrape.Feed{
		{Name: "tamilmv", URL: cfg.FeedMVURL, Channel: cfg.FeedMVChannel},
		{Name: "tamilblasters", URL: cfg.FeedBlastURL, Channel: cfg.FeedBlastChannel},
	}
	scraper := scrape.NewLoop(feeds, cursors, b.Transport, cfg.ScrapeInterval, cfg.ScrapePause, cfg.ScrapeRetry, logger)
	go scraper.Run(ctx)

	server := web.New(media, b.Runtime.Self.Username, cfg.HTTPPort, logger)
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("web server stopped", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("bot started", "port", cfg.HTTPPort)
	if err := b.Start(ctx); err != nil {
		logger.Error("bot stopped", "error", err)
		os.Exit(1)
	}
}
