package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shanehull/goldbot/internal/app"
	"github.com/shanehull/goldbot/internal/config"
	"github.com/shanehull/goldbot/internal/logging"
	"github.com/shanehull/goldbot/internal/notify"
	"github.com/shanehull/goldbot/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "<EMPTY>"
	}
	logger.Info("startup",
		zap.Bool("bot_token_present", cfg.BotToken != ""),
		zap.Int("bot_token_length", len(cfg.BotToken)),
		zap.String("base_url", baseURL),
		zap.Int("port", cfg.Port),
	)
	if cfg.BotToken == "" {
		logger.Fatal("BOT_TOKEN is not set")
	}

	a, err := app.New(cfg, nil, logger)
	if err != nil {
		logger.Fatal("setup", zap.Error(err))
	}
	a.LogSources()

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := tgbotapi.SetLogger(zap.NewStdLog(logger.Named("telegram"))); err != nil {
		logger.Warn("telegram logger", zap.Error(err))
	}
	bot, err := notify.NewTelegramBot(notify.TelegramConfig{
		APIURL:      cfg.TelegramAPIURL,
		Token:       cfg.BotToken,
		PollTimeout: cfg.TelegramPollTimeout,
	}, a.Reports, logger)
	if err != nil {
		logger.Fatal("telegram", zap.Error(err))
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.New(cfg.Port, logger).Run(ctx) })
	g.Go(func() error { return bot.Run(ctx) })

	logger.Info("starting liveness server and telegram polling")
	if err := g.Wait(); err != nil {
		logger.Error("fatal", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
