// Package main runs the Telegram launcher bot that answers /start with a
// button opening the Mini App.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Otar989/bugman-bot/internal/config"
	"github.com/Otar989/bugman-bot/internal/logger"
	"github.com/Otar989/bugman-bot/internal/telegram"
	"go.uber.org/zap"
)

func main() {
	options := config.Parse()

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	if len(options.BotTokens) == 0 {
		zapLogger.Fatal("BOT_TOKEN is required")
	}
	if options.AppURL == "" {
		zapLogger.Fatal("APP_URL is required")
	}

	bot, err := telegram.NewBot(options.BotTokens[0], options.AppURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot authorise bot", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("bot is starting", zap.String("app_url", options.AppURL))
	bot.Run(ctx)
}
