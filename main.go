package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	clts "kalshiwatch/clients"
	"kalshiwatch/config"
	"kalshiwatch/internal/app"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Optional .env for local runs; real env vars take precedence
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Config comes from the environment once at startup; there is no reload
	cfg := config.Load()
	if result := cfg.Validate(); !result.Valid {
		for _, ve := range result.Errors {
			logger.Error("invalid config value",
				zap.String("field", ve.Field),
				zap.String("message", ve.Message),
			)
		}
		logger.Fatal("configuration invalid, refusing to start")
	}

	logger.Info("starting kalshiwatch",
		zap.String("kalshiBaseURL", cfg.Kalshi.BaseURL),
		zap.Bool("healthServer", cfg.HealthServer.Enabled),
	)

	logger.Info("instantiating clients")
	clients := clts.NewClients(logger, cfg)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	runner := app.NewRunner(clients, cfg)
	if err := runner.Run(ctx); err != nil {
		logger.Fatal("runner failed", zap.Error(err))
	}
}
