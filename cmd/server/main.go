package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pitchside/internal/config"
	"github.com/pitchside/internal/http"
	"github.com/pitchside/internal/logger"
)

func main() {
	// Load .env file if it exists (optional, won't error if missing)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.InitLogger("production", true).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	appLogger := logger.InitLogger(cfg.Environment, cfg.LogJSON)
	if envErr != nil {
		appLogger.Debug("no .env file loaded", "error", envErr)
	}

	if config.NewsAPIKey() == "" {
		appLogger.Warn("news API key is not set; news endpoints will return 500 until it is", "env", config.NewsAPIKeyEnv)
	}
	if cfg.Auth.ProviderURL == "" {
		appLogger.Warn("auth provider URL is not set; auth callback will fail", "env", "AUTH_PROVIDER_URL")
	}
	appLogger.Info("configuration loaded",
		"environment", cfg.Environment,
		"address", cfg.ServerAddress,
		"public_url", cfg.PublicURL,
		"oauth_enabled", cfg.OAuth.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := http.NewServer(cfg, appLogger)
	if err := server.Run(ctx); err != nil {
		appLogger.Error("server error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server stopped")
}
