package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pitchside/internal/edge"
	"github.com/pitchside/internal/logger"
	"github.com/pitchside/internal/newsapi"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	_ = godotenv.Load(envFile)

	environment := os.Getenv("APP_ENV")
	if environment == "" {
		environment = "production"
	}

	logJSONEnv := os.Getenv("LOG_JSON")
	var logJSON bool
	if logJSONEnv != "" {
		logJSON = logJSONEnv == "true"
	} else {
		// Default: JSON in production, text in development
		logJSON = environment != "development"
	}

	appLogger := logger.InitLogger(environment, logJSON)

	cfg := edge.LoadConfig()
	appLogger.Info("edge configuration loaded",
		"listen_address", cfg.ListenAddress,
		"upstream", cfg.UpstreamBaseURL,
		"topic", cfg.Topic,
	)

	handler := edge.NewHandler(cfg, newsapi.NewClient(cfg.UpstreamBaseURL), appLogger)

	server := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		appLogger.Info("edge listening", "address", cfg.ListenAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("edge server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down edge...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("edge shutdown error", "error", err)
	}
	appLogger.Info("edge stopped")
}
