package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innostart.pro/innostart/internal/api"
	"innostart.pro/innostart/internal/config"
	"innostart.pro/innostart/internal/core"
	"innostart.pro/innostart/internal/logger"
	"innostart.pro/innostart/internal/store"
)

func main() {
	// Load configuration
	envFileLoaded, cfgErr := config.LoadConfig()
	cfg := config.AppConfig

	// Setup logging
	appLog, err := logger.New(cfg.LogMode, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLog.Sync()

	if !envFileLoaded {
		appLog.Info("No .env file found, using environment variables")
	}
	if cfgErr != nil {
		appLog.Fatal("Invalid configuration", "error", cfgErr)
	}

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		appLog.Fatal("Failed to initialize database", "error", err)
	}
	defer dbStore.Close()

	// Initialize the model gateway
	gemini, err := core.NewGeminiModel(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		appLog.Fatal("Failed to initialize model client", "error", err)
	}
	model := core.Chain(gemini,
		core.WithLogging(appLog),
		core.WithRetry(cfg.ModelMaxAttempts, cfg.ModelRetryBase),
		core.WithTimeout(cfg.ModelTimeout),
	)
	defer model.Close()

	// Initialize services
	accounts := core.NewAccountService(dbStore, appLog)
	ideas := core.NewIdeaService(dbStore)
	generation := core.NewGenerationService(dbStore, model, appLog, cfg.DefaultCurrency)
	chat := core.NewChatService(dbStore, model, appLog, cfg.DefaultCurrency, cfg.ChatHistoryLimit)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(accounts, ideas, generation, chat, appLog)
	router := api.NewRouter(apiHandler, appLog)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	// A plan generation may run several model attempts back to back.
	writeTimeout := time.Duration(cfg.ModelMaxAttempts)*cfg.ModelTimeout + 30*time.Second

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		appLog.Info("Starting server", "addr", serverAddr, "model", model.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal("Could not listen", "addr", serverAddr, "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	// Give in-flight generations time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLog.Error("Server forced to shutdown", "error", err)
		return
	}

	appLog.Info("Server exiting gracefully")
}
