package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/eduquest/adventure-engine/internal/auth"
	"github.com/eduquest/adventure-engine/internal/config"
	"github.com/eduquest/adventure-engine/internal/engine"
	"github.com/eduquest/adventure-engine/internal/handlers"
	"github.com/eduquest/adventure-engine/internal/logger"
	"github.com/eduquest/adventure-engine/internal/middleware"
	"github.com/eduquest/adventure-engine/internal/services"
	"github.com/eduquest/adventure-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Adventure Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	var llmService services.LLMService
	var imageService services.ImageService
	switch strings.ToLower(cfg.LLMProvider) {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			log.Error("OpenAI API key is required when using openai provider")
			os.Exit(1)
		}
		openAI := services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.ImageModelName, log)
		llmService = openAI
		if cfg.ImageModelName != "" {
			imageService = openAI
		}
		log.Info("Using OpenAI LLM provider")
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			log.Error("Anthropic API key is required when using anthropic provider")
			os.Exit(1)
		}
		llmService = services.NewAnthropicService(cfg.AnthropicAPIKey, cfg.ModelName, log)
		// Image generation stays on OpenAI when a key is available.
		if cfg.OpenAIAPIKey != "" && cfg.ImageModelName != "" {
			imageService = services.NewOpenAIService(cfg.OpenAIAPIKey, cfg.ModelName, cfg.ImageModelName, log)
		}
		log.Info("Using Anthropic LLM provider")
	default:
		log.Error("Invalid LLM provider specified", "provider", cfg.LLMProvider, "supported", []string{"openai", "anthropic"})
		os.Exit(1)
	}

	var store storage.Storage = storage.NewRedisStorage(cfg.RedisURL, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := store.Ping(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		log.Error("Failed to initialize token service", "error", err)
		os.Exit(1)
	}

	eng := engine.New(store, engine.NewGenerator(llmService, log), imageService, log)
	requireAuth := middleware.Auth(tokens, store, log)

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(store, log)
	mux.Handle("/health", healthHandler)

	authHandler := handlers.NewAuthHandler(store, tokens, log)
	mux.Handle("/v1/auth/signup", authHandler)
	mux.Handle("/v1/auth/login", authHandler)
	mux.Handle("/v1/auth/logout", requireAuth(authHandler))
	mux.Handle("/v1/auth/me", requireAuth(authHandler))

	gamesHandler := handlers.NewGamesHandler(store, eng, log)
	mux.Handle("/v1/games", requireAuth(gamesHandler))
	mux.Handle("/v1/games/", requireAuth(gamesHandler))

	charactersHandler := handlers.NewCharactersHandler(store, eng, log)
	mux.Handle("/v1/characters", requireAuth(charactersHandler))
	mux.Handle("/v1/characters/", requireAuth(charactersHandler))

	generateHandler := handlers.NewGenerateHandler(store, eng, log)
	mux.Handle("/v1/ai/", requireAuth(generateHandler))

	handler := middleware.Logger(mux, log)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation endpoints wait on the model
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("Server exited")
}
