package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chat-relay/internal/config"
	apihttp "chat-relay/internal/http"
	"chat-relay/internal/llm"
	"chat-relay/internal/repository"
	"chat-relay/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	backend, err := repository.Open(ctx, &cfg.StoreConfig, logger)
	if err != nil {
		logger.Fatal("store open", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer backend.Close()

	llmClient := llm.NewAnthropicClient(llm.Options{
		BaseURL:      cfg.LLMBaseURL,
		APIKey:       cfg.LLMAPIKey,
		Model:        cfg.LLMModel,
		MaxTokens:    cfg.LLMMaxTokens,
		SystemPrompt: cfg.LLMSystemPrompt,
		Timeout:      cfg.LLMTimeout,
	}, logger)

	locker := service.NewMemoryConversationLocker()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-process conversation locks", zap.Error(err))
		} else {
			locker = service.NewRedisConversationLocker(redisClient, cfg.LockTTL, logger)
		}
		cancel()
	}

	chatSvc := service.NewChatService(backend.Store, llmClient, locker, logger)
	convoHandler := apihttp.NewConversationHandler(logger, backend.Store, chatSvc, backend)
	router := apihttp.NewRouter(logger, convoHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server",
		zap.String("port", cfg.HTTPPort),
		zap.String("store", backend.Name),
		zap.String("model", cfg.LLMModel),
	)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
