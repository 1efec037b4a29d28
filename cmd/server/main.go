package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/addu10/CareerBridge/internal/ai"
	"github.com/addu10/CareerBridge/internal/cache"
	"github.com/addu10/CareerBridge/internal/config"
	internalhttp "github.com/addu10/CareerBridge/internal/http"
	"github.com/addu10/CareerBridge/internal/repository"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection failed: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Printf("redis unavailable, profile cache disabled: %v", err)
			redisClient = nil
		}
	}
	profileCache := cache.New(redisClient, cfg.ProfileCacheTTL)

	aiClient := ai.New(cfg.AIServiceURL, cfg.AIServiceKey, cfg.AITimeout)
	if aiClient == nil {
		log.Print("AI_SERVICE_URL not set, AI endpoints disabled")
	}

	store := repository.NewStore(pool)
	server := internalhttp.NewServer(cfg, store, profileCache, aiClient)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("careerbridge listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
}
