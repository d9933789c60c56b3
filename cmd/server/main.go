package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/redis/go-redis/v9"

	"github.com/mkugel/radiation-server/internal/cache"
	"github.com/mkugel/radiation-server/internal/database"
	"github.com/mkugel/radiation-server/internal/profile"
	"github.com/mkugel/radiation-server/internal/server"
	"github.com/mkugel/radiation-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting API Server...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	if err := db.RunMigrations("migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()

	// Redis is optional; without it series are served from disk
	var seriesCache *cache.SeriesCache
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		fmt.Printf("Note: Redis unavailable, serving series from disk: %v\n", err)
	} else {
		seriesCache = cache.NewSeriesCache(redisClient, cfg.Resample.CacheTTL)
		fmt.Println("Connected to Redis")
	}

	profiles, err := profile.Load(cfg.Resample.ProfilesPath)
	if err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}

	httpServer := server.NewHTTPServer(db, seriesCache, profiles, cfg.Resample.OutputDir)

	router := httpServer.Router()
	logged := handlers.LoggingHandler(os.Stdout, handlers.CompressHandler(router))

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(cfg.HTTPServer.Port, logged)
	}()

	fmt.Println("\n✓ API Server is running")
	fmt.Printf("✓ Listening on port %d\n", cfg.HTTPServer.Port)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal or server failure
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	fmt.Println("\nShutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Stop(shutdownCtx); err != nil {
		fmt.Printf("Shutdown error: %v\n", err)
	}
	fmt.Println("API Server stopped")
}
