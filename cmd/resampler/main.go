package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/redis/go-redis/v9"

	"github.com/mkugel/radiation-server/internal/cache"
	"github.com/mkugel/radiation-server/internal/database"
	"github.com/mkugel/radiation-server/internal/pipeline"
	"github.com/mkugel/radiation-server/internal/profile"
	"github.com/mkugel/radiation-server/internal/scheduler"
	"github.com/mkugel/radiation-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Resampler Service...")

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	fmt.Println("Connected to database")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis is optional; without it series are still written to disk
	var sink pipeline.SeriesSink
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		fmt.Printf("Note: Redis unavailable, series cache disabled: %v\n", err)
	} else {
		sink = cache.NewSeriesCache(redisClient, cfg.Resample.CacheTTL)
		fmt.Println("Connected to Redis")
	}

	profiles, err := profile.Load(cfg.Resample.ProfilesPath)
	if err != nil {
		log.Fatalf("Failed to load profiles: %v", err)
	}
	for _, p := range profiles {
		fmt.Printf("Profile %q: %d-minute bins, %.1f-day lookback\n",
			p.Name, p.IntervalMinutes, p.LookbackDays)
	}

	runner := pipeline.NewRunner(db, sink, profiles, cfg.Resample.TimeZone,
		cfg.Resample.OutputDir, cfg.Resample.Workers)

	sched := scheduler.New(2)
	sched.Start()
	defer sched.Stop()

	var run func()
	run = func() {
		if _, err := runner.Run(ctx); err != nil {
			fmt.Printf("Pipeline run failed: %v\n", err)
		}
		next := scheduler.NextRunTime(time.Now(), cfg.Resample.Interval, time.Minute)
		sched.Schedule("resample", next, run)
	}
	sched.Schedule("resample", time.Now(), run)

	fmt.Println("\n✓ Resampler Service is running")
	fmt.Printf("✓ Generating series every %s into %s\n", cfg.Resample.Interval, cfg.Resample.OutputDir)
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
}
