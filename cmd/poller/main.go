package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/mkugel/radiation-server/internal/fetch"
	"github.com/mkugel/radiation-server/internal/protocol"
	"github.com/mkugel/radiation-server/internal/queue"
	"github.com/mkugel/radiation-server/internal/scheduler"
	"github.com/mkugel/radiation-server/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	fmt.Println("Starting Poller Service...")

	// Create Kafka topics
	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicReadings,
		cfg.Kafka.NumPartitions,
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	if err := queue.CreateTopic(
		cfg.Kafka.Brokers,
		cfg.Kafka.TopicAlerts,
		1, // single partition for alerts
		1, // replication factor
	); err != nil {
		fmt.Printf("Note: Topic creation failed (may already exist): %v\n", err)
	}

	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicReadings)
	defer producer.Close()
	fmt.Println("Kafka producer initialized")

	client := fetch.NewClient(&cfg.Fetch)
	fmt.Printf("Polling %s every %s\n", client.FilterURL(), cfg.Fetch.Interval)

	sched := scheduler.New(2)
	sched.Start()
	defer sched.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var poll func()
	poll = func() {
		if err := pollOnce(ctx, client, producer); err != nil {
			fmt.Printf("Poll failed: %v\n", err)
		}
		sched.Schedule("poll", time.Now().Add(cfg.Fetch.Interval), poll)
	}
	sched.Schedule("poll", time.Now(), poll)

	fmt.Println("\n✓ Poller Service is running")
	fmt.Println("✓ Press Ctrl+C to stop")

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\nShutting down gracefully...")
	cancel()
}

// pollOnce fetches the current feed and publishes every reading
func pollOnce(ctx context.Context, client *fetch.Client, producer *queue.Producer) error {
	runID := uuid.New().String()
	receivedAt := time.Now().UTC()

	readings, err := client.FetchReadingsWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	messages := make([]kafka.Message, 0, len(readings))
	for _, reading := range readings {
		msg := &protocol.ReadingMessage{
			RunID:      runID,
			ReceivedAt: receivedAt,
			Reading:    *reading,
		}

		data, err := protocol.EncodeReadingMessage(msg)
		if err != nil {
			fmt.Printf("Failed to encode reading for sensor %d: %v\n", reading.SensorID, err)
			continue
		}

		messages = append(messages, kafka.Message{
			Key:   []byte(queue.SensorKey(reading.SensorID)),
			Value: data,
		})
	}

	if len(messages) == 0 {
		fmt.Printf("Poll %s: no readings\n", runID)
		return nil
	}

	if err := producer.PublishBatch(ctx, messages); err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	fmt.Printf("Poll %s: published %d readings\n", runID, len(messages))
	return nil
}
