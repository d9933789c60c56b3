package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/mkugel/radiation-server/internal/database"
	"github.com/mkugel/radiation-server/internal/protocol"
)

// BatchWriter consumes readings from Kafka and batch-writes them to the
// database.
type BatchWriter struct {
	consumer      *Consumer
	db            *database.DB
	batchSize     int
	flushInterval time.Duration
	stopCh        chan struct{}
	wg            sync.WaitGroup
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(consumer *Consumer, db *database.DB, batchSize int, flushInterval time.Duration) *BatchWriter {
	return &BatchWriter{
		consumer:      consumer,
		db:            db,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start begins consuming and writing to database
func (bw *BatchWriter) Start(ctx context.Context) error {
	bw.wg.Add(1)
	go bw.run(ctx)
	return nil
}

// Stop stops the batch writer gracefully
func (bw *BatchWriter) Stop() {
	close(bw.stopCh)
	bw.wg.Wait()
}

func (bw *BatchWriter) run(ctx context.Context) {
	defer bw.wg.Done()

	var batch []kafka.Message
	ticker := time.NewTicker(bw.flushInterval)
	defer ticker.Stop()

	msgChan := make(chan kafka.Message, 10)
	go func() {
		for {
			msg, err := bw.consumer.Consume(ctx)
			if err != nil {
				fmt.Printf("Consumer error: %v\n", err)
				continue
			}
			msgChan <- msg
		}
	}()

	for {
		select {
		case <-bw.stopCh:
			// Flush remaining batch before stopping
			if len(batch) > 0 {
				bw.flush(ctx, batch)
			}
			return

		case <-ticker.C:
			if len(batch) > 0 {
				fmt.Printf("Flush interval reached (%d messages), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}

		case msg := <-msgChan:
			batch = append(batch, msg)

			if len(batch) >= bw.batchSize {
				fmt.Printf("Batch full (%d messages), flushing...\n", len(batch))
				bw.flush(ctx, batch)
				batch = nil
			}
		}
	}
}

func (bw *BatchWriter) flush(ctx context.Context, batch []kafka.Message) {
	if len(batch) == 0 {
		return
	}

	successCount := 0
	for _, msg := range batch {
		if err := bw.processMessage(msg); err != nil {
			fmt.Printf("Failed to process message: %v\n", err)
			// Commit anyway: a reading that cannot be stored now will
			// not become storable on redelivery.
		} else {
			successCount++
		}

		if err := bw.consumer.Commit(ctx, msg); err != nil {
			fmt.Printf("Failed to commit offset: %v\n", err)
		}
	}

	fmt.Printf("Flushed batch: %d/%d readings written\n", successCount, len(batch))
}

func (bw *BatchWriter) processMessage(msg kafka.Message) error {
	readingMsg, err := protocol.DecodeReadingMessage(msg.Value)
	if err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	r := readingMsg.Reading

	sensor := &database.Sensor{
		ID:           r.SensorID,
		SensorType:   r.SensorType,
		Manufacturer: r.Manufacturer,
		Lat:          r.Latitude,
		Lon:          r.Longitude,
	}
	if err := bw.db.UpsertSensor(sensor); err != nil {
		return fmt.Errorf("failed to upsert sensor %d: %w", r.SensorID, err)
	}

	raw := &database.RawReading{
		SensorID:        r.SensorID,
		CapturedAt:      r.CapturedAt,
		Counts:          r.Counts,
		CountsPerMinute: r.CountsPerMinute,
		HVPulses:        r.HVPulses,
		SampleTimeMS:    r.SampleTimeMS,
		ReceivedAt:      readingMsg.ReceivedAt,
	}
	if err := bw.db.InsertRawReading(raw); err != nil {
		return fmt.Errorf("failed to insert reading for sensor %d: %w", r.SensorID, err)
	}

	return nil
}
