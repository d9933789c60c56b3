// Package pipeline turns stored raw readings into published series and the
// latest-positions GeoJSON, fanning the per-sensor work out over a worker
// pool.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mkugel/radiation-server/internal/cache"
	"github.com/mkugel/radiation-server/internal/database"
	"github.com/mkugel/radiation-server/internal/export"
	"github.com/mkugel/radiation-server/internal/profile"
	"github.com/mkugel/radiation-server/internal/resample"
)

// Store is the slice of the database layer the pipeline reads from.
type Store interface {
	ListSensorIDs() ([]int64, error)
	GetReadings(sensorID int64) ([]*database.RawReading, error)
	GetLatestReadings() ([]*database.LatestReading, error)
}

// SeriesSink receives a finished series. The cache sink is optional.
type SeriesSink interface {
	Set(ctx context.Context, entry *cache.CachedSeries) error
}

// SensorJob represents one sensor/profile combination to resample
type SensorJob struct {
	RunID    string
	SensorID int64
	Profile  profile.Profile
}

// Runner generates series files for every sensor and profile
type Runner struct {
	store     Store
	sink      SeriesSink
	profiles  []profile.Profile
	timeZone  string
	outputDir string

	workerCount  int
	jobQueueSize int
}

// NewRunner creates a new pipeline runner. sink may be nil when no cache is
// configured.
func NewRunner(store Store, sink SeriesSink, profiles []profile.Profile, timeZone, outputDir string, workerCount int) *Runner {
	if workerCount <= 0 {
		workerCount = 4
	}

	return &Runner{
		store:        store,
		sink:         sink,
		profiles:     profiles,
		timeZone:     timeZone,
		outputDir:    outputDir,
		workerCount:  workerCount,
		jobQueueSize: 256,
	}
}

// RunStats summarizes one pipeline run
type RunStats struct {
	RunID     string
	Sensors   int
	Series    int
	Failed    int
	StartedAt time.Time
	Duration  time.Duration
}

// Run resamples every known sensor under every profile, writes the series
// files, and refreshes the latest-positions GeoJSON.
func (r *Runner) Run(ctx context.Context) (*RunStats, error) {
	runID := uuid.New().String()
	startedAt := time.Now()

	sensorIDs, err := r.store.ListSensorIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list sensors: %w", err)
	}

	fmt.Printf("Pipeline run %s: %d sensors, %d profiles\n", runID, len(sensorIDs), len(r.profiles))

	jobQueue := make(chan *SensorJob, r.jobQueueSize)

	var mu sync.Mutex
	series := 0
	failed := 0

	var wg sync.WaitGroup
	for i := 0; i < r.workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for job := range jobQueue {
				if err := r.processJob(ctx, job); err != nil {
					fmt.Printf("Worker %d: failed sensor %d profile %s: %v\n",
						workerID, job.SensorID, job.Profile.Name, err)
					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}
				mu.Lock()
				series++
				mu.Unlock()
			}
		}(i)
	}

	for _, sensorID := range sensorIDs {
		for _, p := range r.profiles {
			select {
			case <-ctx.Done():
				close(jobQueue)
				wg.Wait()
				return nil, ctx.Err()
			case jobQueue <- &SensorJob{RunID: runID, SensorID: sensorID, Profile: p}:
			}
		}
	}
	close(jobQueue)
	wg.Wait()

	if err := r.exportLatest(); err != nil {
		fmt.Printf("Pipeline run %s: GeoJSON export failed: %v\n", runID, err)
	}

	stats := &RunStats{
		RunID:     runID,
		Sensors:   len(sensorIDs),
		Series:    series,
		Failed:    failed,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}

	fmt.Printf("Pipeline run %s finished: %d series, %d failed, took %s\n",
		runID, stats.Series, stats.Failed, stats.Duration.Round(time.Millisecond))

	return stats, nil
}

// processJob resamples one sensor under one profile and publishes the result
func (r *Runner) processJob(ctx context.Context, job *SensorJob) error {
	readings, err := r.store.GetReadings(job.SensorID)
	if err != nil {
		return fmt.Errorf("failed to load readings: %w", err)
	}

	// Null-valued readings go through as-is: their timestamps still anchor
	// the bin range, and the engine decides what counts as data.
	samples := make([]resample.Sample, 0, len(readings))
	for _, reading := range readings {
		var value any
		if reading.CountsPerMinute != nil {
			value = *reading.CountsPerMinute
		}
		samples = append(samples, resample.Sample{
			Time:  reading.CapturedAt,
			Value: value,
		})
	}

	points := resample.Series(samples, resample.Options{
		IntervalMinutes: job.Profile.IntervalMinutes,
		TimeZone:        r.timeZone,
		LookbackDays:    job.Profile.LookbackDays,
		SkipZeros:       job.Profile.SkipZeros,
	})

	if _, err := export.WriteSeries(r.outputDir, job.Profile.Name, job.SensorID, points); err != nil {
		return fmt.Errorf("failed to write series file: %w", err)
	}

	if r.sink != nil {
		entry := &cache.CachedSeries{
			SensorID:    job.SensorID,
			Profile:     job.Profile.Name,
			GeneratedAt: time.Now(),
			Series:      points,
		}
		if err := r.sink.Set(ctx, entry); err != nil {
			fmt.Printf("Failed to cache series for sensor %d: %v\n", job.SensorID, err)
		}
	}

	return nil
}

// exportLatest refreshes the latest-positions GeoJSON file
func (r *Runner) exportLatest() error {
	latest, err := r.store.GetLatestReadings()
	if err != nil {
		return fmt.Errorf("failed to load latest readings: %w", err)
	}

	fc := export.BuildFeatureCollection(latest)
	if _, err := export.WriteGeoJSON(r.outputDir, fc); err != nil {
		return err
	}

	return nil
}
