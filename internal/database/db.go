package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// DB wraps the database connection
type DB struct {
	*sql.DB
}

// Connect establishes a connection to the database
func Connect(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// RunMigrations executes all SQL migration files in order
func (db *DB) RunMigrations(migrationsDir string) error {
	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".sql") {
			sqlFiles = append(sqlFiles, file.Name())
		}
	}
	sort.Strings(sqlFiles)

	for _, filename := range sqlFiles {
		fmt.Printf("Running migration: %s\n", filename)

		filePath := filepath.Join(migrationsDir, filename)
		content, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	fmt.Println("All migrations completed successfully")
	return nil
}

// UpsertSensor inserts or updates a sensor's metadata
func (db *DB) UpsertSensor(s *Sensor) error {
	query := `
		INSERT INTO sensors (id, sensor_type, manufacturer, lat, lon)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET sensor_type = EXCLUDED.sensor_type,
		    manufacturer = EXCLUDED.manufacturer,
		    lat = EXCLUDED.lat,
		    lon = EXCLUDED.lon,
		    updated_at = CURRENT_TIMESTAMP
	`
	_, err := db.Exec(query, s.ID, s.SensorType, s.Manufacturer, s.Lat, s.Lon)
	return err
}

// InsertRawReading inserts a raw radiation reading. Duplicate readings for
// the same sensor and captured_at are ignored, mirroring the dedup the feed
// requires when polls overlap.
func (db *DB) InsertRawReading(r *RawReading) error {
	query := `
		INSERT INTO raw_readings (
			sensor_id, captured_at, counts, counts_per_minute,
			hv_pulses, sample_time_ms, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (sensor_id, captured_at) DO NOTHING
	`

	_, err := db.Exec(
		query,
		r.SensorID,
		r.CapturedAt,
		r.Counts,
		r.CountsPerMinute,
		r.HVPulses,
		r.SampleTimeMS,
		r.ReceivedAt,
	)
	return err
}

// ListSensorIDs returns every sensor that has at least one reading
func (db *DB) ListSensorIDs() ([]int64, error) {
	rows, err := db.Query(`SELECT DISTINCT sensor_id FROM raw_readings ORDER BY sensor_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetReadings returns all readings for a sensor ordered by captured_at
func (db *DB) GetReadings(sensorID int64) ([]*RawReading, error) {
	query := `
		SELECT id, sensor_id, captured_at, counts, counts_per_minute,
		       hv_pulses, sample_time_ms, received_at
		FROM raw_readings
		WHERE sensor_id = $1
		ORDER BY captured_at
	`

	rows, err := db.Query(query, sensorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []*RawReading
	for rows.Next() {
		var r RawReading
		if err := rows.Scan(
			&r.ID,
			&r.SensorID,
			&r.CapturedAt,
			&r.Counts,
			&r.CountsPerMinute,
			&r.HVPulses,
			&r.SampleTimeMS,
			&r.ReceivedAt,
		); err != nil {
			return nil, err
		}
		readings = append(readings, &r)
	}

	return readings, rows.Err()
}

// GetSensor retrieves a sensor by ID
func (db *DB) GetSensor(id int64) (*Sensor, error) {
	query := `
		SELECT id, sensor_type, manufacturer, lat, lon, created_at, updated_at
		FROM sensors
		WHERE id = $1
	`

	var s Sensor
	err := db.QueryRow(query, id).Scan(
		&s.ID,
		&s.SensorType,
		&s.Manufacturer,
		&s.Lat,
		&s.Lon,
		&s.CreatedAt,
		&s.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}

// GetLatestReadings returns each sensor's newest reading with its location,
// used to build the latest-values GeoJSON layer.
func (db *DB) GetLatestReadings() ([]*LatestReading, error) {
	query := `
		SELECT r.sensor_id, s.sensor_type, s.lat, s.lon, r.captured_at, r.counts_per_minute
		FROM raw_readings r
		JOIN (
			SELECT sensor_id, MAX(captured_at) AS max_captured
			FROM raw_readings
			GROUP BY sensor_id
		) m ON r.sensor_id = m.sensor_id AND r.captured_at = m.max_captured
		JOIN sensors s ON s.id = r.sensor_id
		ORDER BY r.sensor_id
	`

	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var latest []*LatestReading
	for rows.Next() {
		var l LatestReading
		if err := rows.Scan(
			&l.SensorID,
			&l.SensorType,
			&l.Lat,
			&l.Lon,
			&l.CapturedAt,
			&l.CountsPerMinute,
		); err != nil {
			return nil, err
		}
		latest = append(latest, &l)
	}

	return latest, rows.Err()
}

// MeanPositiveCPM returns the network-wide mean of strictly positive
// counts-per-minute readings, the baseline for alert evaluation.
func (db *DB) MeanPositiveCPM() (float64, error) {
	var mean sql.NullFloat64
	err := db.QueryRow(`
		SELECT AVG(counts_per_minute)
		FROM raw_readings
		WHERE counts_per_minute > 0
	`).Scan(&mean)
	if err != nil {
		return 0, err
	}
	if !mean.Valid {
		return 0, nil
	}
	return mean.Float64, nil
}
