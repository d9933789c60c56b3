// Package export writes the published artifacts: per-sensor series JSON
// files and the latest-readings GeoJSON layer.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkugel/radiation-server/internal/resample"
)

// SeriesDocument is the on-disk shape of one exported series file.
type SeriesDocument struct {
	SensorID string           `json:"sensor_id"`
	Series   []resample.Point `json:"series"`
}

// SeriesFileName returns the file name for a sensor's series under a
// profile, e.g. "series_day_70001.json".
func SeriesFileName(profile string, sensorID int64) string {
	return fmt.Sprintf("series_%s_%d.json", profile, sensorID)
}

// WriteSeries writes one sensor's resampled series to the output directory.
// The write goes through a temp file and rename so readers never observe a
// partial document.
func WriteSeries(outputDir, profile string, sensorID int64, series []resample.Point) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	doc := SeriesDocument{
		SensorID: fmt.Sprintf("%d", sensorID),
		Series:   series,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal series: %w", err)
	}

	path := filepath.Join(outputDir, SeriesFileName(profile, sensorID))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write series file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to rename series file: %w", err)
	}

	return path, nil
}

// ReadSeries loads a previously written series file.
func ReadSeries(outputDir, profile string, sensorID int64) (*SeriesDocument, error) {
	path := filepath.Join(outputDir, SeriesFileName(profile, sensorID))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc SeriesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse series file %s: %w", path, err)
	}
	return &doc, nil
}
