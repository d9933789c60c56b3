package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mkugel/radiation-server/internal/database"
)

// GeoJSONFileName is the published name of the latest-readings layer.
const GeoJSONFileName = "latest.geojson"

// FeatureCollection is a minimal GeoJSON document for the map layer.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"` // lon, lat
}

// BuildFeatureCollection turns each sensor's newest reading into a GeoJSON
// point. Readings without usable coordinates are skipped.
func BuildFeatureCollection(latest []*database.LatestReading) *FeatureCollection {
	fc := &FeatureCollection{
		Type:     "FeatureCollection",
		Features: []Feature{},
	}

	for _, l := range latest {
		if l.Lat == nil || l.Lon == nil {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: [2]float64{*l.Lon, *l.Lat},
			},
			Properties: map[string]any{
				"sensor_id":        l.SensorID,
				"sensor_type":      l.SensorType,
				"count_per_minute": l.CountsPerMinute,
				"timestamp":        l.CapturedAt,
			},
		})
	}

	return fc
}

// WriteGeoJSON writes the latest-readings layer to the output directory.
func WriteGeoJSON(outputDir string, fc *FeatureCollection) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	path := filepath.Join(outputDir, GeoJSONFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write GeoJSON file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to rename GeoJSON file: %w", err)
	}

	return path, nil
}
