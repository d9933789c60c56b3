package database

import (
	"time"
)

// Sensor represents one radiation sensor known to the system.
type Sensor struct {
	ID           int64
	SensorType   string
	Manufacturer string
	Lat          *float64
	Lon          *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RawReading represents one stored radiation measurement. CapturedAt keeps
// the feed's timestamp string verbatim (usually a naive wall-clock value);
// the resample engine owns its interpretation.
type RawReading struct {
	ID              int64
	SensorID        int64
	CapturedAt      string
	Counts          *float64
	CountsPerMinute *float64
	HVPulses        *float64
	SampleTimeMS    *float64
	ReceivedAt      time.Time
}

// LatestReading is one row of the newest-measurement-per-sensor query used
// for the GeoJSON export.
type LatestReading struct {
	SensorID        int64
	SensorType      string
	Lat             *float64
	Lon             *float64
	CapturedAt      string
	CountsPerMinute *float64
}
