// Package protocol defines the wire formats: the sensor.community feed
// envelope consumed by the poller and the internal Kafka messages.
package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Feed value types relevant for radiation sensors.
const (
	ValueCounts          = "counts"
	ValueCountsPerMinute = "counts_per_minute"
	ValueHVPulses        = "hv_pulses"
	ValueSampleTimeMS    = "sample_time_ms"
)

// FeedRecord is one entry of the sensor.community filter API response.
type FeedRecord struct {
	ID               int64        `json:"id"`
	Timestamp        string       `json:"timestamp"`
	Location         FeedLocation `json:"location"`
	Sensor           FeedSensor   `json:"sensor"`
	SensorDataValues []FeedValue  `json:"sensordatavalues"`
}

// FeedLocation carries coordinates; the feed serializes them as strings.
type FeedLocation struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Country   string `json:"country"`
}

type FeedSensor struct {
	ID         int64          `json:"id"`
	SensorType FeedSensorType `json:"sensor_type"`
}

type FeedSensorType struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
}

// FeedValue is one measurement item. Value arrives as a string for most
// sensors but as a bare number for some firmware versions.
type FeedValue struct {
	ValueType string `json:"value_type"`
	Value     any    `json:"value"`
}

// Reading is a flattened radiation measurement, the unit of everything
// downstream of the poller.
type Reading struct {
	SensorID        int64    `json:"sensor_id"`
	SensorType      string   `json:"sensor_type"`
	Manufacturer    string   `json:"manufacturer"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	CapturedAt      string   `json:"captured_at"`
	Counts          *float64 `json:"counts,omitempty"`
	CountsPerMinute *float64 `json:"counts_per_minute,omitempty"`
	HVPulses        *float64 `json:"hv_pulses,omitempty"`
	SampleTimeMS    *float64 `json:"sample_time_ms,omitempty"`
}

// ParseFeed decodes a filter API response body.
func ParseFeed(data []byte) ([]FeedRecord, error) {
	var records []FeedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("invalid feed JSON: %w", err)
	}
	return records, nil
}

// Flatten reduces a feed record to a Reading. Records without a sensor ID or
// timestamp are rejected; individual bad measurement values just come out
// nil. The timestamp is kept verbatim — the feed reports naive wall-clock
// strings and the resample engine owns their interpretation.
func (r *FeedRecord) Flatten() (*Reading, error) {
	if r.Sensor.ID == 0 {
		return nil, fmt.Errorf("feed record %d: missing sensor id", r.ID)
	}
	if strings.TrimSpace(r.Timestamp) == "" {
		return nil, fmt.Errorf("feed record %d: missing timestamp", r.ID)
	}

	reading := &Reading{
		SensorID:     r.Sensor.ID,
		SensorType:   r.Sensor.SensorType.Name,
		Manufacturer: r.Sensor.SensorType.Manufacturer,
		Latitude:     parseCoord(r.Location.Latitude),
		Longitude:    parseCoord(r.Location.Longitude),
		CapturedAt:   strings.TrimSpace(r.Timestamp),
	}

	for _, v := range r.SensorDataValues {
		num := numericValue(v.Value)
		switch v.ValueType {
		case ValueCounts:
			reading.Counts = num
		case ValueCountsPerMinute:
			reading.CountsPerMinute = num
		case ValueHVPulses:
			reading.HVPulses = num
		case ValueSampleTimeMS:
			reading.SampleTimeMS = num
		}
	}

	return reading, nil
}

func parseCoord(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func numericValue(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return &f
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}
