package protocol

import (
	"testing"
	"time"
)

const sampleFeed = `[
  {
    "id": 9001,
    "timestamp": "2025-06-10 10:02:03",
    "location": {"latitude": "48.137", "longitude": "11.575", "country": "DE"},
    "sensor": {"id": 70001, "sensor_type": {"name": "Radiation Si22G", "manufacturer": "EcoCurious"}},
    "sensordatavalues": [
      {"value_type": "counts_per_minute", "value": "18.6"},
      {"value_type": "counts", "value": 93},
      {"value_type": "hv_pulses", "value": "12"},
      {"value_type": "sample_time_ms", "value": "300000"},
      {"value_type": "temperature", "value": "21.5"}
    ]
  },
  {
    "id": 9002,
    "timestamp": "2025-06-10 10:03:00",
    "location": {"latitude": "not-a-number", "longitude": ""},
    "sensor": {"id": 70002, "sensor_type": {"name": "Radiation SBM-20", "manufacturer": "EcoCurious"}},
    "sensordatavalues": [
      {"value_type": "counts_per_minute", "value": "n/a"}
    ]
  }
]`

func TestParseFeed_Flatten(t *testing.T) {
	records, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseFeed failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	reading, err := records[0].Flatten()
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if reading.SensorID != 70001 {
		t.Errorf("Expected sensor 70001, got %d", reading.SensorID)
	}
	if reading.CapturedAt != "2025-06-10 10:02:03" {
		t.Errorf("Timestamp not kept verbatim: %q", reading.CapturedAt)
	}
	if reading.CountsPerMinute == nil || *reading.CountsPerMinute != 18.6 {
		t.Errorf("Expected counts_per_minute 18.6, got %v", reading.CountsPerMinute)
	}
	if reading.Counts == nil || *reading.Counts != 93 {
		t.Errorf("Expected counts 93 from numeric value, got %v", reading.Counts)
	}
	if reading.Latitude == nil || *reading.Latitude != 48.137 {
		t.Errorf("Expected latitude 48.137, got %v", reading.Latitude)
	}
	if reading.SensorType != "Radiation Si22G" || reading.Manufacturer != "EcoCurious" {
		t.Errorf("Unexpected sensor metadata: %s / %s", reading.SensorType, reading.Manufacturer)
	}
}

func TestFlatten_BadValuesBecomeNil(t *testing.T) {
	records, err := ParseFeed([]byte(sampleFeed))
	if err != nil {
		t.Fatalf("ParseFeed failed: %v", err)
	}

	reading, err := records[1].Flatten()
	if err != nil {
		t.Fatalf("Flatten failed: %v", err)
	}
	if reading.CountsPerMinute != nil {
		t.Errorf("Expected nil counts_per_minute for 'n/a', got %v", *reading.CountsPerMinute)
	}
	if reading.Latitude != nil || reading.Longitude != nil {
		t.Errorf("Expected nil coordinates, got %v / %v", reading.Latitude, reading.Longitude)
	}
}

func TestFlatten_MissingSensorID(t *testing.T) {
	r := FeedRecord{ID: 1, Timestamp: "2025-06-10 10:00:00"}
	if _, err := r.Flatten(); err == nil {
		t.Error("Expected error for missing sensor id")
	}
}

func TestFlatten_MissingTimestamp(t *testing.T) {
	r := FeedRecord{ID: 1, Sensor: FeedSensor{ID: 5}, Timestamp: "   "}
	if _, err := r.Flatten(); err == nil {
		t.Error("Expected error for blank timestamp")
	}
}

func TestReadingMessage_RoundTrip(t *testing.T) {
	cpm := 18.6
	msg := &ReadingMessage{
		RunID:      "run-1",
		ReceivedAt: time.Date(2025, 6, 10, 10, 5, 0, 0, time.UTC),
		Reading: Reading{
			SensorID:        70001,
			SensorType:      "Radiation Si22G",
			CapturedAt:      "2025-06-10 10:02:03",
			CountsPerMinute: &cpm,
		},
	}

	data, err := EncodeReadingMessage(msg)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := DecodeReadingMessage(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.Reading.SensorID != 70001 || *got.Reading.CountsPerMinute != 18.6 {
		t.Errorf("Round trip mismatch: %+v", got.Reading)
	}
}

func TestDecodeReadingMessage_Invalid(t *testing.T) {
	if _, err := DecodeReadingMessage([]byte(`{"reading":{}}`)); err == nil {
		t.Error("Expected error for missing sensor id")
	}
	if _, err := DecodeReadingMessage([]byte(`{"reading":{"sensor_id":5}}`)); err == nil {
		t.Error("Expected error for missing captured_at")
	}
	if _, err := DecodeReadingMessage([]byte(`not json`)); err == nil {
		t.Error("Expected error for invalid JSON")
	}
}
