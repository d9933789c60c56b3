package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// ReadingMessage is the internal message format for the readings topic.
type ReadingMessage struct {
	RunID      string    `json:"run_id"`
	ReceivedAt time.Time `json:"received_at"`
	Reading    Reading   `json:"reading"`
}

// AlertNotification is the message format for the alerts topic.
type AlertNotification struct {
	Type            string    `json:"type"` // ALERT_TRIGGERED, ALERT_CLEARED
	SensorID        int64     `json:"sensor_id"`
	SensorType      string    `json:"sensor_type"`
	CountsPerMinute float64   `json:"counts_per_minute"`
	NetworkMean     float64   `json:"network_mean"`
	MeanFactor      float64   `json:"mean_factor"`
	StartTime       time.Time `json:"start_time"`
}

const (
	AlertTypeTriggered = "ALERT_TRIGGERED"
	AlertTypeCleared   = "ALERT_CLEARED"
)

// EncodeReadingMessage encodes a ReadingMessage to JSON.
func EncodeReadingMessage(msg *ReadingMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeReadingMessage decodes JSON to a ReadingMessage and validates it.
func DecodeReadingMessage(data []byte) (*ReadingMessage, error) {
	var msg ReadingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("invalid reading message: %w", err)
	}
	if msg.Reading.SensorID == 0 {
		return nil, fmt.Errorf("reading message: missing sensor id")
	}
	if msg.Reading.CapturedAt == "" {
		return nil, fmt.Errorf("reading message: missing captured_at")
	}
	return &msg, nil
}

// EncodeAlertNotification encodes an AlertNotification to JSON.
func EncodeAlertNotification(alert *AlertNotification) ([]byte, error) {
	return json.Marshal(alert)
}

// DecodeAlertNotification decodes JSON to an AlertNotification.
func DecodeAlertNotification(data []byte) (*AlertNotification, error) {
	var alert AlertNotification
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, fmt.Errorf("invalid alert notification: %w", err)
	}
	return &alert, nil
}
