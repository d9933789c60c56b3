// Package fetch polls the sensor.community filter API for radiation sensor
// readings.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mkugel/radiation-server/internal/protocol"
	"github.com/mkugel/radiation-server/pkg/config"
)

// Client fetches filtered sensor data over HTTP.
type Client struct {
	baseURL     string
	sensorTypes []string
	countries   []string
	userAgent   string
	http        *http.Client
}

// NewClient creates a client from the fetch configuration.
func NewClient(cfg *config.FetchConfig) *Client {
	return &Client{
		baseURL:     cfg.BaseURL,
		sensorTypes: cfg.SensorTypes,
		countries:   cfg.Countries,
		userAgent:   cfg.UserAgent,
		http:        &http.Client{Timeout: cfg.Timeout},
	}
}

// FilterURL builds the filter query the API expects, e.g.
// ".../filter/type=Radiation%20Si22G,Radiation%20SBM-20&country=DE,NL".
// The filter segment is path-escaped as a whole; the API does not parse it
// as a regular query string.
func (c *Client) FilterURL() string {
	parts := []string{"type=" + strings.Join(c.sensorTypes, ",")}
	if len(c.countries) > 0 {
		parts = append(parts, "country="+strings.Join(c.countries, ","))
	}
	query := strings.Join(parts, "&")

	escaped := strings.ReplaceAll(query, " ", "%20")
	return c.baseURL + escaped
}

// FetchReadings retrieves the current filtered feed and flattens it into
// readings. Records that cannot be flattened are skipped, not fatal: partial
// feeds are the normal case.
func (c *Client) FetchReadings(ctx context.Context) ([]*protocol.Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.FilterURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed body: %w", err)
	}

	records, err := protocol.ParseFeed(body)
	if err != nil {
		return nil, err
	}

	readings := make([]*protocol.Reading, 0, len(records))
	skipped := 0
	for i := range records {
		reading, err := records[i].Flatten()
		if err != nil {
			skipped++
			continue
		}
		readings = append(readings, reading)
	}
	if skipped > 0 {
		fmt.Printf("Skipped %d unusable feed records\n", skipped)
	}

	return readings, nil
}

// retryDelays for transient fetch failures.
var retryDelays = []time.Duration{5 * time.Second, 30 * time.Second}

// FetchReadingsWithRetry retries transient failures a couple of times before
// giving up until the next poll.
func (c *Client) FetchReadingsWithRetry(ctx context.Context) ([]*protocol.Reading, error) {
	readings, err := c.FetchReadings(ctx)
	for attempt := 0; err != nil && attempt < len(retryDelays); attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelays[attempt]):
		}
		readings, err = c.FetchReadings(ctx)
	}
	return readings, err
}
