package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mkugel/radiation-server/internal/export"
	"github.com/mkugel/radiation-server/internal/profile"
	"github.com/mkugel/radiation-server/internal/resample"
)

func newTestServer(t *testing.T) (*HTTPServer, string) {
	t.Helper()
	dir := t.TempDir()
	srv := NewHTTPServer(nil, nil, profile.Defaults(), dir)
	return srv, dir
}

func TestHealthHandler(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

func TestGetSeriesFromDisk(t *testing.T) {
	srv, dir := newTestServer(t)

	points := []resample.Point{
		{Time: "2025-06-10T10:00:00Z", Value: 18},
		{Time: "2025-06-10T10:15:00Z", Value: 20},
	}
	if _, err := export.WriteSeries(dir, "day", 70891, points); err != nil {
		t.Fatalf("WriteSeries failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/series/day/70891", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var doc export.SeriesDocument
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(doc.Series) != 2 {
		t.Errorf("Expected 2 points, got %d", len(doc.Series))
	}
	if doc.Series[1].Value != 20 {
		t.Errorf("Expected second value 20, got %v", doc.Series[1].Value)
	}
}

func TestGetSeriesUnknownProfile(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/series/year/70891", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown profile, got %d", rec.Code)
	}
}

func TestGetSeriesMissingSensor(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/series/day/999", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing series, got %d", rec.Code)
	}
}

func TestGetSeriesNonNumericSensorID(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/series/day/abc", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	// The route pattern only matches numeric IDs
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for non-numeric sensor id, got %d", rec.Code)
	}
}
