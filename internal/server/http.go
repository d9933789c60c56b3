// Package server exposes the read-only HTTP API: sensor listing, resampled
// series per export profile, and the latest-positions GeoJSON.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mkugel/radiation-server/internal/cache"
	"github.com/mkugel/radiation-server/internal/database"
	"github.com/mkugel/radiation-server/internal/export"
	"github.com/mkugel/radiation-server/internal/profile"
)

// HTTPServer serves the public API
type HTTPServer struct {
	db        *database.DB
	cache     *cache.SeriesCache
	profiles  map[string]profile.Profile
	outputDir string
	srv       *http.Server
}

// NewHTTPServer creates a new HTTP server. cache may be nil.
func NewHTTPServer(db *database.DB, seriesCache *cache.SeriesCache, profiles []profile.Profile, outputDir string) *HTTPServer {
	byName := make(map[string]profile.Profile, len(profiles))
	for _, p := range profiles {
		byName[p.Name] = p
	}

	return &HTTPServer{
		db:        db,
		cache:     seriesCache,
		profiles:  byName,
		outputDir: outputDir,
	}
}

// Router builds the API router
func (s *HTTPServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.healthHandler).Methods("GET")
	r.HandleFunc("/api/sensors", s.listSensorsHandler).Methods("GET")
	r.HandleFunc("/api/sensors/{sensorID:[0-9]+}", s.getSensorHandler).Methods("GET")
	r.HandleFunc("/api/series/{profile}/{sensorID:[0-9]+}", s.getSeriesHandler).Methods("GET")
	r.HandleFunc("/api/latest.geojson", s.latestGeoJSONHandler).Methods("GET")

	return r
}

// Start starts listening on the given port with the given handler chain
func (s *HTTPServer) Start(port int, handler http.Handler) error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	fmt.Printf("HTTP server listening on %s\n", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully
func (s *HTTPServer) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func (s *HTTPServer) healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *HTTPServer) listSensorsHandler(w http.ResponseWriter, _ *http.Request) {
	ids, err := s.db.ListSensorIDs()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sensors")
		return
	}

	writeJSON(w, map[string]any{"sensors": ids})
}

func (s *HTTPServer) getSensorHandler(w http.ResponseWriter, r *http.Request) {
	sensorID, err := strconv.ParseInt(mux.Vars(r)["sensorID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sensor id")
		return
	}

	sensor, err := s.db.GetSensor(sensorID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load sensor")
		return
	}
	if sensor == nil {
		writeError(w, http.StatusNotFound, "sensor not found")
		return
	}

	writeJSON(w, map[string]any{
		"id":           sensor.ID,
		"sensor_type":  sensor.SensorType,
		"manufacturer": sensor.Manufacturer,
		"lat":          sensor.Lat,
		"lon":          sensor.Lon,
	})
}

// getSeriesHandler serves a resampled series, preferring the cache and
// falling back to the series file written by the last pipeline run.
func (s *HTTPServer) getSeriesHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	profileName := vars["profile"]
	if _, ok := s.profiles[profileName]; !ok {
		writeError(w, http.StatusNotFound, "unknown profile")
		return
	}

	sensorID, err := strconv.ParseInt(vars["sensorID"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid sensor id")
		return
	}

	if s.cache != nil {
		entry, err := s.cache.Get(r.Context(), profileName, sensorID)
		if err != nil {
			fmt.Printf("Cache lookup failed for %s/%d: %v\n", profileName, sensorID, err)
		} else if entry != nil {
			writeJSON(w, entry)
			return
		}
	}

	doc, err := export.ReadSeries(s.outputDir, profileName, sensorID)
	if err != nil {
		writeError(w, http.StatusNotFound, "series not found")
		return
	}

	writeJSON(w, doc)
}

func (s *HTTPServer) latestGeoJSONHandler(w http.ResponseWriter, _ *http.Request) {
	latest, err := s.db.GetLatestReadings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load latest readings")
		return
	}

	fc := export.BuildFeatureCollection(latest)

	w.Header().Set("Content-Type", "application/geo+json")
	json.NewEncoder(w).Encode(fc)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
