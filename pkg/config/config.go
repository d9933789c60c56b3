package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Fetch      FetchConfig
	Resample   ResampleConfig
	Alerting   AlertingConfig
	HTTPServer HTTPServerConfig
	SMTP       SMTPConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

func (d DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers       []string
	TopicReadings string
	TopicAlerts   string
	NumPartitions int
}

// FetchConfig controls polling of the sensor.community filter API.
type FetchConfig struct {
	BaseURL     string
	SensorTypes []string
	Countries   []string
	UserAgent   string
	Timeout     time.Duration
	Interval    time.Duration
}

// ResampleConfig carries the engine defaults and the export profile file.
type ResampleConfig struct {
	TimeZone     string
	ProfilesPath string
	OutputDir    string
	Interval     time.Duration
	Workers      int
	CacheTTL     time.Duration
}

// AlertingConfig controls the mean-based radiation alerting.
type AlertingConfig struct {
	// MeanFactor is how far above the network-wide mean counts-per-minute
	// a sensor must read before an alert is considered.
	MeanFactor float64
	// PendingDuration is how long a breach must persist before the alert
	// fires.
	PendingDuration time.Duration
}

type HTTPServerConfig struct {
	Port int
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "radiation_user"),
			Password: getEnv("DB_PASSWORD", "radiation_pass"),
			DBName:   getEnv("DB_NAME", "radiation_db"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicReadings: getEnv("KAFKA_TOPIC_READINGS", "radiation.readings.raw"),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "radiation.alerts"),
			NumPartitions: getEnvAsInt("KAFKA_NUM_PARTITIONS", 10),
		},
		Fetch: FetchConfig{
			BaseURL:     getEnv("FETCH_BASE_URL", "https://data.sensor.community/airrohr/v1/filter/"),
			SensorTypes: strings.Split(getEnv("FETCH_SENSOR_TYPES", "Radiation Si22G,Radiation SBM-20,Radiation SBM-19"), ","),
			Countries:   splitNonEmpty(getEnv("FETCH_COUNTRIES", "")),
			UserAgent:   getEnv("FETCH_USER_AGENT", "radiation-server/1.0 (+https://example.org; contact: ops@example.org)"),
			Timeout:     getEnvAsDuration("FETCH_TIMEOUT", 10*time.Second),
			Interval:    getEnvAsDuration("FETCH_INTERVAL", 5*time.Minute),
		},
		Resample: ResampleConfig{
			TimeZone:     getEnv("RESAMPLE_TIMEZONE", "Europe/Berlin"),
			ProfilesPath: getEnv("RESAMPLE_PROFILES", "profiles.yaml"),
			OutputDir:    getEnv("RESAMPLE_OUTPUT_DIR", "data"),
			Interval:     getEnvAsDuration("RESAMPLE_INTERVAL", 15*time.Minute),
			Workers:      getEnvAsInt("RESAMPLE_WORKERS", 4),
			CacheTTL:     getEnvAsDuration("RESAMPLE_CACHE_TTL", 1*time.Hour),
		},
		Alerting: AlertingConfig{
			MeanFactor:      getEnvAsFloat("ALERT_MEAN_FACTOR", 3.0),
			PendingDuration: getEnvAsDuration("ALERT_PENDING_DURATION", 30*time.Minute),
		},
		HTTPServer: HTTPServerConfig{
			Port: getEnvAsInt("HTTP_PORT", 8080),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "radiation-server@example.com"),
			To:       getEnv("SMTP_TO", "admin@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
