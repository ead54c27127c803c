package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed calibration.yaml
var calibrationYAML []byte

type Config struct {
	Database  DatabaseConfig
	Embedding EmbeddingConfig
	Matching  MatchingConfig
	Storage   StorageConfig
	Web       WebConfig
	Log       LogConfig
	Timezone  string // IANA zone used to decide "today" (empty = local)
}

type DatabaseConfig struct {
	Driver       string // "postgres" or "sqlite"
	URL          string // PostgreSQL connection URL
	SQLitePath   string // SQLite database file (defaults to attendance.db)
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type EmbeddingConfig struct {
	URL          string // face embedding server, defaults to http://localhost:8000
	Dim          int    // defaults to 512
	MaxImageSize int    // snapshots are downscaled to fit this bound before encoding
}

type MatchingConfig struct {
	Metric    string  // "euclidean" or "cosine"
	Threshold float64 // acceptance threshold (tau)
	Margin    float64 // ambiguity margin between best and runner-up
}

type StorageConfig struct {
	ExportDir string // CSV export directory
	ImagesDir string // enrollment image directory
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins string // comma-separated CORS whitelist
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// CalibrationConfig holds the embedded matcher defaults.
type CalibrationConfig struct {
	Metrics map[string]MetricCalibration `yaml:"metrics"`
}

type MetricCalibration struct {
	Threshold float64 `yaml:"threshold"`
	Margin    float64 `yaml:"margin"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envString returns the env var or the default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func loadCalibration() CalibrationConfig {
	var cal CalibrationConfig
	if err := yaml.Unmarshal(calibrationYAML, &cal); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded calibration.yaml: " + err.Error())
	}
	return cal
}

func Load() *Config {
	cal := loadCalibration()

	metric := strings.ToLower(envString("MATCH_METRIC", "euclidean"))
	defaults := cal.ForMetric(metric)

	dbURL := os.Getenv("DATABASE_URL")
	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = "sqlite"
		if dbURL != "" {
			driver = "postgres"
		}
	}

	return &Config{
		Database: DatabaseConfig{
			Driver:       strings.ToLower(driver),
			URL:          dbURL,
			SQLitePath:   envString("SQLITE_PATH", "attendance.db"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Embedding: EmbeddingConfig{
			URL:          os.Getenv("EMBEDDING_URL"),
			Dim:          envInt("FACE_EMBEDDING_DIM", 512),
			MaxImageSize: envInt("MAX_IMAGE_SIZE", 1920),
		},
		Matching: MatchingConfig{
			Metric:    metric,
			Threshold: envFloat("MATCH_THRESHOLD", defaults.Threshold),
			Margin:    envFloat("MATCH_MARGIN", defaults.Margin),
		},
		Storage: StorageConfig{
			ExportDir: envString("EXPORT_DIR", "exports"),
			ImagesDir: envString("IMAGES_DIR", "images"),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 5001),
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  strings.ToLower(envString("LOG_LEVEL", "info")),
			Format: strings.ToLower(envString("LOG_FORMAT", "text")),
		},
		Timezone: os.Getenv("ATTENDANCE_TIMEZONE"),
	}
}

// ForMetric returns calibration for a metric, falling back to euclidean defaults
func (c CalibrationConfig) ForMetric(metric string) MetricCalibration {
	if m, ok := c.Metrics[metric]; ok {
		return m
	}
	if m, ok := c.Metrics["euclidean"]; ok {
		return m
	}
	return MetricCalibration{Threshold: 0.6, Margin: 0.05}
}

// Location resolves the configured timezone. Unknown zones fall back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
