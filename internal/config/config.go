// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for on-disk artifact databases (always absolute)
	LogLevel         string
	LogPretty        bool
	Port             int
	DevMode          bool
	MaxDuration      int // Upper bound for the simulation time slider, in seconds
	SolverSubsteps   int
	HTTPWriteTimeout time.Duration
	Artifacts        *ArtifactConfig
}

// ArtifactConfig holds the transient audio artifact store and optional publishing settings
type ArtifactConfig struct {
	DBPath          string // ":memory:" keeps artifacts for the process lifetime only
	TTL             time.Duration
	CleanupSchedule string // robfig/cron spec, e.g. "@every 1m"

	// S3-compatible publishing (disabled when Bucket is empty)
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

// PublishingEnabled reports whether artifacts should be uploaded to a bucket
func (a *ArtifactConfig) PublishingEnabled() bool {
	return a.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("QMUSIC_DATA_DIR", "./data")

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		Port:             getEnvAsInt("GO_PORT", 8001),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogPretty:        getEnvAsBool("LOG_PRETTY", true),
		MaxDuration:      getEnvAsInt("MAX_DURATION_SECONDS", 5),
		SolverSubsteps:   getEnvAsInt("SOLVER_SUBSTEPS", 1),
		HTTPWriteTimeout: time.Duration(getEnvAsInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)) * time.Second,
		Artifacts:        loadArtifactConfig(absDataDir),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Only file-backed artifact stores need the data directory on disk
	if cfg.Artifacts.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Artifacts.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// Validate checks that configuration values are usable
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid GO_PORT %d", c.Port)
	}
	if c.MaxDuration < 1 {
		return fmt.Errorf("MAX_DURATION_SECONDS must be at least 1, got %d", c.MaxDuration)
	}
	if c.SolverSubsteps < 1 {
		return fmt.Errorf("SOLVER_SUBSTEPS must be at least 1, got %d", c.SolverSubsteps)
	}
	if c.HTTPWriteTimeout <= 0 {
		return fmt.Errorf("HTTP_WRITE_TIMEOUT_SECONDS must be positive")
	}
	if c.Artifacts == nil {
		return fmt.Errorf("artifact configuration missing")
	}
	if c.Artifacts.TTL <= 0 {
		return fmt.Errorf("ARTIFACT_TTL_MINUTES must be positive")
	}
	if strings.TrimSpace(c.Artifacts.CleanupSchedule) == "" {
		return fmt.Errorf("ARTIFACT_CLEANUP_SCHEDULE must not be empty")
	}
	if c.Artifacts.PublishingEnabled() && (c.Artifacts.AccessKeyID == "") != (c.Artifacts.SecretAccessKey == "") {
		return fmt.Errorf("ARTIFACT_ACCESS_KEY_ID and ARTIFACT_SECRET_ACCESS_KEY must be set together")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// loadArtifactConfig loads artifact store settings; relative database paths live under dataDir
func loadArtifactConfig(dataDir string) *ArtifactConfig {
	dbPath := getEnv("ARTIFACT_DB_PATH", ":memory:")
	if dbPath != ":memory:" && !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(dataDir, dbPath)
	}

	return &ArtifactConfig{
		DBPath:          dbPath,
		TTL:             time.Duration(getEnvAsFloat("ARTIFACT_TTL_MINUTES", 30) * float64(time.Minute)),
		CleanupSchedule: getEnv("ARTIFACT_CLEANUP_SCHEDULE", "@every 1m"),
		Bucket:          getEnv("ARTIFACT_BUCKET", ""),
		Endpoint:        getEnv("ARTIFACT_ENDPOINT", ""),
		Region:          getEnv("ARTIFACT_REGION", "auto"),
		AccessKeyID:     getEnv("ARTIFACT_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("ARTIFACT_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("ARTIFACT_PREFIX", "qmusic/"),
	}
}
