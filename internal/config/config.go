package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	Port                   string
	DBPath                 string
	UploadDir              string
	PublicURL              string // Optional: override auto-detected URL for reverse proxy setups
	APIPrefix              string
	DefaultStorageLimit    int64 // Per-user quota in bytes for newly created users
	ExpiryDays             int   // Default artifact lifetime; 0 disables default expiry
	CleanupIntervalMinutes int
	StagingMaxAgeHours     int    // Abandoned staging directories older than this are reaped
	CronSecret             string // Bearer secret for the cron trigger endpoint

	// Remote storage (S3-compatible). Selected once at startup.
	UseS3Storage  bool
	S3Bucket      string
	S3Region      string
	S3Endpoint    string // Custom endpoint for MinIO/R2
	S3AccessKey   string
	S3SecretKey   string
	S3PathStyle   bool
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:                   getEnv("PORT", "8080"),
		DBPath:                 getEnv("DB_PATH", "./screendrop.db"),
		UploadDir:              getEnv("UPLOAD_DIR", "./uploads"),
		PublicURL:              getEnv("PUBLIC_URL", ""),
		APIPrefix:              getEnv("API_PREFIX", "/api"),
		DefaultStorageLimit:    getEnvInt64("DEFAULT_STORAGE_LIMIT", 50*1024*1024), // 50MB default
		ExpiryDays:             getEnvInt("EXPIRY_DAYS", 30),
		CleanupIntervalMinutes: getEnvInt("CLEANUP_INTERVAL_MINUTES", 60),
		StagingMaxAgeHours:     getEnvInt("STAGING_MAX_AGE_HOURS", 24),
		CronSecret:             getEnv("CRON_SECRET", ""),
		UseS3Storage:           getEnvBool("USE_S3_STORAGE", false),
		S3Bucket:               getEnv("AWS_BUCKET_NAME", ""),
		S3Region:               getEnv("AWS_REGION", ""),
		S3Endpoint:             getEnv("AWS_ENDPOINT", ""),
		S3AccessKey:            getEnv("AWS_ACCESS_KEY_ID", ""),
		S3SecretKey:            getEnv("AWS_SECRET_ACCESS_KEY", ""),
		S3PathStyle:            getEnvBool("S3_PATH_STYLE", false),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate ensures configuration values are sensible
func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}

	if c.UploadDir == "" {
		return fmt.Errorf("UPLOAD_DIR cannot be empty")
	}

	if !strings.HasPrefix(c.APIPrefix, "/") {
		return fmt.Errorf("API_PREFIX must start with /, got %q", c.APIPrefix)
	}

	if c.DefaultStorageLimit <= 0 {
		return fmt.Errorf("DEFAULT_STORAGE_LIMIT must be positive, got %d", c.DefaultStorageLimit)
	}

	if c.ExpiryDays < 0 {
		return fmt.Errorf("EXPIRY_DAYS must be 0 (no default expiry) or positive, got %d", c.ExpiryDays)
	}

	if c.CleanupIntervalMinutes <= 0 {
		return fmt.Errorf("CLEANUP_INTERVAL_MINUTES must be positive, got %d", c.CleanupIntervalMinutes)
	}

	if c.StagingMaxAgeHours <= 0 {
		return fmt.Errorf("STAGING_MAX_AGE_HOURS must be positive, got %d", c.StagingMaxAgeHours)
	}

	if c.UseS3Storage {
		if c.S3Bucket == "" {
			return fmt.Errorf("AWS_BUCKET_NAME is required when USE_S3_STORAGE is enabled")
		}
		if c.S3AccessKey == "" || c.S3SecretKey == "" {
			return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required when USE_S3_STORAGE is enabled")
		}
	}

	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an int64 environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
