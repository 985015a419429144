package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// It is the single source of truth for runtime parameters.
type Config struct {
	Port string
	Env  string

	// CORSAllowedHosts are extra browser origins (host:port) allowed besides local dev.
	CORSAllowedHosts []string

	DB        DatabaseConfig
	Redis     RedisConfig
	S3        S3Config
	Geocoding GeocodingConfig
	Photo     PhotoConfig
	Worker    WorkerConfig
}

// DatabaseConfig contains PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// RedisConfig contains Redis connection parameters.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// S3Config contains object storage configuration for verification photos.
type S3Config struct {
	Region          string
	Bucket          string
	Endpoint        string // optional, for S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	PresignExpiry   time.Duration
}

// GeocodingConfig contains Google Geocoding API settings.
type GeocodingConfig struct {
	APIKey   string
	BaseURL  string
	CacheTTL time.Duration
}

// PhotoConfig contains limits applied to uploaded verification photos.
type PhotoConfig struct {
	MaxBytes            int64
	DefaultGeofence     int
	UploadRatePerMinute int
}

// WorkerConfig contains interval configuration for background workers.
type WorkerConfig struct {
	PendingPhotoInterval    time.Duration
	PendingPhotoGrace       time.Duration
	PendingPhotoMaxAttempts int
}

// Load reads configuration from environment variables. If a .env file exists
// in the working directory, it will be loaded first.
func Load() (*Config, error) {
	// Missing .env is fine: production relies on real environment variables.
	_ = godotenv.Load()

	cfg := &Config{}

	// Server
	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "development")
	cfg.CORSAllowedHosts = getEnvList("CORS_ALLOWED_HOSTS")

	// Database
	cfg.DB = DatabaseConfig{
		Host:     getEnv("DB_HOST", ""),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	// Redis
	cfg.Redis = RedisConfig{
		Host:     getEnv("REDIS_HOST", "redis"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       getEnvInt("REDIS_DB", 0),
	}

	// S3
	cfg.S3 = S3Config{
		Region:          getEnv("S3_REGION", "us-east-1"),
		Bucket:          getEnv("S3_BUCKET", "verification-photos"),
		Endpoint:        getEnv("S3_ENDPOINT", ""),
		AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	// Geocoding (server-side key, falls back to the frontend key for local dev)
	cfg.Geocoding = GeocodingConfig{
		APIKey:  getEnv("GOOGLE_MAPS_API_KEY", getEnv("VITE_GOOGLE_MAPS_API_KEY", "")),
		BaseURL: getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
	}

	// Photo limits
	cfg.Photo = PhotoConfig{
		MaxBytes:            int64(getEnvInt("PHOTO_MAX_BYTES", 25<<20)),
		DefaultGeofence:     getEnvInt("PROPERTY_GEOFENCE_METERS", 100),
		UploadRatePerMinute: getEnvInt("UPLOAD_RATE_PER_MINUTE", 30),
	}
	cfg.Worker.PendingPhotoMaxAttempts = getEnvInt("PENDING_PHOTO_MAX_ATTEMPTS", 5)

	// Durations
	var err error
	if cfg.S3.PresignExpiry, err = parseDurationEnv("S3_PRESIGN_EXPIRY", "15m"); err != nil {
		return nil, fmt.Errorf("invalid S3_PRESIGN_EXPIRY: %w", err)
	}
	if cfg.Geocoding.CacheTTL, err = parseDurationEnv("GEOCODE_CACHE_TTL", "720h"); err != nil {
		return nil, fmt.Errorf("invalid GEOCODE_CACHE_TTL: %w", err)
	}
	if cfg.Worker.PendingPhotoInterval, err = parseDurationEnv("PENDING_PHOTO_INTERVAL", "1m"); err != nil {
		return nil, fmt.Errorf("invalid PENDING_PHOTO_INTERVAL: %w", err)
	}
	if cfg.Worker.PendingPhotoGrace, err = parseDurationEnv("PENDING_PHOTO_GRACE", "2m"); err != nil {
		return nil, fmt.Errorf("invalid PENDING_PHOTO_GRACE: %w", err)
	}

	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, errors.New("database configuration incomplete: ensure DB_HOST, DB_USER, and DB_NAME are set")
	}
	if cfg.Photo.MaxBytes <= 0 {
		return nil, errors.New("PHOTO_MAX_BYTES must be positive")
	}
	if cfg.Worker.PendingPhotoInterval <= 0 {
		return nil, errors.New("PENDING_PHOTO_INTERVAL must be positive")
	}
	if cfg.Worker.PendingPhotoMaxAttempts < 1 {
		return nil, errors.New("PENDING_PHOTO_MAX_ATTEMPTS must be at least 1")
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default if empty.
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the value of an environment variable as an integer or a default if empty/invalid.
func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// getEnvList splits a comma-separated environment variable, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDurationEnv reads an environment variable and parses it as time.Duration.
// If the variable is empty, it falls back to the provided default value.
func parseDurationEnv(key, def string) (time.Duration, error) {
	raw := getEnv(key, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be >= 0")
	}
	return d, nil
}
