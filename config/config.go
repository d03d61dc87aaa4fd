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

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Admin        AdminConfig
	Payhip       PayhipConfig
	Bunny        BunnyConfig
	Rental       RentalConfig
	AWS          AWSConfig
	Housekeeping HousekeepingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/videotheque?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AdminConfig holds the admin password and the JWT settings for admin sessions.
type AdminConfig struct {
	Password     string
	PasswordHash string // bcrypt hash; takes precedence over Password
	JWTSecret    string
	ExpireHours  int
}

// PayhipConfig holds the license API settings.
type PayhipConfig struct {
	APIBaseURL string
	APIKey     string
	ProductID  string // fallback product identifier when the license carries none
	TimeoutSec int
}

// BunnyConfig holds CDN signing settings.
type BunnyConfig struct {
	SigningKey   string
	PullZoneHost string // private pull zone; only URLs on this host are signed
	EmbedBaseURL string
	MediaTTLSec  int // TTL for signed thumbnails and previews
}

// RentalConfig holds rental lifecycle settings.
type RentalConfig struct {
	DefaultHours       int
	SignedURLMaxTTLSec int
	FreshnessMinutes   int
	LockTTLSec         int
	RateLimitPerHour   int
	ValidateLimitPer15 int
}

// AWSConfig holds AWS credentials and the rental archive bucket.
type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	ArchiveBucket   string
	S3Endpoint      string // optional, for S3-compatible stores
}

// HousekeepingConfig holds sweeper and purge settings for the worker.
type HousekeepingConfig struct {
	SweepIntervalSec int
	SweepBatchSize   int
	RetentionDays    int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Timeout returns the bounded upstream call timeout.
func (c PayhipConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// SignedURLMaxTTL returns the ceiling applied to every signed URL.
func (c RentalConfig) SignedURLMaxTTL() time.Duration {
	return time.Duration(c.SignedURLMaxTTLSec) * time.Second
}

// FreshnessWindow returns how long after purchase a code may still be redeemed.
func (c RentalConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessMinutes) * time.Minute
}

// LockTTL returns the lifetime of the per-customer rental lock.
func (c RentalConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSec) * time.Second
}

// SweepInterval returns the sweeper tick.
func (c HousekeepingConfig) SweepInterval() time.Duration {
	if c.SweepIntervalSec <= 0 {
		return time.Minute
	}
	return time.Duration(c.SweepIntervalSec) * time.Second
}

// Retention returns how long expired rentals are kept; zero disables purging.
func (c HousekeepingConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "4000"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "videotheque"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
			MinConns: getEnvInt("DB_MIN_CONNS", 0),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Admin: AdminConfig{
			Password:     getEnv("ADMIN_PASSWORD", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			JWTSecret:    getEnv("JWT_SECRET", ""),
			ExpireHours:  getEnvInt("JWT_EXPIRE_HOURS", 12),
		},
		Payhip: PayhipConfig{
			APIBaseURL: strings.TrimRight(getEnv("PAYHIP_API_BASE_URL", "https://payhip.com/api/v2"), "/"),
			APIKey:     getEnv("PAYHIP_API_KEY", ""),
			ProductID:  getEnv("PAYHIP_PRODUCT_ID", ""),
			TimeoutSec: getEnvInt("PAYHIP_TIMEOUT_SEC", 10),
		},
		Bunny: BunnyConfig{
			SigningKey:   getEnv("BUNNY_SIGNING_KEY", ""),
			PullZoneHost: stripScheme(getEnv("BUNNY_PULL_ZONE_HOST", "")),
			EmbedBaseURL: strings.TrimRight(getEnv("BUNNY_EMBED_BASE_URL", "https://iframe.mediadelivery.net/embed"), "/"),
			MediaTTLSec:  getEnvInt("BUNNY_MEDIA_TTL_SEC", 3600),
		},
		Rental: RentalConfig{
			DefaultHours:       getEnvInt("DEFAULT_RENTAL_HOURS", 48),
			SignedURLMaxTTLSec: getEnvInt("SIGNED_URL_MAX_TTL_SEC", 3600),
			FreshnessMinutes:   getEnvInt("LICENSE_FRESHNESS_MINUTES", 60),
			LockTTLSec:         getEnvInt("RENTAL_LOCK_TTL_SEC", 15),
			RateLimitPerHour:   getEnvInt("RENTAL_RATE_LIMIT_PER_HOUR", 30),
			ValidateLimitPer15: getEnvInt("VALIDATE_RATE_LIMIT_PER_15MIN", 100),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			ArchiveBucket:   getEnv("AWS_S3_ARCHIVE_BUCKET", ""),
			S3Endpoint:      getEnv("AWS_S3_ENDPOINT", ""),
		},
		Housekeeping: HousekeepingConfig{
			SweepIntervalSec: getEnvInt("SWEEP_INTERVAL_SEC", 60),
			SweepBatchSize:   getEnvInt("SWEEP_BATCH_SIZE", 500),
			RetentionDays:    getEnvInt("RENTAL_RETENTION_DAYS", 30),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the secrets the core cannot run without are present.
func (c *Config) Validate() error {
	var errs []error
	if c.Payhip.APIKey == "" {
		errs = append(errs, errors.New("PAYHIP_API_KEY is required"))
	}
	if c.Bunny.SigningKey == "" {
		errs = append(errs, errors.New("BUNNY_SIGNING_KEY is required"))
	}
	if c.Admin.PasswordHash == "" && len(c.Admin.Password) < 8 {
		errs = append(errs, errors.New("ADMIN_PASSWORD must be at least 8 characters"))
	}
	if c.Admin.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Rental.SignedURLMaxTTLSec <= 0 {
		errs = append(errs, errors.New("SIGNED_URL_MAX_TTL_SEC must be positive"))
	}
	if c.Rental.FreshnessMinutes <= 0 {
		errs = append(errs, errors.New("LICENSE_FRESHNESS_MINUTES must be positive"))
	}
	if c.Rental.DefaultHours <= 0 {
		errs = append(errs, errors.New("DEFAULT_RENTAL_HOURS must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func stripScheme(host string) string {
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	return strings.TrimRight(host, "/")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
