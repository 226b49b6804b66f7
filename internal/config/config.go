// Package config loads runtime settings from the environment (optionally
// seeded from a .env file).
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Blob backends accepted by BLOB_BACKEND.
const (
	BlobBackendDatabase = "database"
	BlobBackendBadger   = "badger"
	BlobBackendS3       = "s3"
)

// Config holds application configuration
type Config struct {
	Env      string `envconfig:"ENV" default:"development"`
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"investtrack"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"investtrack"`
	DBName     string `envconfig:"DB_NAME" default:"investtrack"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// JWT
	JWTSecret        string        `envconfig:"JWT_SECRET" default:"fallback-secret-key-for-dev-only"`
	JWTExpirationDur time.Duration `envconfig:"JWT_EXPIRES_IN" default:"168h"`

	// Token revocation; empty keeps revoked token ids in process memory.
	RedisURL string `envconfig:"REDIS_URL"`

	// Attachments
	BlobBackend    string `envconfig:"BLOB_BACKEND" default:"database"`
	BlobDir        string `envconfig:"BLOB_DIR" default:"./data/blobs"`
	S3Bucket       string `envconfig:"S3_BUCKET"`
	S3Prefix       string `envconfig:"S3_PREFIX" default:"attachments/"`
	S3Region       string `envconfig:"S3_REGION"`
	UploadMaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"15728640"`

	// Tracing
	OtelEnabled    bool    `envconfig:"OTEL_ENABLED" default:"false"`
	OtelEndpoint   string  `envconfig:"OTEL_ENDPOINT"`
	OtelInsecure   bool    `envconfig:"OTEL_INSECURE" default:"true"`
	OtelSampleRate float64 `envconfig:"OTEL_SAMPLE_RATE" default:"0.1"`
	ServiceName    string  `envconfig:"SERVICE_NAME" default:"investtrack-api"`
	Version        string  `envconfig:"VERSION" default:"dev"`

	MetricsAPIKey string `envconfig:"METRICS_API_KEY"`

	// Mail; an empty host logs outgoing mail instead of sending it.
	MailHost     string `envconfig:"MAIL_HOST"`
	MailPort     int    `envconfig:"MAIL_PORT" default:"587"`
	MailUser     string `envconfig:"MAIL_USER"`
	MailPassword string `envconfig:"MAIL_PASSWORD"`
	MailFrom     string `envconfig:"MAIL_FROM" default:"no-reply@investtrack.local"`
	ClientURL    string `envconfig:"CLIENT_URL" default:"http://localhost:3000"`

	BootstrapAdminEmail string        `envconfig:"BOOTSTRAP_ADMIN_EMAIL"`
	TokenPurgeInterval  time.Duration `envconfig:"TOKEN_PURGE_INTERVAL" default:"10m"`
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	appConfig = &cfg
	return appConfig, nil
}

func (c *Config) validate() error {
	switch c.BlobBackend {
	case "":
		c.BlobBackend = BlobBackendDatabase
	case BlobBackendDatabase, BlobBackendBadger:
	case BlobBackendS3:
		if c.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q", c.BlobBackend)
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == "fallback-secret-key-for-dev-only") {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether ENV=production.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// DSN returns the PostgreSQL connection string used by gorm.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// MigrationURL returns the postgres:// URL used by golang-migrate.
func (c *Config) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// Set installs cfg as the process configuration. Tests use it to avoid
// reading the environment.
func Set(cfg *Config) {
	appConfig = cfg
}
