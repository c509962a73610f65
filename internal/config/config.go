// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/flowbot/flowbot/internal/storage"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL    string        `env:"DATABASE_URL,required"`
	RunMigrations  bool          `env:"RUN_MIGRATIONS" envDefault:"false"`
	DBMaxConns     int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns     int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBConnLifetime time.Duration `env:"DB_CONN_LIFETIME" envDefault:"1h"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public base URL of this service, used as the embed apiHost.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled    bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitPublicEnabled bool `env:"RATE_LIMIT_PUBLIC_ENABLED" envDefault:"true"`
	RateLimitPublicRPS     int  `env:"RATE_LIMIT_PUBLIC_RPS" envDefault:"10"`
	RateLimitPublicBurst   int  `env:"RATE_LIMIT_PUBLIC_BURST" envDefault:"20"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Secrets. EncryptionSecret keys the credential cipher and must be 32 bytes.
	EncryptionSecret string `env:"ENCRYPTION_SECRET,required"`
	SessionSecret    string `env:"SESSION_SECRET"`

	// Trudesk upstream
	TrudeskTimeout           time.Duration `env:"TRUDESK_TIMEOUT" envDefault:"10s"`
	TrudeskAllowPrivateHosts bool          `env:"TRUDESK_ALLOW_PRIVATE_HOSTS" envDefault:"false"`

	// Upload storage (S3-compatible)
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"typebot"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3Port      int    `env:"S3_PORT"`
	S3SSL       bool   `env:"S3_SSL" envDefault:"true"`

	// Upload storage (Azure Blob)
	AzureBlobConnectionString string `env:"AZURE_BLOB_CONNECTION_STRING"`
	AzureBlobContainerName    string `env:"AZURE_BLOB_CONTAINER_NAME"`

	UploadURLTTL  time.Duration `env:"UPLOAD_URL_TTL" envDefault:"10m"`
	MaxUploadSize int64         `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"`

	// Embed page
	EmbedScriptURL string `env:"EMBED_SCRIPT_URL" envDefault:"https://cdn.jsdelivr.net/npm/@typebot.io/js@0/dist/web.js"`
	ViewerURL      string `env:"VIEWER_URL"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Storage returns the upload signer configuration.
func (c *Config) Storage() storage.Config {
	return storage.Config{
		S3Endpoint:            c.S3Endpoint,
		S3AccessKey:           c.S3AccessKey,
		S3SecretKey:           c.S3SecretKey,
		S3Bucket:              c.S3Bucket,
		S3Region:              c.S3Region,
		S3Port:                c.S3Port,
		S3SSL:                 c.S3SSL,
		AzureConnectionString: c.AzureBlobConnectionString,
		AzureContainerName:    c.AzureBlobContainerName,
		TTL:                   c.UploadURLTTL,
		MaxUploadSize:         c.MaxUploadSize,
	}
}

// EmbedAPIHost is the apiHost handed to the embedded widget.
func (c *Config) EmbedAPIHost() string {
	if c.ViewerURL != "" {
		return c.ViewerURL
	}
	return c.BaseURL
}

// Validate checks constraints env tags cannot express.
func (c *Config) Validate() error {
	if len(c.EncryptionSecret) != 32 {
		return errors.New("ENCRYPTION_SECRET must be exactly 32 bytes")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 bytes")
	}
	if c.S3Port < 0 || c.S3Port > 65535 {
		return fmt.Errorf("S3_PORT out of range: %d", c.S3Port)
	}
	return nil
}

// Load parses environment variables and returns a Config.
// A .env file in the working directory is applied first when present;
// variables already set in the environment take precedence.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
