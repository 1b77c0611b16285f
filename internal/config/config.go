// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Gateway and storage driver names.
const (
	GatewayREST     = "rest"
	GatewayDatabase = "database"
	StorageREST     = "rest"
	StorageS3       = "s3"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env      string `mapstructure:"APP_ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	SupabaseURL     string `mapstructure:"SUPABASE_URL"`
	SupabaseAnonKey string `mapstructure:"SUPABASE_ANON_KEY"`
	StorageBucket   string `mapstructure:"STORAGE_BUCKET"`

	GatewayMode              string `mapstructure:"GATEWAY_MODE"`
	DatabaseURL              string `mapstructure:"DATABASE_URL"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`

	StorageDriver     string `mapstructure:"STORAGE_DRIVER"`
	S3Endpoint        string `mapstructure:"S3_ENDPOINT"`
	S3Region          string `mapstructure:"S3_REGION"`
	S3AccessKeyID     string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	S3UseSSL          bool   `mapstructure:"S3_USE_SSL"`

	RedisURL     string `mapstructure:"REDIS_URL"`
	SeedFile     string `mapstructure:"SEED_FILE"`
	FeatureFlags string `mapstructure:"FEATURE_FLAGS"`

	BootstrapTimeoutMS   int `mapstructure:"BOOTSTRAP_TIMEOUT_MS"`
	HTTPTimeoutSeconds   int `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	ImageMaxUploadSizeMB int `mapstructure:"IMAGE_MAX_UPLOAD_SIZE_MB"`
	ThumbnailWidth       int `mapstructure:"THUMBNAIL_WIDTH"`
	ThumbnailQuality     int `mapstructure:"THUMBNAIL_QUALITY"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`
	MetricsAddr         string  `mapstructure:"METRICS_ADDR"`

	AccountEmail    string `mapstructure:"WALLHUB_EMAIL"`
	AccountPassword string `mapstructure:"WALLHUB_PASSWORD"`
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base file is optional; environment variables are enough.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read profile-specific config 'config.%s.yml': %w", env, err)
			}
		} else {
			log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
		}
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SUPABASE_URL", "")
	viper.SetDefault("SUPABASE_ANON_KEY", "")
	viper.SetDefault("STORAGE_BUCKET", "wallpaper-images")
	viper.SetDefault("GATEWAY_MODE", GatewayREST)
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 10)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 2)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("STORAGE_DRIVER", StorageREST)
	viper.SetDefault("S3_ENDPOINT", "")
	viper.SetDefault("S3_REGION", "us-east-1")
	viper.SetDefault("S3_ACCESS_KEY_ID", "")
	viper.SetDefault("S3_SECRET_ACCESS_KEY", "")
	viper.SetDefault("S3_USE_SSL", true)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("SEED_FILE", "")
	viper.SetDefault("FEATURE_FLAGS", "thumbnails=on")
	viper.SetDefault("BOOTSTRAP_TIMEOUT_MS", 3000)
	viper.SetDefault("HTTP_TIMEOUT_SECONDS", 15)
	viper.SetDefault("IMAGE_MAX_UPLOAD_SIZE_MB", 15)
	viper.SetDefault("THUMBNAIL_WIDTH", 640)
	viper.SetDefault("THUMBNAIL_QUALITY", 80)
	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)
	viper.SetDefault("METRICS_ADDR", "")
	viper.SetDefault("WALLHUB_EMAIL", "")
	viper.SetDefault("WALLHUB_PASSWORD", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.SupabaseURL = strings.TrimRight(strings.TrimSpace(c.SupabaseURL), "/")
	c.SupabaseAnonKey = strings.TrimSpace(c.SupabaseAnonKey)
	c.GatewayMode = strings.ToLower(strings.TrimSpace(c.GatewayMode))
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.AccountEmail = strings.TrimSpace(c.AccountEmail)
}

// Validate ensures that configuration values are usable. Missing backend
// credentials are not an error here: they switch the runtime into demo mode
// through the Guard.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.StorageBucket) == "" {
		return errors.New("STORAGE_BUCKET is required")
	}
	switch c.GatewayMode {
	case GatewayREST:
	case GatewayDatabase:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when GATEWAY_MODE is database")
		}
	default:
		return fmt.Errorf("unknown GATEWAY_MODE %q", c.GatewayMode)
	}
	switch c.StorageDriver {
	case StorageREST:
	case StorageS3:
		if c.S3Endpoint == "" || c.S3AccessKeyID == "" || c.S3SecretAccessKey == "" {
			return errors.New("S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY are required when STORAGE_DRIVER is s3")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.BootstrapTimeoutMS <= 0 {
		return errors.New("BOOTSTRAP_TIMEOUT_MS must be positive")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.ImageMaxUploadSizeMB <= 0 {
		return errors.New("IMAGE_MAX_UPLOAD_SIZE_MB must be positive")
	}
	if c.ThumbnailQuality < 0 || c.ThumbnailQuality > 100 {
		return errors.New("THUMBNAIL_QUALITY must be between 0 and 100")
	}
	if c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1 {
		return errors.New("TRACING_SAMPLER_RATIO must be between 0 and 1")
	}
	return nil
}

// IsProduction reports whether APP_ENV names a production profile.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// BootstrapTimeout is the session bootstrap watchdog bound.
func (c *Config) BootstrapTimeout() time.Duration {
	return time.Duration(c.BootstrapTimeoutMS) * time.Millisecond
}

// HTTPTimeout bounds every REST gateway round-trip.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// MaxUploadBytes is the upload size ceiling in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.ImageMaxUploadSizeMB) << 20
}
