package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		StorageBucket:        "wallpaper-images",
		GatewayMode:          GatewayREST,
		StorageDriver:        StorageREST,
		BootstrapTimeoutMS:   3000,
		HTTPTimeoutSeconds:   15,
		ImageMaxUploadSizeMB: 15,
		ThumbnailQuality:     80,
		TracingSamplerRatio:  1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Defaults", func(*Config) {}, false},
		{"Missing bucket", func(c *Config) { c.StorageBucket = " " }, true},
		{"Unknown gateway mode", func(c *Config) { c.GatewayMode = "graphql" }, true},
		{"Database mode without URL", func(c *Config) { c.GatewayMode = GatewayDatabase }, true},
		{"Database mode with URL", func(c *Config) {
			c.GatewayMode = GatewayDatabase
			c.DatabaseURL = "postgres://localhost/wallhub"
		}, false},
		{"S3 driver without credentials", func(c *Config) { c.StorageDriver = StorageS3 }, true},
		{"S3 driver with credentials", func(c *Config) {
			c.StorageDriver = StorageS3
			c.S3Endpoint = "project.supabase.co"
			c.S3AccessKeyID = "key"
			c.S3SecretAccessKey = "secret"
		}, false},
		{"Zero bootstrap timeout", func(c *Config) { c.BootstrapTimeoutMS = 0 }, true},
		{"Zero http timeout", func(c *Config) { c.HTTPTimeoutSeconds = 0 }, true},
		{"Zero upload size", func(c *Config) { c.ImageMaxUploadSizeMB = 0 }, true},
		{"Thumbnail quality out of range", func(c *Config) { c.ThumbnailQuality = 101 }, true},
		{"Sampler ratio out of range", func(c *Config) { c.TracingSamplerRatio = 1.5 }, true},
		// Missing credentials select demo mode, they are not invalid.
		{"No credentials", func(c *Config) {
			c.SupabaseURL = ""
			c.SupabaseAnonKey = ""
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	c := validConfig()

	assert.Equal(t, 3*time.Second, c.BootstrapTimeout())
	assert.Equal(t, 15*time.Second, c.HTTPTimeout())
	assert.Equal(t, int64(15*1024*1024), c.MaxUploadBytes())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("SUPABASE_URL", "https://abc.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "  anon  ")
	t.Setenv("GATEWAY_MODE", " REST ")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://abc.supabase.co", c.SupabaseURL)
	assert.Equal(t, "anon", c.SupabaseAnonKey)
	assert.Equal(t, GatewayREST, c.GatewayMode)
	assert.Equal(t, "wallpaper-images", c.StorageBucket)
	assert.Equal(t, 3000, c.BootstrapTimeoutMS)
	assert.True(t, GuardFromConfig(c).Configured())
}

func TestLoadConfig_Defaults(t *testing.T) {
	defer viper.Reset()
	os.Unsetenv("SUPABASE_URL")
	os.Unsetenv("SUPABASE_ANON_KEY")

	c, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, StorageREST, c.StorageDriver)
	assert.Equal(t, 15, c.ImageMaxUploadSizeMB)
	assert.False(t, GuardFromConfig(c).Configured())
}
