package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.OTLP.Enabled)
	assert.Equal(t, DriverMongo, cfg.Storage.Driver)
	assert.Equal(t, "products", cfg.Mongo.Collection)
	assert.Equal(t, 5*time.Second, cfg.Mongo.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("OTEL_ENABLED", "false")
	t.Setenv("MONGO_TIMEOUT", "250ms")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "https://shop.example, ,https://admin.example")

	cfg, err := load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.False(t, cfg.OTLP.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Mongo.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, []string{"https://shop.example", "https://admin.example"}, cfg.Server.AllowedOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:  ServerConfig{ShutdownTimeout: time.Second},
			Storage: StorageConfig{Driver: DriverMongo},
			Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: "db", Collection: "products", Timeout: time.Second},
			Log:     LogConfig{Level: "info"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "memory needs no uri", mutate: func(c *Config) { c.Storage.Driver = DriverMemory; c.Mongo.URI = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "redis" }, wantErr: "STORAGE_DRIVER"},
		{name: "missing uri", mutate: func(c *Config) { c.Mongo.URI = "" }, wantErr: "MONGO_URI"},
		{name: "missing collection", mutate: func(c *Config) { c.Mongo.Collection = "" }, wantErr: "MONGO_COLLECTION"},
		{name: "zero mongo timeout", mutate: func(c *Config) { c.Mongo.Timeout = 0 }, wantErr: "MONGO_TIMEOUT"},
		{name: "unknown log level", mutate: func(c *Config) { c.Log.Level = "trace" }, wantErr: "LOG_LEVEL"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.Server.ShutdownTimeout = 0 }, wantErr: "SERVER_SHUTDOWN_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
