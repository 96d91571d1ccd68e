package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	Sync        SyncConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	// Addr enables the Redis-backed sync lock when set. Empty means the
	// in-memory lock is used (single-process deployment).
	Addr     string
	Password string
	DB       int
}

type SyncConfig struct {
	// RequestTimeoutSeconds bounds each outbound marketplace HTTP call
	RequestTimeoutSeconds int
	// MaxPages is the hard cap on pagination iterations per fetch, so a
	// misbehaving provider cannot loop a sync forever
	MaxPages int
	// LockTTLSeconds is the stale-lock timeout for the distributed sync lock
	LockTTLSeconds int
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SYNC_REQUEST_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SYNC_MAX_PAGES", 500)
	viper.SetDefault("SYNC_LOCK_TTL_SECONDS", 600)

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "omsapi"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", ""),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Sync: SyncConfig{
			RequestTimeoutSeconds: viper.GetInt("SYNC_REQUEST_TIMEOUT_SECONDS"),
			MaxPages:              viper.GetInt("SYNC_MAX_PAGES"),
			LockTTLSeconds:        viper.GetInt("SYNC_LOCK_TTL_SECONDS"),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	if cfg.Sync.RequestTimeoutSeconds <= 0 {
		cfg.Sync.RequestTimeoutSeconds = 30
	}
	if cfg.Sync.MaxPages <= 0 {
		cfg.Sync.MaxPages = 500
	}
	if cfg.Sync.LockTTLSeconds <= 0 {
		cfg.Sync.LockTTLSeconds = 600
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}
