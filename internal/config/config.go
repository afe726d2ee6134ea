package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dashboard service
type Config struct {
	// Core settings
	ServiceName string
	HTTPPort    int
	OPCUAPort   int
	OPCUAEnable bool

	// Data paths
	DataDir    string
	LogDir     string
	LayoutPath string

	// Timing settings
	RefreshInterval time.Duration
	ClockInterval   time.Duration

	// Sync settings
	RetryAttempts int
	RetryDelay    time.Duration
	LocalFallback bool
	StartOffline  bool

	// Optional analytics endpoint; empty disables event sending
	AnalyticsEndpoint string
}

// Load reads configuration from a .env file (if present) and environment
// variables with defaults
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnvOrDefault("DATA_DIR", "./data")

	cfg := &Config{
		// Core settings
		ServiceName: getEnvOrDefault("SERVICE_NAME", "SteelMill-Dashboard"),
		HTTPPort:    getEnvAsIntOrDefault("HTTP_PORT", 8080),
		OPCUAPort:   getEnvAsIntOrDefault("OPCUA_PORT", 4840),
		OPCUAEnable: getEnvAsBoolOrDefault("OPCUA_ENABLE", true),

		// Data paths
		DataDir:    dataDir,
		LogDir:     getEnvOrDefault("LOG_DIR", filepath.Join(dataDir, "logs")),
		LayoutPath: getEnvOrDefault("LAYOUT_PATH", "./layout.yaml"),

		// Timing settings
		RefreshInterval: getDurationOrDefault("REFRESH_INTERVAL", 5*time.Second),
		ClockInterval:   getDurationOrDefault("CLOCK_INTERVAL", 1*time.Second),

		// Sync settings
		RetryAttempts: getEnvAsIntOrDefault("RETRY_ATTEMPTS", 3),
		RetryDelay:    getDurationOrDefault("RETRY_DELAY", 1*time.Second),
		LocalFallback: getEnvAsBoolOrDefault("LOCAL_FALLBACK", true),
		StartOffline:  getEnvAsBoolOrDefault("START_OFFLINE", false),

		AnalyticsEndpoint: getEnvOrDefault("ANALYTICS_ENDPOINT", ""),
	}

	return cfg, nil
}

// DBPath returns the card database location under the data dir
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "cards.db")
}

// LocalStorePath returns the local fallback store location under the data dir
func (c *Config) LocalStorePath() string {
	return filepath.Join(c.DataDir, "local-store.json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
