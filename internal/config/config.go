// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment distinguishes deployment modes that affect market-data
// fallback behavior.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// Config holds application configuration.
type Config struct {
	DataDir           string
	UpstreamMarketURL string
	JWTSecret         string
	LogLevel          string
	Environment       Environment
	Port              int
	TickInterval      time.Duration
	QuoteTimeout      time.Duration
	QuoteTTL          time.Duration
	HistoricalTTL     time.Duration
	DevMode            bool
}

// IsDevelopment reports whether synthetic market-data fallback is allowed.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Load reads configuration from the environment, falling back to a .env
// file in the working directory if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("DATA_DIR", "")
	if dataDir == "" {
		if _, err := os.Stat("./data"); err == nil {
			dataDir = "./data"
		} else {
			dataDir = "./data"
		}
	}

	env := Environment(getEnv("NODE_ENV", string(EnvDevelopment)))
	if env != EnvProduction {
		env = EnvDevelopment
	}

	cfg := &Config{
		DataDir:           dataDir,
		Port:              getEnvAsInt("PORT", 8080),
		Environment:       env,
		DevMode:           env == EnvDevelopment,
		UpstreamMarketURL: getEnv("UPSTREAM_MARKET_URL", "https://query1.finance.yahoo.com/v8/finance/chart"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		TickInterval:      time.Duration(getEnvAsInt("TICK_INTERVAL_SECONDS", 60)) * time.Second,
		QuoteTimeout:      time.Duration(getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 10)) * time.Second,
		QuoteTTL:          time.Duration(getEnvAsInt("QUOTE_TTL_SECONDS", 60)) * time.Second,
		HistoricalTTL:     time.Duration(getEnvAsInt("HISTORICAL_TTL_SECONDS", 3600)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required configuration.
func (c *Config) Validate() error {
	if c.Environment == EnvProduction && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
