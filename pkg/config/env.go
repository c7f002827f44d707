package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Store backends selectable through STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Config struct {
	Env           string
	StoreBackend  string
	Redis         RedisConfig
	Postgres      PostgresConfig
	LogLevel      string
	DefaultLocale string
	// AWSRegion is used for S3 downloads of uploaded catalogs.
	AWSRegion string
}

// IsLocal reports whether the process runs on a developer machine.
func (c Config) IsLocal() bool {
	return c.Env == "local"
}

// LoadEnv loads environment variables from .env.local if APP_ENV is "local"
func LoadEnv() {
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development" // Default to development if not set
		os.Setenv("APP_ENV", appEnv)
	}

	if appEnv == "local" {
		// The logger is built from this configuration, so the standard logger
		// reports on .env loading.
		err := godotenv.Load(".env.local")
		if err != nil {
			log.Printf("Warning: .env.local file not found, or error loading: %v. Relying on system environment variables.", err)
		} else {
			log.Println("Loaded .env.local for local development.")
		}
	}
}

// Load builds a Config from the environment with defaults.
// Precedence: explicit env var > .env.local (when loaded by LoadEnv) > default.
func Load() Config {
	return Config{
		Env:          getEnv("APP_ENV", "development"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		Redis: RedisConfig{
			Addr:      os.Getenv("REDIS_ADDR"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        getEnvInt("REDIS_DB", 0),
			KeyPrefix: os.Getenv("REDIS_KEY_PREFIX"),
		},
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Name:     getEnv("DB_NAME", "pos"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		LogLevel:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
		DefaultLocale: getEnv("DEFAULT_LOCALE", "es"),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid integer for %s: %s", key, v)
			return def
		}
		return n
	}
	return def
}
