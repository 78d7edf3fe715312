package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Backing drivers: STORE_DRIVER is "memory" or "postgres", KV_DRIVER is
	// "memory" or "redis".
	StoreDriver string
	KVDriver    string

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWT
	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	// Rate limiting for the login endpoint
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Gate redirect targets
	SignInPath        string
	DefaultLanding    string
	TenantManagerPath string

	// Seed admin account for the in-memory credential store (optional)
	AdminEmail    string
	AdminPassword string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Drivers default to the embedded in-memory backends
		StoreDriver: getEnv("STORE_DRIVER", "memory"),
		KVDriver:    getEnv("KV_DRIVER", "memory"),

		// Database defaults for a local non-standard-port Postgres
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 25432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "seo_portal"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// Redis defaults
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		// JWT defaults
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JWTIssuer:      getEnv("JWT_ISSUER", "seo-portal"),
		AccessTokenTTL: getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),

		// Login rate limit defaults
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow: getEnvDuration("LOGIN_RATE_WINDOW", time.Minute),

		// Gate redirect defaults
		SignInPath:        getEnv("GATE_SIGNIN_PATH", "/login"),
		DefaultLanding:    getEnv("GATE_DEFAULT_LANDING", "/dashboard/overview"),
		TenantManagerPath: getEnv("GATE_TENANT_MANAGER_PATH", "/admin/clients"),

		// Seed admin (memory driver only)
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.StoreDriver != "memory" && cfg.StoreDriver != "postgres" {
		return nil, fmt.Errorf("STORE_DRIVER must be memory or postgres, got %q", cfg.StoreDriver)
	}
	if cfg.KVDriver != "memory" && cfg.KVDriver != "redis" {
		return nil, fmt.Errorf("KV_DRIVER must be memory or redis, got %q", cfg.KVDriver)
	}

	return cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
