package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the service.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Refresh  RefreshConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	RateLimitEnabled bool
	RateLimitRPS     int
	RateLimitBurst   int
	AllowedOrigins   []string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration for the secure storage backend.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	KeyPrefix    string
}

// AuthConfig holds authentication and session configuration.
type AuthConfig struct {
	Issuer          string
	SigningSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Argon2 parameters
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32

	// Anonymous session limits
	MaxAnonymousSessions int
	AnonymousSessionTTL  time.Duration
}

// RefreshConfig holds token refresh scheduler configuration.
type RefreshConfig struct {
	CheckInterval   time.Duration
	Threshold       time.Duration
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level       string
	Environment string
}

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),

			RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RateLimitRPS:     getEnvInt("RATE_LIMIT_RPS", 20),
			RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 40),
			AllowedOrigins:   getEnvSlice("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "auth"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "multi_auth"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 25),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 5),
			KeyPrefix:    getEnv("REDIS_KEY_PREFIX", "multiauth:"),
		},
		Auth: AuthConfig{
			Issuer:          getEnv("AUTH_ISSUER", "https://auth.favorize.app"),
			SigningSecret:   getEnv("AUTH_SIGNING_SECRET", ""),
			AccessTokenTTL:  getEnvDuration("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
			RefreshTokenTTL: getEnvDuration("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),

			// Argon2id recommended parameters (OWASP)
			Argon2Memory:      getEnvUint32("ARGON2_MEMORY", 64*1024), // 64 MB
			Argon2Iterations:  getEnvUint32("ARGON2_ITERATIONS", 3),
			Argon2Parallelism: getEnvUint8("ARGON2_PARALLELISM", 4),
			Argon2SaltLength:  getEnvUint32("ARGON2_SALT_LENGTH", 16),
			Argon2KeyLength:   getEnvUint32("ARGON2_KEY_LENGTH", 32),

			MaxAnonymousSessions: getEnvInt("MAX_ANONYMOUS_SESSIONS", 5),
			AnonymousSessionTTL:  getEnvDuration("ANONYMOUS_SESSION_TTL", 24*time.Hour),
		},
		Refresh: RefreshConfig{
			CheckInterval:  getEnvDuration("REFRESH_CHECK_INTERVAL", 1*time.Minute),
			Threshold:      getEnvDuration("REFRESH_THRESHOLD", 5*time.Minute),
			MaxAttempts:    getEnvInt("REFRESH_MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvDuration("REFRESH_INITIAL_BACKOFF", 500*time.Millisecond),
			MaxBackoff:     getEnvDuration("REFRESH_MAX_BACKOFF", 30*time.Second),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
	}
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// Addr returns the Redis host:port address.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint32(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(intValue)
		}
	}
	return defaultValue
}

func getEnvUint8(key string, defaultValue uint8) uint8 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 8); err == nil {
			return uint8(intValue)
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
