package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pstrings "consentledger/pkg/platform/strings"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr         string
	StoreDriver  string
	DatabaseURL  string
	StoreTimeout time.Duration

	Redis    RedisConfig
	Kafka    KafkaConfig
	Auth     AuthConfig
	Limits   RateLimitConfig
	LogLevel string
}

// RedisConfig configures the shared credential cache. An empty URL disables
// Redis and the in-process cache is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the outbox relay. No brokers disables the relay.
type KafkaConfig struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
	RelayBatch    int
}

// AuthConfig configures application credential handling.
type AuthConfig struct {
	// SecretPepper keys the credential digest so a leaked applications table
	// cannot be checked against guessed secrets offline.
	SecretPepper       string
	CredentialCacheTTL time.Duration
}

// RateLimitConfig configures the per-application limiter on /data-access.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// FromEnv builds a Server config from environment variables so main stays lean.
// A .env file in the working directory is loaded first when present; real
// environment variables win over it.
func FromEnv() (Server, error) {
	_ = godotenv.Load()

	cfg := Server{
		Addr:        getEnv("CONSENT_LEDGER_ADDR", ":8080"),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", DriverMemory)),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: pstrings.SplitFoldList(os.Getenv("KAFKA_BROKERS"), ","),
			Topic:   getEnv("KAFKA_TOPIC", "consent-ledger.events"),
		},
		Auth: AuthConfig{
			SecretPepper: os.Getenv("APP_SECRET_PEPPER"),
		},
	}

	var err error
	if cfg.StoreTimeout, err = durationEnv("STORE_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.PoolSize, err = intEnv("REDIS_POOL_SIZE", 10); err != nil {
		return Server{}, err
	}
	if cfg.Redis.MinIdleConns, err = intEnv("REDIS_MIN_IDLE_CONNS", 2); err != nil {
		return Server{}, err
	}
	if cfg.Redis.DialTimeout, err = durationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.ReadTimeout, err = durationEnv("REDIS_READ_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Redis.WriteTimeout, err = durationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Kafka.RelayInterval, err = durationEnv("OUTBOX_RELAY_INTERVAL", 2*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Kafka.RelayBatch, err = intEnv("OUTBOX_RELAY_BATCH", 100); err != nil {
		return Server{}, err
	}
	if cfg.Auth.CredentialCacheTTL, err = durationEnv("CREDENTIAL_CACHE_TTL", 30*time.Second); err != nil {
		return Server{}, err
	}
	if cfg.Limits.PerSecond, err = floatEnv("DATA_ACCESS_RATE_PER_SECOND", 20); err != nil {
		return Server{}, err
	}
	if cfg.Limits.Burst, err = intEnv("DATA_ACCESS_RATE_BURST", 40); err != nil {
		return Server{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate checks combinations FromEnv cannot express per variable.
func (s Server) Validate() error {
	switch s.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", s.StoreDriver)
	}
	if s.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if s.Limits.PerSecond <= 0 || s.Limits.Burst <= 0 {
		return fmt.Errorf("data access rate limits must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
