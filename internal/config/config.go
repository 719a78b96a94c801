package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/benvon/taskwise/internal/recurrence"
	"github.com/ulule/limiter/v3"
)

// Storage backends
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	ServerDebugMode  bool
	WorkerDebugMode  bool
	RateLimit        string
	StorageBackend   string
	DataDir          string
	StorageKey       string
	RedisURL         string
	DatabaseURL      string
	RabbitMQURL      string
	RabbitMQPrefetch int
	DLQGCInterval    time.Duration
	DLQRetention     time.Duration
	Timezone         string
	RecurrencePolicy recurrence.Policy
	OTELEnabled      bool
	OTELEndpoint     string

	// Location is resolved from Timezone; time.Local when Timezone is empty
	Location *time.Location
	// File is the TOML file the values were layered over, if any
	File string
}

// fileConfig is the TOML layout of TASKWISE_CONFIG
type fileConfig struct {
	Server struct {
		Port        string `toml:"port"`
		FrontendURL string `toml:"frontend_url"`
		EnableHSTS  *bool  `toml:"enable_hsts"`
		Debug       *bool  `toml:"debug"`
		RateLimit   string `toml:"rate_limit"`
	} `toml:"server"`
	Storage struct {
		Backend     string `toml:"backend"`
		DataDir     string `toml:"data_dir"`
		Key         string `toml:"key"`
		RedisURL    string `toml:"redis_url"`
		DatabaseURL string `toml:"database_url"`
	} `toml:"storage"`
	Events struct {
		RabbitMQURL string `toml:"rabbitmq_url"`
		Prefetch      int    `toml:"prefetch"`
		Debug         *bool  `toml:"debug"`
		DLQGCInterval string `toml:"dlq_gc_interval"`
		DLQRetention  string `toml:"dlq_retention"`
	} `toml:"events"`
	Tasks struct {
		Timezone         string `toml:"timezone"`
		RecurrencePolicy string `toml:"recurrence_policy"`
	} `toml:"tasks"`
	Telemetry struct {
		Enabled  *bool  `toml:"enabled"`
		Endpoint string `toml:"endpoint"`
	} `toml:"telemetry"`
}

func defaults() *Config {
	return &Config{
		ServerPort:       "8080",
		FrontendURL:      "http://localhost:3000",
		RateLimit:        "20-S",
		StorageBackend:   BackendFile,
		DataDir:          "./data",
		StorageKey:       "taskwise-tasks",
		RedisURL:         "redis://localhost:6379/0",
		RabbitMQPrefetch: 1,
		DLQGCInterval:    time.Hour,
		DLQRetention:     24 * time.Hour,
		RecurrencePolicy: recurrence.PolicyOnRead,
	}
}

// Load loads configuration from environment variables, layered over the TOML
// file named by TASKWISE_CONFIG when set
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("TASKWISE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ServerPort = getEnv("SERVER_PORT", cfg.ServerPort)
	cfg.FrontendURL = getEnv("FRONTEND_URL", cfg.FrontendURL)
	cfg.EnableHSTS = getEnvBool("ENABLE_HSTS", cfg.EnableHSTS)
	cfg.ServerDebugMode = getEnvBool("SERVER_DEBUG_MODE", cfg.ServerDebugMode)
	cfg.WorkerDebugMode = getEnvBool("WORKER_DEBUG_MODE", cfg.WorkerDebugMode)
	cfg.RateLimit = getEnv("RATE_LIMIT", cfg.RateLimit)
	cfg.StorageBackend = strings.ToLower(getEnv("TASKWISE_STORAGE_BACKEND", cfg.StorageBackend))
	cfg.DataDir = getEnv("TASKWISE_DATA_DIR", cfg.DataDir)
	cfg.StorageKey = getEnv("TASKWISE_STORAGE_KEY", cfg.StorageKey)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RabbitMQURL = getEnv("RABBITMQ_URL", cfg.RabbitMQURL)
	cfg.RabbitMQPrefetch = getEnvInt("RABBITMQ_PREFETCH", cfg.RabbitMQPrefetch)
	cfg.DLQGCInterval = getEnvDuration("DLQ_GC_INTERVAL", cfg.DLQGCInterval)
	cfg.DLQRetention = getEnvDuration("DLQ_RETENTION", cfg.DLQRetention)
	cfg.Timezone = getEnv("TASKWISE_TIMEZONE", cfg.Timezone)
	cfg.OTELEnabled = getEnvBool("OTEL_ENABLED", cfg.OTELEnabled)
	cfg.OTELEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTELEndpoint)

	policy, err := recurrence.ParsePolicy(getEnv("TASKWISE_RECURRENCE_POLICY", string(cfg.RecurrencePolicy)))
	if err != nil {
		return nil, fmt.Errorf("TASKWISE_RECURRENCE_POLICY: %w", err)
	}
	cfg.RecurrencePolicy = policy

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	c.File = path

	setString(&c.ServerPort, fc.Server.Port)
	setString(&c.FrontendURL, fc.Server.FrontendURL)
	setBool(&c.EnableHSTS, fc.Server.EnableHSTS)
	setBool(&c.ServerDebugMode, fc.Server.Debug)
	setString(&c.RateLimit, fc.Server.RateLimit)
	setString(&c.StorageBackend, fc.Storage.Backend)
	setString(&c.DataDir, fc.Storage.DataDir)
	setString(&c.StorageKey, fc.Storage.Key)
	setString(&c.RedisURL, fc.Storage.RedisURL)
	setString(&c.DatabaseURL, fc.Storage.DatabaseURL)
	setString(&c.RabbitMQURL, fc.Events.RabbitMQURL)
	setBool(&c.WorkerDebugMode, fc.Events.Debug)
	if fc.Events.Prefetch > 0 {
		c.RabbitMQPrefetch = fc.Events.Prefetch
	}
	if err := setDuration(&c.DLQGCInterval, fc.Events.DLQGCInterval); err != nil {
		return fmt.Errorf("events.dlq_gc_interval: %w", err)
	}
	if err := setDuration(&c.DLQRetention, fc.Events.DLQRetention); err != nil {
		return fmt.Errorf("events.dlq_retention: %w", err)
	}
	setString(&c.Timezone, fc.Tasks.Timezone)
	if fc.Tasks.RecurrencePolicy != "" {
		c.RecurrencePolicy = recurrence.Policy(fc.Tasks.RecurrencePolicy)
	}
	setBool(&c.OTELEnabled, fc.Telemetry.Enabled)
	setString(&c.OTELEndpoint, fc.Telemetry.Endpoint)
	return nil
}

func (c *Config) validate() error {
	switch c.StorageBackend {
	case BackendFile, BackendMemory, BackendRedis:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("unknown TASKWISE_STORAGE_BACKEND %q (must be file, memory, redis, or postgres)", c.StorageBackend)
	}

	if c.StorageKey == "" {
		return fmt.Errorf("TASKWISE_STORAGE_KEY cannot be empty")
	}

	if _, err := limiter.NewRateFromFormatted(c.RateLimit); err != nil {
		return fmt.Errorf("invalid RATE_LIMIT %q: %w", c.RateLimit, err)
	}

	if c.RabbitMQPrefetch < 1 {
		return fmt.Errorf("RABBITMQ_PREFETCH must be at least 1")
	}

	if c.DLQGCInterval <= 0 {
		return fmt.Errorf("DLQ_GC_INTERVAL must be positive")
	}
	if c.DLQRetention <= 0 {
		return fmt.Errorf("DLQ_RETENTION must be positive")
	}

	c.Location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return fmt.Errorf("invalid TASKWISE_TIMEZONE %q: %w", c.Timezone, err)
		}
		c.Location = loc
	}

	return nil
}

// EventsEnabled reports whether change events are published
func (c *Config) EventsEnabled() bool {
	return c.RabbitMQURL != ""
}

// AllowedOrigins splits FrontendURL on commas
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.FrontendURL, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v string) error {
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
