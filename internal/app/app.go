// Package app assembles the task store, its storage backend and the optional
// change-event queue from configuration. The server, CLI and worker share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskwise/internal/config"
	"github.com/benvon/taskwise/internal/logger"
	"github.com/benvon/taskwise/internal/persistence"
	"github.com/benvon/taskwise/internal/queue"
	"github.com/benvon/taskwise/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// App holds the wired components for one process
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Store   *store.Store
	Storage *persistence.Adapter
	// Events is nil when RABBITMQ_URL is not configured
	Events queue.EventQueue
	// LoadErr is the *store.PersistenceError from the initial load, if any.
	// The store is empty and usable when it is set.
	LoadErr error

	redis *redis.Client
}

type options struct {
	kv          persistence.KeyValueStore
	clock       func() time.Time
	skipEvents  bool
	retries     int
	retryDelay  time.Duration
	connectFunc func(url string) (queue.EventQueue, error)
}

// Option customizes New
type Option func(*options)

// WithKeyValueStore bypasses the configured backend
func WithKeyValueStore(kv persistence.KeyValueStore) Option {
	return func(o *options) { o.kv = kv }
}

// WithClock overrides the store clock
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithoutEvents skips the RabbitMQ connection even when configured
func WithoutEvents() Option {
	return func(o *options) { o.skipEvents = true }
}

// WithRetry sets how often and how patiently RabbitMQ is dialed
func WithRetry(retries int, initialDelay time.Duration) Option {
	return func(o *options) {
		o.retries = retries
		o.retryDelay = initialDelay
	}
}

func withConnectFunc(fn func(url string) (queue.EventQueue, error)) Option {
	return func(o *options) { o.connectFunc = fn }
}

// New opens storage, connects the event queue when enabled, builds the store and
// loads the persisted collection once. A load failure is recorded in LoadErr, not
// returned; a backend that cannot be opened at all is.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	o := &options{
		retries:    10,
		retryDelay: 2 * time.Second,
		connectFunc: func(url string) (queue.EventQueue, error) {
			return queue.NewRabbitMQQueue(url)
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	a := &App{Config: cfg, Logger: log}

	kv := o.kv
	if kv == nil {
		opened, redisClient, err := OpenKeyValueStore(cfg)
		if err != nil {
			return nil, err
		}
		kv = opened
		a.redis = redisClient
	}
	a.Storage = persistence.NewAdapter(kv, cfg.StorageKey, cfg.Location)
	log.Info("storage_opened",
		zap.String("backend", cfg.StorageBackend),
		zap.String("key", a.Storage.Key()),
	)

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled() && !o.skipEvents {
		q, err := connectWithRetry(ctx, o, cfg.RabbitMQURL, log)
		if err != nil {
			_ = a.Storage.Close()
			return nil, err
		}
		a.Events = q
		publisher = q
	}

	storeOpts := []store.Option{
		store.WithLocation(cfg.Location),
		store.WithRecurrencePolicy(cfg.RecurrencePolicy),
		store.WithPublisher(publisher),
	}
	if o.clock != nil {
		storeOpts = append(storeOpts, store.WithClock(o.clock))
	}
	a.Store = store.New(a.Storage, log, storeOpts...)

	if err := a.Store.Load(ctx); err != nil {
		a.LoadErr = err
		log.Warn("initial_load_failed", zap.String("error", logger.SanitizeError(err)))
	}
	return a, nil
}

// OpenKeyValueStore opens the backend named by cfg.StorageBackend. The redis
// client is returned so the rate limiter can share it; it is nil for other backends.
func OpenKeyValueStore(cfg *config.Config) (persistence.KeyValueStore, *redis.Client, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return persistence.NewMemoryStore(), nil, nil
	case config.BackendFile:
		kv, err := persistence.NewFileStore(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	case config.BackendRedis:
		kv, err := persistence.NewRedisStore(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Client(), nil
	case config.BackendPostgres:
		kv, err := persistence.NewPostgresStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// connectWithRetry dials RabbitMQ with exponential backoff to ride out broker startup
func connectWithRetry(ctx context.Context, o *options, url string, log *zap.Logger) (queue.EventQueue, error) {
	retries := max(o.retries, 1)
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		q, err := o.connectFunc(url)
		if err == nil {
			log.Info("connected_to_rabbitmq")
			return q, nil
		}
		lastErr = err
		if attempt == retries-1 {
			break
		}

		delay := o.retryDelay * time.Duration(1<<uint(attempt))
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
		log.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", retries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", retries, lastErr)
}

// RedisClient returns the client of the redis backend, nil for other backends
func (a *App) RedisClient() *redis.Client {
	return a.redis
}

// Close releases the queue and storage connections
func (a *App) Close() error {
	var errs []error
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close event queue: %w", err))
		}
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
