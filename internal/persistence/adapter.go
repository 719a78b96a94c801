package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/taskwise/internal/models"
	"github.com/benvon/taskwise/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Adapter reads and writes the whole collection under one key.
// It satisfies store.Persistence.
type Adapter struct {
	kv  KeyValueStore
	key string
	loc *time.Location
}

// NewAdapter creates an adapter over kv. An empty key means DefaultKey.
func NewAdapter(kv KeyValueStore, key string, loc *time.Location) *Adapter {
	if key == "" {
		key = DefaultKey
	}
	if loc == nil {
		loc = time.Local
	}
	return &Adapter{kv: kv, key: key, loc: loc}
}

// Key returns the storage key
func (a *Adapter) Key() string {
	return a.key
}

// Load reads the collection. A missing key is an empty collection.
func (a *Adapter) Load(ctx context.Context) (tasks []models.Task, err error) {
	ctx, span := telemetry.StartSpan(ctx, "persistence.load", attribute.String("storage.key", a.key))
	defer func() { telemetry.EndSpan(span, err) }()

	data, err := a.kv.Get(ctx, a.key)
	if errors.Is(err, ErrKeyNotFound) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", a.key, err)
	}

	tasks, err = Decode(data, a.loc)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("task.count", len(tasks)))
	return tasks, nil
}

// Save overwrites the stored collection
func (a *Adapter) Save(ctx context.Context, tasks []models.Task) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "persistence.save",
		attribute.String("storage.key", a.key),
		attribute.Int("task.count", len(tasks)),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	data, err := Encode(tasks)
	if err != nil {
		return err
	}
	if err = a.kv.Set(ctx, a.key, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", a.key, err)
	}
	return nil
}

// Ping checks the backend is reachable
func (a *Adapter) Ping(ctx context.Context) error {
	return a.kv.Ping(ctx)
}

// Close releases the backend
func (a *Adapter) Close() error {
	return a.kv.Close()
}
