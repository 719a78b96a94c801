// Package persistence stores the task collection as one serialized value
// under a fixed key in a pluggable key-value backend.
package persistence

import (
	"context"
	"errors"
)

// DefaultKey is the storage key the collection is written under
const DefaultKey = "taskwise-tasks"

// ErrKeyNotFound is returned by KeyValueStore.Get when nothing is stored
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is the storage contract every backend implements
type KeyValueStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Ping(ctx context.Context) error
	Close() error
}
