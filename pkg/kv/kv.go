// Package kv provides the persisted key-value slot used to carry the active
// tenant selection across reloads. The port is deliberately tiny so any
// durable local store can back it.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: key not found")

// Store is a durable key-value slot.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}
