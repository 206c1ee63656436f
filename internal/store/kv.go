package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys of the persisted state layout.
const (
	KeyEarnings       = "node_earnings"
	KeyLicenses       = "node_licenses"
	KeyBackupSettings = "auto_backup_settings"
	KeyChangeCounter  = "backup_change_counter"
)

// ErrNotFound is returned by Get when a key holds no value.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// KV is a synchronous key-value store over serialized blobs.
type KV interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key in a single write.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases the underlying resources.
	Close() error
}

// Error is a storage failure (quota exceeded, I/O error, closed store).
type Error struct {
	Op  string // "get", "set", "delete"
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the key has no value.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// GetJSON decodes the value under key into v. It returns false without
// error when the key is absent.
func GetJSON(ctx context.Context, kv KV, key string, v any) (bool, error) {
	data, err := kv.Get(ctx, key)
	if IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &Error{Op: "decode", Key: key, Err: err}
	}
	return true, nil
}

// PutJSON encodes v and stores it under key in a single write.
func PutJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: "encode", Key: key, Err: err}
	}
	return kv.Set(ctx, key, data)
}
