package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const bucketKV = "kv"

// Bolt is a KV backend on a single bbolt bucket.
type Bolt struct {
	db *bbolt.DB
}

var _ KV = (*Bolt)(nil)

// OpenBolt creates or opens a bbolt database at path, creating parent
// directories as needed.
func OpenBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketKV))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// Close closes the database.
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// Get returns the value stored under key. The returned slice is a copy;
// bbolt memory is only valid inside the transaction.
func (b *Bolt) Get(_ context.Context, key string) ([]byte, error) {
	if b.db == nil {
		return nil, &Error{Op: "get", Key: key, Err: ErrClosed}
	}
	var out []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketKV)).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if IsNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	return out, nil
}

// Set replaces the value under key in one update transaction.
func (b *Bolt) Set(_ context.Context, key string, value []byte) error {
	if b.db == nil {
		return &Error{Op: "set", Key: key, Err: ErrClosed}
	}
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketKV)).Put([]byte(key), value)
	}); err != nil {
		return &Error{Op: "set", Key: key, Err: err}
	}
	return nil
}

// Delete removes key.
func (b *Bolt) Delete(_ context.Context, key string) error {
	if b.db == nil {
		return &Error{Op: "delete", Key: key, Err: ErrClosed}
	}
	if err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketKV)).Delete([]byte(key))
	}); err != nil {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	return nil
}
