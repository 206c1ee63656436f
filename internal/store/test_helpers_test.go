package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new SQLite store in a temp dir for testing.
func createTestStore(t *testing.T) *SQLite {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBolt creates a new bbolt store in a temp dir for testing.
func createTestBolt(t *testing.T) *Bolt {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "test.bolt")
	b, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("OpenBolt() failed: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// backends returns one fresh instance of every backend.
func backends(t *testing.T) map[string]KV {
	t.Helper()
	return map[string]KV{
		"sqlite": createTestStore(t),
		"bolt":   createTestBolt(t),
		"memory": NewMemory(),
	}
}
