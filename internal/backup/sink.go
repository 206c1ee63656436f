package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Sink receives backup files.
type Sink interface {
	// Write stores data under name and returns where it went.
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// DirSink writes backups as files in Dir. Files are written to a temporary
// name and linked into place so a partial backup is never visible. An
// existing file is never replaced.
type DirSink struct {
	Dir string
}

// Write implements Sink.
func (d DirSink) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup directory: %w", err)
	}
	path := filepath.Join(d.Dir, name)
	tmp, err := os.CreateTemp(d.Dir, "."+name+".*")
	if err != nil {
		return "", fmt.Errorf("create backup file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write backup file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close backup file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := os.Link(tmp.Name(), path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("backup file %s: %w", name, fs.ErrExist)
		}
		return "", fmt.Errorf("link backup file: %w", err)
	}
	return path, nil
}

// MemorySink keeps backups in memory.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{files: map[string][]byte{}}
}

// Write implements Sink.
func (m *MemorySink) Write(_ context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[name]; ok {
		return "", fmt.Errorf("backup file %s: %w", name, fs.ErrExist)
	}
	m.files[name] = append([]byte(nil), data...)
	return "memory:" + name, nil
}

// Names returns the stored file names in order.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// File returns the content stored under name.
func (m *MemorySink) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}
