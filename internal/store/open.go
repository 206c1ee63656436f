package store

import "fmt"

// Backend names accepted by OpenBackend.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

// OpenBackend opens the named backend at path. The memory backend ignores path.
func OpenBackend(backend, path string) (KV, error) {
	switch backend {
	case BackendSQLite, "":
		return Open(path)
	case BackendBolt:
		return OpenBolt(path)
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q: must be one of sqlite, bolt, memory", backend)
	}
}
