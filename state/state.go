// Package state persists the processing ledger that makes migration
// idempotent. Each source path maps to the checksum it was migrated with;
// a file whose checksum changes counts as new input. The ledger is the
// sole source of truth for idempotency and must survive process restarts.
package state

import (
	"sort"
	"sync"
	"time"
)

// Entry records one migrated source file.
type Entry struct {
	Checksum    string                 `json:"checksum"`
	ProcessedAt time.Time              `json:"processed_at"`
	DestPath    string                 `json:"dest_path"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// document is the on-disk JSON shape.
type document struct {
	ProcessedFiles map[string]Entry `json:"processed_files"`
	LastUpdated    time.Time        `json:"last_updated"`
}

// Store is the processing ledger consumed by the migration engine.
type Store interface {
	// Get returns the entry for a source path, if one exists.
	Get(path string) (Entry, bool)
	// Put records a migrated file and persists the change.
	Put(path string, e Entry) error
	// Len returns the number of recorded source paths.
	Len() int
	// Paths returns all recorded source paths, sorted.
	Paths() []string
}

// MemStore is an in-memory Store for tests and dry runs.
type MemStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemStore returns an empty in-memory ledger.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]Entry)}
}

func (m *MemStore) Get(path string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[path]
	return e, ok
}

func (m *MemStore) Put(path string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = e
	return nil
}

func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, 0, len(m.entries))
	for p := range m.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
