package lockout

import (
	"context"
	"sync"
	"time"
)

const BackendMemory = "memory"

// MemoryStore keeps attempt state in process memory. It has no durability
// and is always available.
type MemoryStore struct {
	failed    map[string]int
	lockUntil map[string]time.Time
	mu        sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		failed:    make(map[string]int),
		lockUntil: make(map[string]time.Time),
	}
}

func (m *MemoryStore) Name() string {
	return BackendMemory
}

func (m *MemoryStore) GetStatus(_ context.Context, username string) (Status, error) {
	status, _ := m.lookup(username)
	return status, nil
}

// lookup also reports whether a record exists for username.
func (m *MemoryStore) lookup(username string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count, hasCount := m.failed[username]
	until, hasLock := m.lockUntil[username]
	return Status{FailedCount: count, LockUntil: until}, hasCount || hasLock
}

func (m *MemoryStore) SetStatus(_ context.Context, username string, status Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed[username] = status.FailedCount
	m.lockUntil[username] = status.LockUntil
	return nil
}

func (m *MemoryStore) Reset(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.failed, username)
	delete(m.lockUntil, username)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) ClearAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.failed = make(map[string]int)
	m.lockUntil = make(map[string]time.Time)
	return nil
}

var _ Store = (*MemoryStore)(nil)
