package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is the single-instance fallback. Leases expire after ttl so a
// lost release cannot wedge a key forever.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	seq    uint64
}

type memoryLease struct {
	id      uint64
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]memoryLease)}
}

func (m *MemoryLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		if id, ok := m.tryAcquire(key, ttl); ok {
			var once sync.Once
			return func() { once.Do(func() { m.release(key, id) }) }, nil
		}
		select {
		case <-ctx.Done():
			return nil, waitErr(ctx)
		case <-ticker.C:
		}
	}
}

func (m *MemoryLocker) tryAcquire(key string, ttl time.Duration) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if l, held := m.leases[key]; held && now.Before(l.expires) {
		return 0, false
	}
	m.seq++
	m.leases[key] = memoryLease{id: m.seq, expires: now.Add(ttl)}
	return m.seq, true
}

func (m *MemoryLocker) release(key string, id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, held := m.leases[key]; held && l.id == id {
		delete(m.leases, key)
	}
}
