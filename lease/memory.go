package lease

import (
	"context"
	"sync"
	"time"
)

type heldLease struct {
	token  string
	expiry time.Time
}

// MemoryLocker keeps leases in process. Suitable for a single server instance.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]heldLease
	now    func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: make(map[string]heldLease), now: time.Now}
}

func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if held, ok := m.leases[key]; ok && now.Before(held.expiry) {
		return "", false, nil
	}
	token := newToken()
	m.leases[key] = heldLease{token: token, expiry: now.Add(ttl)}
	return token, true, nil
}

func (m *MemoryLocker) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.leases[key]; ok && held.token == token {
		delete(m.leases, key)
	}
	return nil
}
