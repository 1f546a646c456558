// Package lease provides short-lived per-key locks so only one analysis runs per contract.
package lease

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Locker grants exclusive, expiring ownership of a key.
type Locker interface {
	// Acquire reports ok=false without error when another holder owns the key.
	// The returned token identifies this lease and must be passed to Release.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the key only while it is still held under token.
	Release(ctx context.Context, key, token string) error
}

// ContractKey is the lease key guarding analysis of one contract.
func ContractKey(contractID string) string {
	return "compliancedesk:analysis:" + contractID
}

func newToken() string {
	return uuid.NewString()
}
